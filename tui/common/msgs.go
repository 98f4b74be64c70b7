package common

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/cache"
)

// ExpiredMsg reports that the session can no longer be refreshed.
type ExpiredMsg struct{}

// SettledMsg reports that a mutation reached its final phase.
type SettledMsg struct {
	Action string
	Value  any
	Err    error
}

// Await waits for m off the update loop and reports how it settled.
func Await[T any](action string, m *cache.Mutation[T]) tea.Cmd {
	return func() tea.Msg {
		v, err := m.Wait(context.Background())
		return SettledMsg{Action: action, Value: v, Err: err}
	}
}

// CacheChangedMsg reports that an observed cache key was written.
type CacheChangedMsg struct {
	Key cache.Key
}

// Watcher forwards cache notifications for observed keys into the program.
type Watcher struct {
	store   *cache.Store
	changes chan cache.Key
	done    chan struct{}
	unsubs  map[cache.Key]func()
}

// NewWatcher creates a watcher over store.
func NewWatcher(store *cache.Store) *Watcher {
	return &Watcher{
		store:   store,
		changes: make(chan cache.Key, 64),
		done:    make(chan struct{}),
		unsubs:  make(map[cache.Key]func()),
	}
}

// Observe subscribes to keys that are not observed yet.
func (w *Watcher) Observe(keys ...cache.Key) {
	for _, k := range keys {
		if _, ok := w.unsubs[k]; ok {
			continue
		}
		w.unsubs[k] = w.store.Subscribe(k, w.forward)
	}
}

// Forget unsubscribes from keys. The store drops entries nobody observes.
func (w *Watcher) Forget(keys ...cache.Key) {
	for _, k := range keys {
		if unsub, ok := w.unsubs[k]; ok {
			unsub()
			delete(w.unsubs, k)
		}
	}
}

// Observed reports whether key is subscribed.
func (w *Watcher) Observed(key cache.Key) bool {
	_, ok := w.unsubs[key]
	return ok
}

// Next blocks until an observed key changes. It yields nothing once the
// watcher is closed.
func (w *Watcher) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case k := <-w.changes:
			return CacheChangedMsg{Key: k}
		case <-w.done:
			return nil
		}
	}
}

// Close forgets every key and releases a pending Next.
func (w *Watcher) Close() {
	for k := range w.unsubs {
		w.Forget(k)
	}
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

func (w *Watcher) forward(k cache.Key) {
	select {
	case w.changes <- k:
	default: // A pending notification already triggers a redraw
	}
}
