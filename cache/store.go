// Package cache is the client-side query cache: a keyed store of server
// snapshots with staleness tracking, observer subscriptions, deduplicated
// fetches and an optimistic mutation protocol.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/CrestNiraj12/terminalnotes/infra/metrics"
)

// DefaultStaleTime is how long fetched data is served without refetching.
const DefaultStaleTime = 30 * time.Second

type entry struct {
	value     any
	hasValue  bool
	stale     bool
	fetchedAt time.Time
	loading   bool
	err       error
	version   uint64
	fetch     func(context.Context) (any, error)
}

type subscription struct {
	key Key
	fn  func(Key)
}

// Store holds cached query results. It is safe for concurrent use; every
// read, optimistic write, commit and rollback happens under one mutex.
type Store struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	observers map[Key]int
	subs      map[uint64]subscription
	nextSub   uint64

	staleTime time.Duration
	now       func() time.Time
	group     singleflight.Group
	registry  *Registry
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithStaleTime sets how long fetched data stays fresh. Zero disables expiry;
// entries then go stale only through invalidation.
func WithStaleTime(d time.Duration) Option {
	return func(s *Store) { s.staleTime = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithRegistry(r *Registry) Option {
	return func(s *Store) { s.registry = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:   make(map[Key]*entry),
		observers: make(map[Key]int),
		subs:      make(map[uint64]subscription),
		staleTime: DefaultStaleTime,
		now:       time.Now,
		registry:  NewRegistry(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the entity registry used at settle time.
func (s *Store) Registry() *Registry { return s.registry }

// State is the presentation view of one cached key.
type State[T any] struct {
	Data      T
	HasData   bool
	Loading   bool
	Err       error
	Stale     bool
	UpdatedAt time.Time
}

// Snapshot returns the current state of key without fetching.
func Snapshot[T any](s *Store, key Key) State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st State[T]
	e, ok := s.entries[key]
	if !ok {
		st.Stale = true
		return st
	}
	st.Loading = e.loading
	st.Err = e.err
	st.Stale = s.staleLocked(e)
	st.UpdatedAt = e.fetchedAt
	if v, ok := e.value.(T); ok && e.hasValue {
		st.Data = v
		st.HasData = true
	}
	return st
}

// Set writes v as fresh data for key.
func Set[T any](s *Store, key Key, v T) {
	s.mu.Lock()
	e := s.entryLocked(key)
	e.value, e.hasValue = v, true
	e.stale, e.err = false, nil
	e.fetchedAt = s.now()
	e.version++
	s.mu.Unlock()
	s.notify(key)
}

// Fetcher loads the server value for a key.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Query returns fresh cached data for key, or fetches it with fetch.
// Concurrent queries for the same key share one fetch.
func Query[T any](ctx context.Context, s *Store, key Key, fetch Fetcher[T]) (T, error) {
	var zero T
	erased := func(ctx context.Context) (any, error) { return fetch(ctx) }

	s.mu.Lock()
	e := s.entryLocked(key)
	e.fetch = erased
	if v, ok := e.value.(T); ok && e.hasValue && !s.staleLocked(e) {
		s.mu.Unlock()
		s.metrics.ObserveFetch("hit")
		return v, nil
	}
	s.mu.Unlock()

	v, err := s.load(ctx, key)
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache key %s holds %T", key, v)
	}
	return out, nil
}

// load runs the registered fetcher for key, deduplicated, and records the
// outcome. If the entry was written locally while the fetch was in flight
// the fetched value is dropped, the entry stays stale and the local value is
// returned.
func (s *Store) load(ctx context.Context, key Key) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.fetch == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("cache key %s has no fetcher", key)
	}
	fetch := e.fetch
	version := e.version
	e.loading = true
	s.mu.Unlock()
	s.notify(key)

	v, err, _ := s.group.Do(string(key), func() (any, error) {
		return fetch(ctx)
	})

	s.mu.Lock()
	cur, alive := s.entries[key]
	switch {
	case !alive || cur != e:
		// Dropped or cleared while loading.
	case err != nil:
		e.loading = false
		e.err = err
	case e.version != version:
		e.loading = false
		e.stale = true
		if e.hasValue {
			v = e.value
		}
	default:
		e.loading = false
		e.value, e.hasValue = v, true
		e.stale, e.err = false, nil
		e.fetchedAt = s.now()
		e.version++
	}
	s.mu.Unlock()
	s.notify(key)

	if err != nil {
		s.metrics.ObserveFetch("error")
		s.logger.Debug("cache fetch failed", "key", key, "error", err)
		return nil, err
	}
	s.metrics.ObserveFetch("fetched")
	return v, nil
}

// Invalidate marks every key under the given prefixes stale. Data stays
// readable; the next Query or Refocus refetches it. It returns the number of
// entries marked.
func (s *Store) Invalidate(prefixes ...Key) int {
	s.mu.Lock()
	var changed []Key
	for k, e := range s.entries {
		if matchesAny(k, prefixes) && !e.stale {
			e.stale = true
			changed = append(changed, k)
		}
	}
	s.mu.Unlock()
	s.notify(changed...)
	return len(changed)
}

// InvalidateRefs resolves refs through the registry and invalidates the
// resulting prefixes.
func (s *Store) InvalidateRefs(refs ...Ref) int {
	return s.Invalidate(s.registry.Resolve(refs...)...)
}

// Refetch reloads every key under the given prefixes that has a fetcher,
// stale or not.
func (s *Store) Refetch(ctx context.Context, prefixes ...Key) error {
	s.mu.Lock()
	var keys []Key
	for k, e := range s.entries {
		if e.fetch != nil && matchesAny(k, prefixes) {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()
	return s.loadAll(ctx, keys)
}

// Refocus reloads the observed keys whose data is stale, the way a screen
// regaining focus catches up with the server.
func (s *Store) Refocus(ctx context.Context) error {
	s.mu.Lock()
	var keys []Key
	for k, e := range s.entries {
		if e.fetch != nil && s.observers[k] > 0 && s.staleLocked(e) {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()
	return s.loadAll(ctx, keys)
}

func (s *Store) loadAll(ctx context.Context, keys []Key) error {
	slices.Sort(keys)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.load(ctx, k); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("refetching %s: %w", k, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Subscribe registers fn to be called after key changes and counts the
// caller as an observer of key. The returned function unsubscribes; when the
// last observer leaves, the entry is dropped.
func (s *Store) Subscribe(key Key, fn func(Key)) (unsubscribe func()) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = subscription{key: key, fn: fn}
	s.observers[key]++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			s.observers[key]--
			if s.observers[key] <= 0 {
				delete(s.observers, key)
				delete(s.entries, key)
			}
		})
	}
}

// Observers returns how many subscribers observe key.
func (s *Store) Observers(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observers[key]
}

// Keys lists the cached keys under prefix in order.
func (s *Store) Keys(prefix Key) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Key
	for k := range s.entries {
		if k.HasPrefix(prefix) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Clear drops every entry. Pending mutations that settle afterwards find
// their entries gone and leave the cache alone.
func (s *Store) Clear() {
	s.mu.Lock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.entries = make(map[Key]*entry)
	s.mu.Unlock()
	s.notify(keys...)
}

func (s *Store) entryLocked(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

func (s *Store) staleLocked(e *entry) bool {
	if e.stale || !e.hasValue {
		return true
	}
	return s.staleTime > 0 && s.now().Sub(e.fetchedAt) >= s.staleTime
}

// notify calls subscribers of keys. It must not be called with s.mu held.
func (s *Store) notify(keys ...Key) {
	if len(keys) == 0 {
		return
	}
	s.mu.Lock()
	var fns []func()
	for _, sub := range s.subs {
		if slices.Contains(keys, sub.key) {
			fn, k := sub.fn, sub.key
			fns = append(fns, func() { fn(k) })
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func matchesAny(k Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if k.HasPrefix(p) {
			return true
		}
	}
	return false
}
