// Package hooks synchronizes the query cache with the notes API. Every
// mutating hook writes its expected outcome to the cache first, sends the
// request, then reconciles with the server result or restores the snapshot.
package hooks

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CrestNiraj12/terminalnotes/app"
	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/infra/auth"
)

// Services are the remote collaborators the hooks drive.
type Services struct {
	Auth         app.AuthService
	Notes        app.NoteService
	Profiles     app.ProfileService
	Follows      app.FollowService
	Interactions app.InteractionService
	Tokens       auth.TokenStore
}

// Hooks groups the synchronization hooks over one store.
type Hooks struct {
	Notes    *Notes
	Likes    *Likes
	Comments *Comments
	Views    *Views
	Follows  *Follows
	Profile  *Profile
	Session  *Session

	store *cache.Store
}

type base struct {
	store       *cache.Store
	svc         Services
	now         func() time.Time
	newID       func() string
	logger      *slog.Logger
	dedupeViews bool
}

// Option configures Hooks.
type Option func(*base)

// WithClock replaces time.Now for optimistic timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithIDs replaces the generator of temporary IDs.
func WithIDs(next func() string) Option {
	return func(b *base) { b.newID = next }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *base) { b.logger = l }
}

// WithViewDedupe records at most one view per note per session. Without it
// every Views.Record call reaches the server.
func WithViewDedupe() Option {
	return func(b *base) { b.dedupeViews = true }
}

// New wires hooks over store. The store's registry is expected to come from
// NewRegistry.
func New(store *cache.Store, svc Services, opts ...Option) *Hooks {
	b := &base{
		store:  store,
		svc:    svc,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	views := &Views{base: b, seen: make(map[string]bool)}
	return &Hooks{
		Notes:    &Notes{base: b},
		Likes:    &Likes{base: b},
		Comments: &Comments{base: b},
		Views:    views,
		Follows:  &Follows{base: b},
		Profile:  &Profile{base: b},
		Session:  &Session{base: b, views: views},
		store:    store,
	}
}

// Store returns the cache the hooks write to.
func (h *Hooks) Store() *cache.Store { return h.store }

func (b *base) tempID() string {
	return domain.TempIDPrefix + b.newID()
}

// viewer returns the cached own profile, if known.
func viewer(tx *cache.Tx) (domain.Profile, bool) {
	return cache.Get[domain.Profile](tx, KeyMe)
}

// findNote looks a note up in its detail view, then in every cached list.
func findNote(tx *cache.Tx, id string) (domain.Note, bool) {
	if n, ok := cache.Get[domain.Note](tx, NoteKey(id)); ok {
		return n, true
	}
	for _, k := range tx.Keys(KeyNoteList) {
		list, _ := cache.Get[[]domain.Note](tx, k)
		for _, n := range list {
			if n.ID == id {
				return n, true
			}
		}
	}
	return domain.Note{}, false
}

// editNote rewrites note id wherever it is cached.
func editNote(tx *cache.Tx, id string, fn func(domain.Note) domain.Note) {
	cache.Modify(tx, NoteKey(id), fn)
	for _, k := range tx.Keys(KeyNoteList) {
		list, ok := cache.Get[[]domain.Note](tx, k)
		if !ok || !containsNote(list, id) {
			continue
		}
		out := make([]domain.Note, len(list))
		for i, n := range list {
			if n.ID == id {
				n = fn(n)
			}
			out[i] = n
		}
		cache.Put(tx, k, out)
	}
}

// dropNote removes note id from every list and clears its detail view.
func dropNote(tx *cache.Tx, id string) {
	tx.Remove(NoteKey(id))
	for _, k := range tx.Keys(KeyNoteList) {
		list, ok := cache.Get[[]domain.Note](tx, k)
		if !ok || !containsNote(list, id) {
			continue
		}
		out := make([]domain.Note, 0, len(list)-1)
		for _, n := range list {
			if n.ID != id {
				out = append(out, n)
			}
		}
		cache.Put(tx, k, out)
	}
}

func containsNote(list []domain.Note, id string) bool {
	for _, n := range list {
		if n.ID == id {
			return true
		}
	}
	return false
}

// guardOwner refuses edits of a note known to belong to someone else.
func guardOwner(tx *cache.Tx, id string) error {
	me, ok := viewer(tx)
	if !ok {
		return nil
	}
	n, ok := findNote(tx, id)
	if !ok || n.ProfileID == "" {
		return nil
	}
	if !n.OwnedBy(me.ID) {
		return domain.ErrNotOwner
	}
	return nil
}
