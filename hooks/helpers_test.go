package hooks

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CrestNiraj12/terminalnotes/app"
	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/infra/auth"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// gate holds a stubbed request until the test releases it.
type gate struct {
	entered chan struct{}
	release chan error
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 16), release: make(chan error, 16)}
}

func (g *gate) wait(ctx context.Context) error {
	g.entered <- struct{}{}
	select {
	case err := <-g.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gate) awaitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("request never started")
	}
}

type stubNotes struct {
	app.NoteService
	calls  atomic.Int32
	create func(context.Context, domain.NoteInput) (domain.Note, error)
	update func(context.Context, string, domain.NoteInput) (domain.Note, error)
	delete func(context.Context, string) error
	share  func(context.Context, string, domain.ShareInput) (domain.Note, error)
	mine   func(context.Context) ([]domain.Note, error)
}

func (s *stubNotes) Create(ctx context.Context, in domain.NoteInput) (domain.Note, error) {
	s.calls.Add(1)
	return s.create(ctx, in)
}

func (s *stubNotes) Update(ctx context.Context, id string, in domain.NoteInput) (domain.Note, error) {
	s.calls.Add(1)
	return s.update(ctx, id, in)
}

func (s *stubNotes) Delete(ctx context.Context, id string) error {
	s.calls.Add(1)
	return s.delete(ctx, id)
}

func (s *stubNotes) Share(ctx context.Context, id string, in domain.ShareInput) (domain.Note, error) {
	s.calls.Add(1)
	return s.share(ctx, id, in)
}

func (s *stubNotes) ListMine(ctx context.Context) ([]domain.Note, error) {
	s.calls.Add(1)
	return s.mine(ctx)
}

type stubInteractions struct {
	app.InteractionService
	calls         atomic.Int32
	toggleLike    func(context.Context, string) (domain.LikeState, error)
	createComment func(context.Context, string, domain.CommentInput) (domain.Comment, error)
	deleteComment func(context.Context, string, string) error
	recordView    func(context.Context, string) (domain.ViewState, error)
}

func (s *stubInteractions) ToggleLike(ctx context.Context, noteID string) (domain.LikeState, error) {
	s.calls.Add(1)
	return s.toggleLike(ctx, noteID)
}

func (s *stubInteractions) CreateComment(ctx context.Context, noteID string, in domain.CommentInput) (domain.Comment, error) {
	s.calls.Add(1)
	return s.createComment(ctx, noteID, in)
}

func (s *stubInteractions) DeleteComment(ctx context.Context, noteID, commentID string) error {
	s.calls.Add(1)
	return s.deleteComment(ctx, noteID, commentID)
}

func (s *stubInteractions) RecordView(ctx context.Context, noteID string) (domain.ViewState, error) {
	s.calls.Add(1)
	return s.recordView(ctx, noteID)
}

type stubFollows struct {
	app.FollowService
	toggle func(context.Context, string) (domain.FollowState, error)
}

func (s *stubFollows) Toggle(ctx context.Context, id string) (domain.FollowState, error) {
	return s.toggle(ctx, id)
}

type stubProfiles struct {
	app.ProfileService
	update func(context.Context, domain.ProfileInput) (domain.Profile, error)
	delete func(context.Context) error
}

func (s *stubProfiles) Update(ctx context.Context, in domain.ProfileInput) (domain.Profile, error) {
	return s.update(ctx, in)
}

func (s *stubProfiles) Delete(ctx context.Context) error { return s.delete(ctx) }

type stubAuth struct {
	app.AuthService
	login func(context.Context, domain.Credentials) (domain.Tokens, error)
}

func (s *stubAuth) Login(ctx context.Context, c domain.Credentials) (domain.Tokens, error) {
	return s.login(ctx, c)
}

type harness struct {
	store        *cache.Store
	hooks        *Hooks
	notes        *stubNotes
	interactions *stubInteractions
	follows      *stubFollows
	profiles     *stubProfiles
	auth         *stubAuth
	tokens       *auth.MemoryTokenStore
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store:        cache.NewStore(cache.WithRegistry(NewRegistry()), cache.WithClock(func() time.Time { return fixedNow })),
		notes:        &stubNotes{},
		interactions: &stubInteractions{},
		follows:      &stubFollows{},
		profiles:     &stubProfiles{},
		auth:         &stubAuth{},
		tokens:       auth.NewMemoryTokenStore(domain.Tokens{Access: "a1", Refresh: "r1"}),
	}
	var n atomic.Int32
	h.hooks = New(h.store, Services{
		Auth:         h.auth,
		Notes:        h.notes,
		Profiles:     h.profiles,
		Follows:      h.follows,
		Interactions: h.interactions,
		Tokens:       h.tokens,
	},
		append([]Option{
			WithClock(func() time.Time { return fixedNow }),
			WithIDs(func() string { return fmt.Sprintf("tmp%d", n.Add(1)) }),
		}, opts...)...,
	)
	return h
}

func me() domain.Profile {
	return domain.Profile{ID: "p1", Name: "Ada", Username: "ada", FollowingCount: 2}
}

func sampleNote(id, owner string, likes int, liked bool) domain.Note {
	return domain.Note{
		ID: id, Title: "title " + id, Content: "<p>body</p>", ProfileID: owner,
		Author:     domain.ProfileSummary{ID: owner},
		LikesCount: likes, Liked: liked, CommentsCount: 2, ViewsCount: 10,
	}
}

func wait[T any](t *testing.T, m *cache.Mutation[T]) (T, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, err := m.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "mutation did not settle")
	return v, err
}

func noteIn[T any](s *cache.Store, key cache.Key) T {
	return cache.Snapshot[T](s, key).Data
}

func findIn(list []domain.Note, id string) (domain.Note, bool) {
	for _, n := range list {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Note{}, false
}
