package feed

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/app"
	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/infra/auth"
)

type stubNotes struct {
	app.NoteService
	deleteErr chan error
}

func (s *stubNotes) ListMine(context.Context) ([]domain.Note, error)     { return nil, nil }
func (s *stubNotes) Explore(context.Context) ([]domain.Note, error)      { return nil, nil }
func (s *stubNotes) SharedWithMe(context.Context) ([]domain.Note, error) { return nil, nil }
func (s *stubNotes) Get(_ context.Context, id string) (domain.Note, error) {
	return makeNote(id, "p2", 3, false), nil
}
func (s *stubNotes) Delete(ctx context.Context, _ string) error { return <-s.deleteErr }

type stubInteractions struct {
	app.InteractionService
	like  chan error
	views atomic.Int32
}

func (s *stubInteractions) ToggleLike(_ context.Context, id string) (domain.LikeState, error) {
	return domain.LikeState{NoteID: id, Liked: true, LikesCount: 4}, <-s.like
}
func (s *stubInteractions) ListComments(context.Context, string) ([]domain.Comment, error) {
	return nil, nil
}
func (s *stubInteractions) RecordView(_ context.Context, id string) (domain.ViewState, error) {
	s.views.Add(1)
	return domain.ViewState{NoteID: id, ViewsCount: 11}, nil
}

type stubProfiles struct{ app.ProfileService }

func (stubProfiles) Me(context.Context) (domain.Profile, error) { return me(), nil }

type fixture struct {
	hooks        *hooks.Hooks
	store        *cache.Store
	notes        *stubNotes
	interactions *stubInteractions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:        cache.NewStore(cache.WithRegistry(hooks.NewRegistry())),
		notes:        &stubNotes{deleteErr: make(chan error, 1)},
		interactions: &stubInteractions{like: make(chan error, 1)},
	}
	f.hooks = hooks.New(f.store, hooks.Services{
		Notes:        f.notes,
		Profiles:     stubProfiles{},
		Interactions: f.interactions,
		Tokens:       auth.NewMemoryTokenStore(domain.Tokens{Access: "a", Refresh: "r"}),
	}, hooks.WithViewDedupe())
	cache.Set(f.store, hooks.KeyMe, me())
	return f
}

func me() domain.Profile {
	return domain.Profile{ID: "p1", Name: "Ada", Username: "ada"}
}

func makeNote(id, owner string, likes int, liked bool) domain.Note {
	return domain.Note{
		ID:         id,
		Title:      "Title " + id,
		Content:    "<p>body of " + id + "</p>",
		ProfileID:  owner,
		Author:     domain.ProfileSummary{ID: owner, Username: "user" + owner},
		LikesCount: likes,
		Liked:      liked,
		CreatedAt:  time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
	}
}

func press(m Model, keys string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch keys {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	return m.Update(msg)
}

// drain runs cmd and every command batched inside it, returning the
// resulting messages.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}
