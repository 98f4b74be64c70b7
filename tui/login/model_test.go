package login

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/app"
	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/infra/auth"
)

type stubAuth struct {
	app.AuthService
	registered domain.Registration
}

func (s *stubAuth) Login(_ context.Context, c domain.Credentials) (domain.Tokens, error) {
	if c.Password != "correct-horse" {
		return domain.Tokens{}, &domain.APIError{Method: "POST", Path: "/auth/login", Status: 401}
	}
	return domain.Tokens{Access: "a", Refresh: "r"}, nil
}

func (s *stubAuth) Register(_ context.Context, r domain.Registration) (domain.Tokens, error) {
	s.registered = r
	return domain.Tokens{Access: "a", Refresh: "r"}, nil
}

func newForm(t *testing.T) (Model, *stubAuth, *auth.MemoryTokenStore) {
	t.Helper()
	a := &stubAuth{}
	tokens := auth.NewMemoryTokenStore(domain.Tokens{})
	h := hooks.New(cache.NewStore(), hooks.Services{Auth: a, Tokens: tokens})
	return New(h.Session, "Session expired."), a, tokens
}

func typeText(m Model, s string) Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func enter(m Model) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
}

func TestLogin_WrongPasswordShowsError(t *testing.T) {
	m, _, tokens := newForm(t)
	m = typeText(m, "ada@example.com")
	m, _ = enter(m)
	m = typeText(m, "wrong-horse")
	m, cmd := enter(m)
	if cmd == nil || !m.busy {
		t.Fatalf("enter on the last field should submit")
	}
	m, next := m.Update(cmd())
	if next != nil {
		t.Fatalf("failed login should not continue")
	}
	if !strings.Contains(m.View(), "Wrong email or password.") {
		t.Fatalf("error not rendered:\n%s", m.View())
	}
	if tok, _ := tokens.Load(); !tok.Empty() {
		t.Fatalf("failed login stored tokens")
	}
}

func TestLogin_SuccessStoresTokens(t *testing.T) {
	m, _, tokens := newForm(t)
	m = typeText(m, "ada@example.com")
	m, _ = enter(m)
	m = typeText(m, "correct-horse")
	m, cmd := enter(m)
	_, next := m.Update(cmd())
	if next == nil {
		t.Fatalf("expected LoggedInMsg command")
	}
	if _, ok := next().(LoggedInMsg); !ok {
		t.Fatalf("expected LoggedInMsg")
	}
	if tok, _ := tokens.Load(); tok.Access != "a" {
		t.Fatalf("tokens not stored: %+v", tok)
	}
}

func TestRegister_CollectsAllFields(t *testing.T) {
	m, a, _ := newForm(t)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	if !strings.Contains(m.View(), "Create an account") {
		t.Fatalf("ctrl+r should switch to registration")
	}
	for i, v := range []string{"ada@example.com", "correct-horse", "Ada", "ada"} {
		m = typeText(m, v)
		var cmd tea.Cmd
		m, cmd = enter(m)
		if i == 3 {
			m.Update(cmd())
		}
	}
	if a.registered.Username != "ada" || a.registered.Name != "Ada" || a.registered.Email != "ada@example.com" {
		t.Fatalf("unexpected registration %+v", a.registered)
	}
}

func TestLogin_InvalidEmailRejectedLocally(t *testing.T) {
	m, _, _ := newForm(t)
	m = typeText(m, "not-an-email")
	m, _ = enter(m)
	m = typeText(m, "correct-horse")
	m, cmd := enter(m)
	m, _ = m.Update(cmd())
	if !strings.Contains(m.err, "email") {
		t.Fatalf("expected email validation error, got %q", m.err)
	}
	if m.busy {
		t.Fatalf("form should accept input again")
	}
}
