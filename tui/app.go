package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/infra/config"
	"github.com/CrestNiraj12/terminalnotes/infra/editor"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
	"github.com/CrestNiraj12/terminalnotes/tui/compose"
	"github.com/CrestNiraj12/terminalnotes/tui/feed"
	"github.com/CrestNiraj12/terminalnotes/tui/login"
)

// Deps holds all dependencies the TUI needs. Plain struct, not a DI container.
type Deps struct {
	Hooks       *hooks.Hooks
	Editor      *editor.EnvEditor
	UIStatePath string
	Logger      *slog.Logger
}

type activeView int

const (
	feedView activeView = iota
	composeView
	loginView
)

// Actions reported for composed text.
const (
	actionSave    = "Save"
	actionComment = "Comment"
)

// App is the root Bubble Tea model. It routes between sub-views.
type App struct {
	deps    Deps
	active  activeView
	feed    feed.Model
	compose compose.Model
	login   login.Model
	keys    common.KeyMap
	source  feed.Source
	status  string // Transient status message (e.g. "Note saved.")
}

// NewApp creates the root model with all dependencies wired. It starts on
// the login form when no session is stored.
func NewApp(deps Deps) App {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	st, err := config.LoadUIState(deps.UIStatePath)
	if err != nil {
		deps.Logger.Warn("ignoring ui state", "error", err)
	}
	a := App{
		deps:   deps,
		keys:   common.DefaultKeyMap(),
		source: feed.ParseSource(st.FeedSource),
	}
	if !deps.Hooks.Session.LoggedIn() {
		a.active = loginView
		a.login = login.New(deps.Hooks.Session, "")
		return a
	}
	a.feed = feed.New(deps.Hooks, a.source)
	return a
}

// Init delegates to the active sub-model.
func (a App) Init() tea.Cmd {
	if a.active == loginView {
		return a.login.Init()
	}
	return a.feed.Init()
}

// Update handles messages and routes to the active sub-model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, a.keys.ForceQuit) {
			return a, tea.Quit
		}
		if a.active == feedView && !a.feed.IsInDetailView() && !a.feed.IsConfirming() {
			switch {
			case key.Matches(msg, a.keys.Quit):
				return a, tea.Quit
			case key.Matches(msg, a.keys.NewEditor):
				return a.startCompose(compose.NewEditor(a.deps.Editor, compose.NewNote, "", ""))
			case key.Matches(msg, a.keys.NewInline):
				return a.startCompose(compose.NewInline(compose.NewNote, "", ""))
			case key.Matches(msg, a.keys.Logout):
				return a.logout()
			}
		}

	case tea.WindowSizeMsg:
		a.feed, _ = a.feed.Update(msg)
		if a.active != composeView {
			return a, nil
		}

	case common.ExpiredMsg:
		return a.toLogin("Session expired. Log in again.")

	case login.LoggedInMsg:
		a.active = feedView
		a.status = ""
		a.feed = feed.New(a.deps.Hooks, a.source)
		return a, a.feed.Init()

	case feed.SourceChangedMsg:
		a.source = msg.Source
		if err := config.SaveUIState(a.deps.UIStatePath, config.UIState{FeedSource: msg.Source.String()}); err != nil {
			a.deps.Logger.Warn("saving ui state", "error", err)
		}
		return a, nil

	case feed.EditNoteMsg:
		initial := editor.JoinNote(msg.Note.Title, msg.Note.Content)
		if msg.UseInline {
			return a.startCompose(compose.NewInline(compose.EditNote, msg.Note.ID, initial))
		}
		return a.startCompose(compose.NewEditor(a.deps.Editor, compose.EditNote, msg.Note.ID, initial))

	case feed.CommentMsg:
		if msg.UseInline {
			return a.startCompose(compose.NewInline(compose.NewComment, msg.NoteID, ""))
		}
		return a.startCompose(compose.NewEditor(a.deps.Editor, compose.NewComment, msg.NoteID, ""))

	case compose.DoneMsg:
		a.active = feedView
		return a.dispatch(msg)

	case common.SettledMsg:
		if a.active == loginView {
			var cmd tea.Cmd
			a.login, cmd = a.login.Update(msg)
			return a, cmd
		}
		switch {
		case msg.Action == actionSave && msg.Err == nil:
			a.status = "Note saved."
		case msg.Action == actionComment && msg.Err == nil:
			a.status = "Comment posted."
		case msg.Action == actionSave, msg.Action == actionComment:
			a.status = ""
		}
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		return a, cmd

	case spinner.TickMsg, common.CacheChangedMsg:
		if a.active == loginView {
			return a, nil
		}
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		return a, cmd
	}

	switch a.active {
	case feedView:
		var cmd tea.Cmd
		a.feed, cmd = a.feed.Update(msg)
		return a, cmd
	case composeView:
		var cmd tea.Cmd
		a.compose, cmd = a.compose.Update(msg)
		return a, cmd
	case loginView:
		var cmd tea.Cmd
		a.login, cmd = a.login.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) startCompose(m compose.Model) (tea.Model, tea.Cmd) {
	a.active = composeView
	a.status = ""
	a.compose = m
	return a, a.compose.Init()
}

// dispatch turns composed text into a mutation. The optimistic write lands
// before the feed renders again.
func (a App) dispatch(msg compose.DoneMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.status = "Error: " + msg.Err.Error()
		return a, nil
	}
	if msg.Cancelled() {
		a.status = "Cancelled."
		return a, nil
	}

	h, ctx := a.deps.Hooks, context.Background()
	switch msg.Kind {
	case compose.NewComment:
		a.status = "Sending..."
		return a, common.Await(actionComment, h.Comments.Add(ctx, msg.NoteID, domain.CommentInput{Content: msg.Content}))
	case compose.EditNote:
		a.status = "Saving..."
		in := domain.NoteInput{Title: msg.Title, Content: msg.Content}
		return a, common.Await(actionSave, h.Notes.Update(ctx, msg.NoteID, in))
	default:
		a.status = "Saving..."
		in := domain.NoteInput{Title: msg.Title, Content: msg.Content}
		return a, common.Await(actionSave, h.Notes.Create(ctx, in))
	}
}

func (a App) logout() (tea.Model, tea.Cmd) {
	if err := a.deps.Hooks.Session.Logout(context.Background()); err != nil {
		a.status = "Error: " + err.Error()
		return a, nil
	}
	return a.toLogin("Logged out.")
}

func (a App) toLogin(notice string) (tea.Model, tea.Cmd) {
	if a.active == loginView {
		return a, nil
	}
	a.feed.Close()
	a.active = loginView
	a.status = ""
	a.login = login.New(a.deps.Hooks.Session, notice)
	return a, a.login.Init()
}

// View renders the active sub-model.
func (a App) View() string {
	var s string
	switch a.active {
	case feedView:
		s = a.feed.View()
	case composeView:
		s = a.compose.View()
	case loginView:
		s = a.login.View()
	}
	if a.status != "" && a.active == feedView {
		s += "\n" + common.StatusBarStyle.Render(a.status)
	}
	return s
}
