package compose

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/infra/editor"
)

// --- Mode ---

type mode int

const (
	editorMode mode = iota
	inlineMode
)

// Kind is what the composed text becomes.
type Kind int

const (
	NewNote Kind = iota
	EditNote
	NewComment
)

func (k Kind) heading() string {
	switch k {
	case EditNote:
		return "Edit Note"
	case NewComment:
		return "New Comment"
	default:
		return "New Note"
	}
}

func (k Kind) charLimit() int {
	if k == NewComment {
		return 2000
	}
	return 20000
}

// --- Messages ---

// DoneMsg is sent when composing is complete (success or cancel).
type DoneMsg struct {
	Kind    Kind
	NoteID  string // Note being edited or commented on
	Title   string // Empty for comments
	Content string
	Err     error
}

// Cancelled reports whether the user left without producing text.
func (d DoneMsg) Cancelled() bool {
	return d.Err == nil && d.Title == "" && d.Content == ""
}

// editorFinishedMsg is sent after the external editor exits.
type editorFinishedMsg struct {
	tmpPath string
	err     error
}

// --- Model ---

// Model holds the state for the compose view.
type Model struct {
	mode     mode
	kind     Kind
	editor   *editor.EnvEditor
	status   string
	textarea textarea.Model // Only used in inline mode
	noteID   string
	initial  string // Text the session started from
}

// NewEditor creates a compose model that opens $EDITOR via tea.Exec.
// initial is the joined title and content when editing.
func NewEditor(ed *editor.EnvEditor, k Kind, noteID, initial string) Model {
	return Model{
		mode:    editorMode,
		kind:    k,
		editor:  ed,
		status:  "Opening editor...",
		noteID:  noteID,
		initial: initial,
	}
}

// NewInline creates a compose model with an inline Bubble Tea textarea.
func NewInline(k Kind, noteID, initial string) Model {
	ta := textarea.New()
	switch k {
	case NewComment:
		ta.Placeholder = "Say something nice..."
	default:
		ta.Placeholder = "Title on the first line, then the note..."
	}
	ta.CharLimit = k.charLimit()
	ta.SetWidth(72)
	ta.SetHeight(8)
	ta.SetValue(initial)
	ta.Focus()

	return Model{
		mode:     inlineMode,
		kind:     k,
		textarea: ta,
		noteID:   noteID,
		initial:  initial,
	}
}

// Init returns the initial command for the active mode.
func (m Model) Init() tea.Cmd {
	switch m.mode {
	case editorMode:
		return m.launchEditor()
	case inlineMode:
		return textarea.Blink
	}
	return nil
}

// launchEditor prepares the editor command and uses tea.Exec to
// suspend Bubble Tea's raw terminal mode while the editor runs.
func (m Model) launchEditor() tea.Cmd {
	cmd, tmpPath, err := m.editor.Cmd(m.initial)
	if err != nil {
		return done(DoneMsg{Kind: m.kind, NoteID: m.noteID, Err: fmt.Errorf("preparing editor: %w", err)})
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{tmpPath: tmpPath, err: err}
	})
}

// Update handles messages for the compose view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {

	case editorFinishedMsg:
		if msg.err != nil {
			return m, done(DoneMsg{Kind: m.kind, NoteID: m.noteID, Err: fmt.Errorf("editor: %w", msg.err)})
		}
		content, err := m.editor.ReadContent(msg.tmpPath)
		if err != nil {
			return m, done(DoneMsg{Kind: m.kind, NoteID: m.noteID, Err: err})
		}
		return m, done(m.result(content))

	case tea.KeyMsg:
		if m.mode != inlineMode {
			break
		}
		switch msg.String() {
		case "esc":
			return m, done(DoneMsg{Kind: m.kind, NoteID: m.noteID})
		case "ctrl+d":
			return m, done(m.result(m.textarea.Value()))
		}
	}

	if m.mode == inlineMode {
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd
	}
	return m, nil
}

// result builds the DoneMsg for text. Empty or unchanged text cancels.
func (m Model) result(text string) DoneMsg {
	out := DoneMsg{Kind: m.kind, NoteID: m.noteID}
	text = strings.TrimSpace(text)
	if text == "" || text == strings.TrimSpace(m.initial) {
		return out
	}
	if m.kind == NewComment {
		out.Content = text
		return out
	}
	out.Title, out.Content = editor.SplitNote(text)
	return out
}

// done wraps a DoneMsg into a tea.Cmd for immediate delivery.
func done(msg DoneMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}
