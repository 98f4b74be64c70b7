package compose

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func run(t *testing.T, m Model, msg tea.Msg) DoneMsg {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatalf("expected a command for %v", msg)
	}
	out, ok := cmd().(DoneMsg)
	if !ok {
		t.Fatalf("expected DoneMsg, got %T", cmd())
	}
	return out
}

func TestInline_SubmitSplitsTitleAndContent(t *testing.T) {
	m := NewInline(NewNote, "", "")
	m.textarea.SetValue("Groceries\n\nmilk\neggs")
	got := run(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if got.Title != "Groceries" || got.Content != "milk\neggs" {
		t.Fatalf("unexpected split: %+v", got)
	}
	if got.Cancelled() {
		t.Fatalf("submit with text should not cancel")
	}
}

func TestInline_UnchangedEditCancels(t *testing.T) {
	m := NewInline(EditNote, "n1", "Title\n\nbody")
	got := run(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if !got.Cancelled() || got.NoteID != "n1" || got.Kind != EditNote {
		t.Fatalf("unchanged edit should cancel: %+v", got)
	}
}

func TestInline_EscCancels(t *testing.T) {
	m := NewInline(NewNote, "", "")
	m.textarea.SetValue("draft")
	if got := run(t, m, tea.KeyMsg{Type: tea.KeyEsc}); !got.Cancelled() {
		t.Fatalf("esc should cancel: %+v", got)
	}
}

func TestInline_CommentKeepsWholeText(t *testing.T) {
	m := NewInline(NewComment, "n1", "")
	m.textarea.SetValue("first line\nsecond line")
	got := run(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if got.Title != "" || got.Content != "first line\nsecond line" || got.NoteID != "n1" {
		t.Fatalf("unexpected comment result: %+v", got)
	}
}

func TestEditor_FailureReported(t *testing.T) {
	m := NewEditor(nil, NewNote, "", "")
	got := run(t, m, editorFinishedMsg{err: errTest})
	if got.Err == nil {
		t.Fatalf("expected editor error to be reported")
	}
}

var errTest = testError("exit status 1")

type testError string

func (e testError) Error() string { return string(e) }
