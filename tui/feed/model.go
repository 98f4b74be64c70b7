package feed

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// --- Sources ---

// Source selects which note list the feed shows.
type Source int

const (
	SourceMine Source = iota
	SourceExplore
	SourceShared
)

var sources = []Source{SourceMine, SourceExplore, SourceShared}

// String is the persisted name of the source.
func (s Source) String() string {
	switch s {
	case SourceExplore:
		return "explore"
	case SourceShared:
		return "shared"
	default:
		return "mine"
	}
}

// Label is the tab title of the source.
func (s Source) Label() string {
	switch s {
	case SourceExplore:
		return "Explore"
	case SourceShared:
		return "Shared with me"
	default:
		return "My notes"
	}
}

// Key is the cache key the source lists.
func (s Source) Key() cache.Key {
	switch s {
	case SourceExplore:
		return hooks.KeyExplore
	case SourceShared:
		return hooks.KeyShared
	default:
		return hooks.KeyMyNotes
	}
}

// ParseSource maps a persisted name back to a source. Unknown names
// fall back to SourceMine.
func ParseSource(name string) Source {
	for _, s := range sources {
		if s.String() == name {
			return s
		}
	}
	return SourceMine
}

func (s Source) next() Source {
	return sources[(int(s)+1)%len(sources)]
}

// --- Messages ---

// SourceChangedMsg asks the root to persist the selected source.
type SourceChangedMsg struct {
	Source Source
}

// EditNoteMsg asks the root to open the composer on an own note.
type EditNoteMsg struct {
	Note      domain.Note
	UseInline bool
}

// CommentMsg asks the root to open the composer for a comment.
type CommentMsg struct {
	NoteID    string
	UseInline bool
}

// deleteTarget is a note, or a comment on it, waiting for confirmation.
type deleteTarget struct {
	noteID    string
	commentID string
}

// queriedMsg reports that a query for key finished. The data itself lives
// in the cache.
type queriedMsg struct {
	key cache.Key
	err error
}

// --- Model ---

// Model holds the state for the feed view. Note data is read from the cache
// on every render so optimistic writes show up without bookkeeping here.
type Model struct {
	hooks   *hooks.Hooks
	keys    common.KeyMap
	watch   *common.Watcher
	spinner spinner.Model

	source Source
	cursor int
	start  int // First note rendered in the list window
	width  int
	height int
	err    error

	detailID      string // Open note; empty in the list view
	commentCursor int
	pending       deleteTarget // Awaiting confirmation when set
	showHints     bool
	status        string
}

// New creates a feed over h starting on src.
func New(h *hooks.Hooks, src Source) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#8AADF4"))

	m := Model{
		hooks:   h,
		keys:    common.DefaultKeyMap(),
		watch:   common.NewWatcher(h.Store()),
		spinner: s,
		source:  src,
		width:   80,
		height:  24,
	}
	m.watch.Observe(hooks.KeyMe, src.Key())
	return m
}

// Init starts the spinner, loads the profile and the source, and listens
// for cache changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.queryMe(),
		m.querySource(),
		m.watch.Next(),
	)
}

// Close releases the cache keys observed by the feed.
func (m Model) Close() {
	if m.watch != nil {
		m.watch.Close()
	}
}

// IsInDetailView reports whether a note is open.
func (m Model) IsInDetailView() bool {
	return m.detailID != ""
}

// IsConfirming reports whether a delete prompt is waiting for an answer.
func (m Model) IsConfirming() bool {
	return m.pending.noteID != ""
}

// Source returns the selected source.
func (m Model) Source() Source {
	return m.source
}

// Status returns the transient status line.
func (m Model) Status() string {
	return m.status
}

func (m Model) notes() cache.State[[]domain.Note] {
	return m.hooks.Notes.List(m.source.Key())
}

func (m Model) me() domain.Profile {
	return m.hooks.Profile.Current().Data
}

func (m Model) selected() (domain.Note, bool) {
	list := m.notes().Data
	if m.cursor < 0 || m.cursor >= len(list) {
		return domain.Note{}, false
	}
	return list[m.cursor], true
}

// openNote prefers the detail entry and falls back to the listed copy until
// the detail query lands.
func (m Model) openNote() (domain.Note, bool) {
	if st := m.hooks.Notes.Detail(m.detailID); st.HasData {
		return st.Data, true
	}
	for _, n := range m.notes().Data {
		if n.ID == m.detailID {
			return n, true
		}
	}
	return domain.Note{}, false
}

func (m Model) thread() []domain.Comment {
	return m.hooks.Comments.Thread(m.detailID).Data
}

func (m Model) selectedComment() (domain.Comment, bool) {
	if m.detailID == "" {
		return domain.Comment{}, false
	}
	thread := m.thread()
	if m.commentCursor < 0 || m.commentCursor >= len(thread) {
		return domain.Comment{}, false
	}
	return thread[m.commentCursor], true
}

func (m Model) ownsNote(n domain.Note) bool {
	return n.OwnedBy(m.me().ID)
}

func (m *Model) clampCursor() {
	n := len(m.notes().Data)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if c := len(m.thread()); m.commentCursor >= c {
		m.commentCursor = max(c-1, 0)
	}
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	visible := m.visibleCount()
	if m.cursor < m.start {
		m.start = m.cursor
	}
	if m.cursor >= m.start+visible {
		m.start = m.cursor - visible + 1
	}
	if m.start < 0 {
		m.start = 0
	}
}

// visibleCount is how many note boxes fit between the header and the
// status bar. Each box is 4 content lines plus its border.
func (m Model) visibleCount() int {
	const reserved, boxHeight = 9, 6
	return max((m.height-reserved)/boxHeight, 1)
}
