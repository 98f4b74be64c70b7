package feed

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/cache"
	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// Update handles messages for the feed.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case common.CacheChangedMsg:
		m.clampCursor()
		return m, tea.Batch(m.watch.Next(), m.catchUp(msg.Key))

	case queriedMsg:
		if msg.err != nil {
			if hooks.IsExpired(msg.err) {
				return m, expired
			}
			if msg.key == m.source.Key() {
				m.err = msg.err
			}
			return m, nil
		}
		if msg.key == m.source.Key() {
			m.err = nil
		}
		m.clampCursor()
		return m, nil

	case common.SettledMsg:
		return m.handleSettled(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// catchUp refetches once an observed key has been invalidated. Keys whose
// last fetch failed wait for a manual refresh.
func (m Model) catchUp(k cache.Key) tea.Cmd {
	if !m.watch.Observed(k) {
		return nil
	}
	st := cache.Snapshot[any](m.hooks.Store(), k)
	if !st.Stale || st.Loading || st.Err != nil {
		return nil
	}
	return m.refocus()
}

func (m Model) handleSettled(msg common.SettledMsg) (Model, tea.Cmd) {
	m.clampCursor()
	if msg.Err == nil {
		switch msg.Action {
		case actionView:
		case actionDelete:
			m.status = "Note deleted."
		case actionDeleteComment:
			m.status = "Comment deleted."
		case actionShare:
			m.status = "Audience updated."
		default:
			m.status = ""
		}
		return m, nil
	}
	if hooks.IsExpired(msg.Err) {
		return m, expired
	}
	if msg.Action == actionView {
		return m, nil
	}
	m.status = common.DescribeError(msg.Action, msg.Err)
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.IsConfirming() {
		return m.handleConfirmKey(msg)
	}
	if key.Matches(msg, m.keys.ToggleHints) {
		m.showHints = !m.showHints
		return m, nil
	}
	if key.Matches(msg, m.keys.Refresh) {
		m.status = "Refreshing..."
		return m, m.refresh()
	}
	if m.detailID != "" {
		return m.handleDetailKey(msg)
	}
	return m.handleListKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureCursorVisible()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.notes().Data)-1 {
			m.cursor++
		}
		m.ensureCursorVisible()
		return m, nil

	case key.Matches(msg, m.keys.NextSource):
		return m.switchSource(m.source.next())

	case key.Matches(msg, m.keys.Open):
		n, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m.open(n.ID)
	}

	n, ok := m.selected()
	if !ok {
		return m, nil
	}
	return m.handleNoteKey(msg, n.ID)
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.close()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.commentCursor > 0 {
			m.commentCursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.commentCursor < len(m.thread())-1 {
			m.commentCursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Comment):
		id := m.detailID
		return m, func() tea.Msg { return CommentMsg{NoteID: id, UseInline: true} }
	}
	return m.handleNoteKey(msg, m.detailID)
}

// handleNoteKey runs the actions shared by the list and the detail view on
// the note with id.
func (m Model) handleNoteKey(msg tea.KeyMsg, id string) (Model, tea.Cmd) {
	n, ok := m.findNote(id)
	if !ok {
		return m, nil
	}
	own := m.ownsNote(n)

	switch {
	case key.Matches(msg, m.keys.Like):
		return m, m.toggleLike(n)

	case key.Matches(msg, m.keys.Delete):
		if c, ok := m.selectedComment(); ok && c.ProfileID == m.me().ID && !c.IsTemp() {
			m.pending = deleteTarget{noteID: n.ID, commentID: c.ID}
			return m, nil
		}
		if !own || n.IsTemp() {
			m.status = "Only your own saved notes can be deleted."
			return m, nil
		}
		m.pending = deleteTarget{noteID: n.ID}
		return m, nil

	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.EditInline):
		if !own || n.IsTemp() {
			m.status = "Only your own saved notes can be edited."
			return m, nil
		}
		inline := key.Matches(msg, m.keys.EditInline)
		return m, func() tea.Msg { return EditNoteMsg{Note: n, UseInline: inline} }

	case key.Matches(msg, m.keys.Share):
		if !own || n.IsTemp() {
			return m, nil
		}
		return m, m.togglePublic(n)

	case key.Matches(msg, m.keys.Follow):
		if own || n.ProfileID == "" {
			return m, nil
		}
		return m, m.toggleFollow(n.ProfileID)
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	target := m.pending
	m.pending = deleteTarget{}
	if !key.Matches(msg, m.keys.Confirm) {
		m.status = "Cancelled."
		return m, nil
	}
	if target.commentID != "" {
		return m, m.deleteComment(target.noteID, target.commentID)
	}
	n, ok := m.findNote(target.noteID)
	if !ok {
		return m, nil
	}
	m.close()
	return m, m.deleteNote(n)
}

func (m Model) switchSource(src Source) (Model, tea.Cmd) {
	m.watch.Forget(m.source.Key())
	m.source = src
	m.cursor, m.start, m.err = 0, 0, nil
	m.status = "Feed: " + src.Label()
	m.watch.Observe(src.Key())
	return m, tea.Batch(m.querySource(), func() tea.Msg { return SourceChangedMsg{Source: src} })
}

func (m Model) open(id string) (Model, tea.Cmd) {
	m.detailID = id
	m.commentCursor = 0
	m.status = ""
	m.watch.Observe(hooks.NoteKey(id), hooks.CommentsKey(id))
	return m, tea.Batch(m.queryDetail(id), m.recordView(id))
}

func (m *Model) close() {
	if m.detailID == "" {
		return
	}
	m.watch.Forget(hooks.NoteKey(m.detailID), hooks.CommentsKey(m.detailID))
	m.detailID = ""
	m.commentCursor = 0
	m.clampCursor()
}

func (m Model) findNote(id string) (domain.Note, bool) {
	if id == m.detailID {
		return m.openNote()
	}
	for _, n := range m.notes().Data {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Note{}, false
}
