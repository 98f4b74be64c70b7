package feed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// View renders the feed as a string.
func (m Model) View() string {
	if m.detailID != "" {
		return m.renderDetailView()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())

	st := m.notes()
	switch {
	case !st.HasData && (st.Loading || m.err == nil):
		b.WriteString(fmt.Sprintf("  %s Loading notes...\n", m.spinner.View()))
	case !st.HasData && m.err != nil:
		b.WriteString(common.ErrorStyle.Render("  " + common.DescribeError("Loading", m.err)))
		b.WriteString("\n\n  Press r to retry.\n")
	case len(st.Data) == 0:
		b.WriteString("  Nothing here yet. Press n to write a note.\n")
	default:
		end := min(m.start+m.visibleCount(), len(st.Data))
		for i := m.start; i < end; i++ {
			b.WriteString(m.renderNoteBox(st.Data[i], i == m.cursor))
			b.WriteString("\n")
		}
		if st.Loading {
			b.WriteString(fmt.Sprintf("  %s syncing\n", m.spinner.View()))
		}
	}

	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := common.AppTitleStyle.Render(domain.AppTitle)
	tagline := common.TaglineStyle.Render("<notes without leaving the terminal>")
	if me := m.me(); me.Username != "" {
		tagline += common.TimestampStyle.Render("  @" + me.Username)
	}

	tabs := make([]string, 0, len(sources))
	for _, s := range sources {
		style := common.TabStyle
		if s == m.source {
			style = common.ActiveTabStyle
		}
		tabs = append(tabs, style.Render(s.Label()))
	}
	return title + tagline + "\n" + lipgloss.NewStyle().Margin(0, 0, 1, 1).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...)) + "\n"
}

func (m Model) renderNoteBox(n domain.Note, selected bool) string {
	inner := max(m.width-6, 20)

	head := common.TitleStyle.Render(common.Truncate(n.Title, inner/2))
	head += "  " + common.AuthorStyle.Render(n.Author.DisplayName())
	if m.ownsNote(n) {
		head += common.OwnBadgeStyle.Render("(you)")
	}
	if n.IsTemp() {
		head += " " + common.PendingStyle.Render("saving…")
	}

	lines := []string{
		common.Truncate(head, inner),
		common.ContentStyle.Render(common.Preview(n.Content, inner)),
		m.renderCounts(n),
	}

	style := common.UnselectedStyle
	if selected {
		style = common.SelectedStyle
	}
	return style.Width(inner).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCounts(n domain.Note) string {
	like := fmt.Sprintf("♡ %d", n.LikesCount)
	if n.Liked {
		like = common.LikedStyle.Render(fmt.Sprintf("♥ %d", n.LikesCount))
	} else {
		like = common.CountsStyle.Render(like)
	}
	rest := fmt.Sprintf("  💬 %d  👁 %d  %s", n.CommentsCount, n.ViewsCount, n.CreatedAt.Format("Jan 02 15:04"))
	if m.ownsNote(n) {
		if n.Public {
			rest += "  public"
		} else if len(n.SharedWith) > 0 {
			rest += fmt.Sprintf("  shared with %d", len(n.SharedWith))
		} else {
			rest += "  private"
		}
	}
	return like + common.CountsStyle.Render(rest)
}

func (m Model) renderFooter() string {
	var parts []string
	if m.IsConfirming() {
		what := "this note"
		if m.pending.commentID != "" {
			what = "this comment"
		}
		parts = append(parts, common.ConfirmStyle.Render("Delete "+what+"? (y/n)"))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	if m.showHints {
		parts = append(parts, m.hints())
	} else {
		parts = append(parts, common.Hints(m.keys.ToggleHints, m.keys.Quit))
	}
	return common.StatusBarStyle.Render(strings.Join(parts, "\n"))
}

func (m Model) hints() string {
	k := m.keys
	if m.detailID != "" {
		return common.Hints(k.Back, k.Like, k.Comment, k.Edit, k.Delete, k.Follow, k.Refresh)
	}
	return common.Hints(k.Up, k.Down, k.Open, k.NextSource, k.NewEditor, k.NewInline, k.Like, k.Edit, k.Share, k.Delete, k.Refresh, k.Logout)
}
