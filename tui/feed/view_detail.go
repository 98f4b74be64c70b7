package feed

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

func (m Model) renderDetailView() string {
	var b strings.Builder
	b.WriteString(common.AppTitleStyle.Render(domain.AppTitle))
	b.WriteString("\n\n")

	n, ok := m.openNote()
	if !ok {
		b.WriteString(fmt.Sprintf("  %s Loading note...\n", m.spinner.View()))
		b.WriteString(m.renderFooter())
		return b.String()
	}

	width := max(m.width-4, 20)
	body := lipgloss.NewStyle().Width(width).MarginLeft(2)

	head := common.TitleStyle.Render(n.Title) + "  " + common.AuthorStyle.Render(n.Author.DisplayName())
	if m.ownsNote(n) {
		head += common.OwnBadgeStyle.Render("(you)")
	}
	b.WriteString(body.Render(head) + "\n")
	b.WriteString(body.Render(common.TimestampStyle.Render(n.CreatedAt.Format("Mon Jan 02 2006 15:04"))) + "\n\n")
	b.WriteString(body.Render(common.ContentStyle.Render(common.PlainText(n.Content))) + "\n\n")
	b.WriteString(body.Render(m.renderCounts(n)) + "\n\n")

	thread := m.hooks.Comments.Thread(n.ID)
	switch {
	case !thread.HasData:
		b.WriteString(fmt.Sprintf("  %s Loading comments...\n", m.spinner.View()))
	case len(thread.Data) == 0:
		b.WriteString(body.Render(common.TimestampStyle.Render("No comments yet. Press c to add one.")) + "\n")
	default:
		for i, c := range thread.Data {
			marker := "  "
			if i == m.commentCursor {
				marker = "▸ "
			}
			line := common.AuthorStyle.Render(c.Author.DisplayName()) + " " + common.ContentStyle.Render(common.PlainText(c.Content))
			if c.IsTemp() {
				line += " " + common.PendingStyle.Render("sending…")
			}
			b.WriteString(body.Render(marker+common.Truncate(line, width-2)) + "\n")
		}
	}

	b.WriteString(m.renderFooter())
	return b.String()
}
