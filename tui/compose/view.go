package compose

import (
	"fmt"
	"strings"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// View renders the compose view based on the active mode.
func (m Model) View() string {
	switch m.mode {
	case editorMode:
		return m.status + "\n"

	case inlineMode:
		var b strings.Builder
		b.WriteString(common.AppTitleStyle.Render(domain.AppTitle))
		b.WriteString("  " + m.kind.heading() + "\n\n")
		b.WriteString(m.textarea.View())
		b.WriteString("\n")
		b.WriteString(common.StatusBarStyle.Render(
			fmt.Sprintf("  ctrl+d: save • esc: cancel • %d/%d chars",
				len(m.textarea.Value()), m.kind.charLimit()),
		))
		return b.String()
	}

	return ""
}
