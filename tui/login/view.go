package login

import (
	"strings"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// View renders the form.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(common.AppTitleStyle.Render(domain.AppTitle))
	if m.register {
		b.WriteString("  Create an account\n\n")
	} else {
		b.WriteString("  Log in\n\n")
	}
	if m.notice != "" {
		b.WriteString("  " + common.ConfirmStyle.Render(m.notice) + "\n\n")
	}

	labels := []string{"Email", "Password", "Name", "Username"}
	for i := 0; i < m.fields(); i++ {
		b.WriteString("  " + common.LabelStyle.Render(labels[i]) + m.inputs[i].View() + "\n")
	}

	if m.busy {
		b.WriteString("\n  Signing in...\n")
	}
	if m.err != "" {
		b.WriteString("\n  " + common.ErrorStyle.Render(m.err) + "\n")
	}

	mode := "ctrl+r: create an account"
	if m.register {
		mode = "ctrl+r: log in instead"
	}
	b.WriteString(common.StatusBarStyle.Render("  enter: next/submit • tab: switch field • " + mode + " • ctrl+c: quit"))
	return b.String()
}
