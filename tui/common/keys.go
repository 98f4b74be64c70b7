package common

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines shared key bindings across all views.
type KeyMap struct {
	Quit        key.Binding
	ForceQuit   key.Binding
	Refresh     key.Binding
	NewEditor   key.Binding // n: compose via $EDITOR
	NewInline   key.Binding // N: compose via inline textarea
	Edit        key.Binding // e: edit own note in $EDITOR
	EditInline  key.Binding // E: edit own note inline
	Delete      key.Binding
	Like        key.Binding
	Comment     key.Binding
	Share       key.Binding // s: toggle public
	Follow      key.Binding // f: follow the author
	NextSource  key.Binding
	Open        key.Binding
	Back        key.Binding
	Up          key.Binding
	Down        key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	ToggleHints key.Binding
	Logout      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		NewEditor: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new ($EDITOR)"),
		),
		NewInline: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "new (inline)"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit ($EDITOR)"),
		),
		EditInline: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "edit (inline)"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "like"),
		),
		Comment: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "comment"),
		),
		Share: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "public/private"),
		),
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "follow author"),
		),
		NextSource: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch feed"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "cancel"),
		),
		ToggleHints: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "hints"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "log out"),
		),
	}
}

// Hints renders the short help line for a set of bindings.
func Hints(bindings ...key.Binding) string {
	var out string
	for i, b := range bindings {
		if !b.Enabled() {
			continue
		}
		h := b.Help()
		if i > 0 && out != "" {
			out += " • "
		}
		out += h.Key + ": " + h.Desc
	}
	return out
}
