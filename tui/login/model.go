package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/CrestNiraj12/terminalnotes/domain"
	"github.com/CrestNiraj12/terminalnotes/hooks"
	"github.com/CrestNiraj12/terminalnotes/tui/common"
)

// LoggedInMsg is sent once tokens are stored for a new session.
type LoggedInMsg struct{}

const (
	actionLogin    = "Login"
	actionRegister = "Register"
)

const (
	fieldEmail = iota
	fieldPassword
	fieldName
	fieldUsername
)

// Model is the login and registration form.
type Model struct {
	session  *hooks.Session
	inputs   []textinput.Model
	focus    int
	register bool
	busy     bool
	notice   string
	err      string
	toggle   key.Binding
}

// New creates the form. notice explains why it is shown, if anything.
func New(session *hooks.Session, notice string) Model {
	labels := []string{"you@example.com", "password", "Your Name", "username"}
	inputs := make([]textinput.Model, len(labels))
	for i, placeholder := range labels {
		in := textinput.New()
		in.Placeholder = placeholder
		in.CharLimit = 120
		in.Width = 40
		inputs[i] = in
	}
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'
	inputs[fieldEmail].Focus()

	return Model{
		session: session,
		inputs:  inputs,
		notice:  notice,
		toggle:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "register")),
	}
}

// Init blinks the cursor.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) fields() int {
	if m.register {
		return len(m.inputs)
	}
	return fieldPassword + 1
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case common.SettledMsg:
		if msg.Action != actionLogin && msg.Action != actionRegister {
			return m, nil
		}
		m.busy = false
		if msg.Err != nil {
			m.err = describe(msg.Action, msg.Err)
			return m, nil
		}
		return m, func() tea.Msg { return LoggedInMsg{} }

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.toggle):
			m.register = !m.register
			m.err = ""
			return m, m.setFocus(fieldEmail)
		case msg.Type == tea.KeyTab, msg.Type == tea.KeyDown:
			return m, m.setFocus((m.focus + 1) % m.fields())
		case msg.Type == tea.KeyShiftTab, msg.Type == tea.KeyUp:
			return m, m.setFocus((m.focus - 1 + m.fields()) % m.fields())
		case msg.Type == tea.KeyEnter:
			if m.focus < m.fields()-1 {
				return m, m.setFocus(m.focus + 1)
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) setFocus(i int) tea.Cmd {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	return m.inputs[i].Focus()
}

func (m Model) value(i int) string {
	return strings.TrimSpace(m.inputs[i].Value())
}

func (m Model) submit() (Model, tea.Cmd) {
	m.busy = true
	m.err = ""
	creds := domain.Credentials{Email: m.value(fieldEmail), Password: m.inputs[fieldPassword].Value()}
	if !m.register {
		return m, common.Await(actionLogin, m.session.Login(context.Background(), creds))
	}
	reg := domain.Registration{Credentials: creds, Name: m.value(fieldName), Username: m.value(fieldUsername)}
	return m, common.Await(actionRegister, m.session.Register(context.Background(), reg))
}

func describe(action string, err error) string {
	if domain.KindOf(err) == domain.KindAuth {
		return "Wrong email or password."
	}
	return common.DescribeError(action, err)
}
