package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/malonaz/navi/cli/tui/styles"
	"github.com/malonaz/navi/session"
)

const (
	loginFieldEmail = iota
	loginFieldPassword
)

type LoginKeyMap struct {
	NextField key.Binding
	Submit    key.Binding
	Register  key.Binding
}

var loginKeyMap = LoginKeyMap{
	NextField: key.NewBinding(
		key.WithKeys("tab", "shift+tab", "up", "down"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
	),
	Register: key.NewBinding(
		key.WithKeys("ctrl+r"),
	),
}

// loginForm is the email and password form of the login screen.
type loginForm struct {
	email      textinput.Model
	password   textinput.Model
	field      int
	err        string
	submitting bool
}

func newLoginForm() loginForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = ""
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "••••••••"
	password.Prompt = ""
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return loginForm{email: email, password: password}
}

func (f *loginForm) reset() {
	f.password.SetValue("")
	f.field = loginFieldEmail
	f.err = ""
	f.submitting = false
}

// focus focuses the current field.
func (f *loginForm) focus() tea.Cmd {
	if f.field == loginFieldEmail {
		f.password.Blur()
		return f.email.Focus()
	}
	f.email.Blur()
	return f.password.Focus()
}

func (m *Model) updateLogin(msg tea.KeyMsg) tea.Cmd {
	f := &m.login
	if f.submitting {
		return nil
	}
	switch {
	case key.Matches(msg, loginKeyMap.Register):
		return m.navigate(Route{Kind: RouteRegister})

	case key.Matches(msg, loginKeyMap.NextField):
		f.field = (f.field + 1) % 2
		return f.focus()

	case key.Matches(msg, loginKeyMap.Submit):
		if f.field == loginFieldEmail && f.password.Value() == "" {
			f.field = loginFieldPassword
			return f.focus()
		}
		f.err = ""
		f.submitting = true
		return m.logIn(strings.TrimSpace(f.email.Value()), f.password.Value())
	}

	var cmd tea.Cmd
	if f.field == loginFieldEmail {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

func (m *Model) handleLoggedIn(msg loggedInMsg) tea.Cmd {
	m.login.submitting = false
	if msg.err != nil {
		if errors.Is(msg.err, session.ErrMissingCredentials) {
			m.login.err = "Please enter your email and password"
		} else {
			m.login.err = m.sessions.Error()
		}
		m.login.password.SetValue("")
		return nil
	}

	target := Route{Kind: RouteHome}
	if m.afterLogin != nil {
		target = *m.afterLogin
		m.afterLogin = nil
	}
	return tea.Batch(
		m.notify("Login successful! Welcome back!"),
		m.listChats(),
		m.navigate(target),
	)
}

func (m *Model) renderLogin() string {
	f := &m.login
	label := func(text string, field int) string {
		if f.field == field {
			return styles.FocusedLabelStyle.Render(text)
		}
		return styles.LabelStyle.Render(text)
	}

	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render("Welcome back"))
	b.WriteString("\n")
	b.WriteString(label("Email", loginFieldEmail))
	b.WriteString("\n")
	b.WriteString(f.email.View())
	b.WriteString("\n\n")
	b.WriteString(label("Password", loginFieldPassword))
	b.WriteString("\n")
	b.WriteString(f.password.View())
	b.WriteString("\n\n")
	switch {
	case f.submitting:
		b.WriteString(m.spinner.View() + " Signing in...")
	case f.err != "":
		b.WriteString(styles.ErrorStyle.Render(f.err))
	default:
		b.WriteString(styles.HelpStyle.Render("Enter to sign in · Tab to switch field"))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("No account yet? Ctrl+R to register"))

	form := styles.LoginFormStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, form)
}

func (m *Model) renderRegister() string {
	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render("Create an account"))
	b.WriteString("\n")
	b.WriteString("Accounts are created on the web client:\n\n")
	b.WriteString(styles.LinkStyle.Render(strings.TrimSuffix(m.config.WebBaseURL, "/") + "/register"))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpStyle.Render("Enter or Esc to go back to login"))

	panel := styles.ModalStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, panel)
}
