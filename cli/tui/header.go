package tui

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/malonaz/navi/cli/tui/styles"
)

// headerData is the data of the header template.
type headerData struct {
	Title         string
	ChatID        string
	UserName      string
	AssistantName string
	Shared        bool
	Path          string
}

func newHeaderTemplate(text string) (*template.Template, error) {
	tmpl, err := template.New("header").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parsing header template")
	}
	return tmpl, nil
}

func (m *Model) headerData() headerData {
	data := headerData{
		AssistantName: m.assistantName(),
		Path:          m.route.Path(),
	}
	if user, ok := m.sessions.User(); ok {
		data.UserName = user.Name
	}
	switch m.route.Kind {
	case RouteChat, RouteHome:
		if active := m.chats.Snapshot().Active; active != nil {
			data.Title = active.Title
			data.ChatID = active.ID
		}
	case RouteShared:
		data.Shared = true
		data.ChatID = m.route.ChatID
		if m.sharedChat != nil {
			data.Title = m.sharedChat.Chat.Title
		}
	}
	return data
}

// renderTitle renders the header bar.
func (m *Model) renderTitle() string {
	var b strings.Builder
	if err := m.header.Execute(&b, m.headerData()); err != nil {
		log.Error("rendering header", "error", err)
		b.Reset()
		b.WriteString(m.route.Path())
	}
	title := strings.ReplaceAll(b.String(), "\n", " ")

	left := " navi │ " + title + " "
	right := ""
	if user, ok := m.sessions.User(); ok && m.route.Kind != RouteLogin {
		right = " 👤 " + user.Name + " "
	}
	space := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if space < 0 {
		left = styles.Truncate(left, max(m.width-lipgloss.Width(right), 1))
		space = 0
	}
	return styles.TitleStyle.Render(left) +
		styles.StatusStyle.Render(strings.Repeat(" ", space)+right)
}
