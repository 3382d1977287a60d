package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/malonaz/navi/chat"
	"github.com/malonaz/navi/cli/tui/styles"
)

const (
	readOnlyNotice = "This is a shared chat. You can view the conversation but cannot send messages."
	goHomeAction   = "Go to Home"
)

// View renders the model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch {
	case m.loading:
		body = lipgloss.Place(m.width, m.height-headerHeight, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading...")
	case m.modal != nil:
		body = m.renderModal()
	case m.route.Kind == RouteLogin:
		body = m.renderLogin()
	case m.route.Kind == RouteRegister:
		body = m.renderRegister()
	case m.route.Kind == RouteShared:
		body = m.renderSharedView()
	default:
		body = m.renderChatView()
	}
	return m.alert.Render(m.renderTitle() + "\n" + body)
}

func (m *Model) renderChatView() string {
	state := m.chats.Snapshot()

	var status string
	switch {
	case state.AwaitingReply:
		status = fmt.Sprintf("%s %s is typing...", m.spinner.View(), m.assistantName())
	case state.CreatingChat:
		status = m.spinner.View() + " Creating chat..."
	case m.channel == nil && m.connecting:
		status = m.spinner.View() + " Connecting..."
	case m.channel == nil:
		status = styles.ErrorStyle.Render("Disconnected from the assistant")
	case m.focusedComponent == FocusSidebar:
		status = styles.HelpStyle.Render("↑/↓ select · Enter open · r rename · d delete · s share · Esc back")
	default:
		status = styles.HelpStyle.Render("Tab chats · Alt+C new chat · Alt+A assistant · Alt+L log out · Ctrl+C quit")
	}

	inputStyle := styles.TextAreaStyle
	if m.focusedComponent != FocusTextarea {
		inputStyle = styles.TextAreaBlurredStyle
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		styles.ViewportStyle.Render(m.viewport.View()),
		lipgloss.NewStyle().MaxWidth(m.mainWidth()).Render(status),
		inputStyle.Render(m.textarea.View()),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(state), main)
}

func (m *Model) renderSidebar(state chat.State) string {
	style := styles.SidebarStyle
	if m.focusedComponent == FocusSidebar {
		style = styles.SidebarFocusedStyle
	}
	width := m.sidebarWidth() - style.GetHorizontalFrameSize()
	height := m.height - headerHeight - style.GetVerticalFrameSize()

	var lines []string
	lines = append(lines, styles.SidebarTitleStyle.Render("Chats"))
	if state.CreatingChat {
		lines = append(lines, styles.DimTextStyle.Render(" "+m.spinner.View()+" Creating..."))
	}
	if len(state.Chats) == 0 && !state.Loading {
		lines = append(lines, styles.DimTextStyle.Render(" No chats yet"))
	}

	// Footer: the user and the assistant.
	footer := []string{styles.Divider(width)}
	if user, ok := m.sessions.User(); ok {
		footer = append(footer, styles.UserLabelStyle.Render(styles.Truncate(user.Name, width)))
	}
	footer = append(footer, styles.AILabelStyle.Render(styles.Truncate("✦ "+m.assistantName(), width)))

	// Keep the cursor in view.
	available := height - len(lines) - len(footer) - 1
	if available < 1 {
		available = 1
	}
	start := 0
	if m.sidebarCursor >= available {
		start = m.sidebarCursor - available + 1
	}
	end := min(start+available, len(state.Chats))

	for i := start; i < end; i++ {
		c := state.Chats[i]
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		title = styles.Truncate(title, width-1)
		itemStyle := styles.ChatItemStyle
		switch {
		case m.focusedComponent == FocusSidebar && i == m.sidebarCursor:
			itemStyle = styles.CursorChatItemStyle
		case state.Active != nil && state.Active.ID == c.ID:
			itemStyle = styles.ActiveChatItemStyle
		}
		lines = append(lines, itemStyle.Width(width).Render(title))
	}

	content := strings.Join(lines, "\n")
	padding := height - lipgloss.Height(content) - len(footer)
	if padding > 0 {
		content += strings.Repeat("\n", padding)
	}
	content += "\n" + strings.Join(footer, "\n")
	return style.Width(width).Height(height).MaxHeight(height + style.GetVerticalFrameSize()).Render(content)
}

func (m *Model) renderSharedView() string {
	if m.sharedErr != "" {
		var b strings.Builder
		b.WriteString(styles.ErrorStyle.Render(m.sharedErr))
		b.WriteString("\n\n")
		b.WriteString(styles.HelpStyle.Render("Enter: " + goHomeAction))
		return lipgloss.Place(m.width, m.height-headerHeight, lipgloss.Center, lipgloss.Center,
			styles.ErrorPanelStyle.Render(b.String()))
	}
	if m.sharedLoading {
		return lipgloss.Place(m.width, m.height-headerHeight, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Loading shared chat...")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.ViewportStyle.Render(m.viewport.View()),
		m.renderReadOnlyFooter(),
	)
}

func (m *Model) renderReadOnlyFooter() string {
	width := m.width - styles.ReadOnlyFooterStyle.GetHorizontalFrameSize()
	if width < 1 {
		width = 1
	}
	return styles.ReadOnlyFooterStyle.Width(width).Render(readOnlyNotice + "  (Esc: " + goHomeAction + ")")
}

// displayedMessages returns the messages of the displayed chat.
func (m *Model) displayedMessages() []chat.Message {
	if m.route.Kind == RouteShared {
		if m.sharedChat == nil {
			return nil
		}
		return m.sharedChat.Messages
	}
	if m.route.isChatView() {
		return m.chats.Snapshot().Messages
	}
	return nil
}

// renderMessages renders the messages of the displayed chat.
func (m *Model) renderMessages() string {
	messages := m.displayedMessages()
	if len(messages) == 0 {
		switch {
		case m.route.Kind == RouteHome:
			return styles.EmptyStateStyle.Render(fmt.Sprintf("\nHow can %s help you today? Type a message below to start a new chat.", m.assistantName()))
		case m.route.Kind == RouteChat && m.chats.LoadingOperation(chat.OperationFetchMessages):
			return styles.EmptyStateStyle.Render("\nLoading messages...")
		case m.route.isChatView():
			return styles.EmptyStateStyle.Render("\nNo messages yet.")
		}
		return ""
	}

	assistantName := m.assistantName()
	if m.route.Kind == RouteShared {
		assistantName = "Assistant"
	}
	width := m.mainWidth()

	var b strings.Builder
	for _, message := range messages {
		b.WriteString("\n")
		timestamp := styles.TimestampStyle.Render(formatTimestamp(message.Timestamp))
		if message.Sender == chat.SenderUser {
			label := styles.UserLabelStyle.Render("You") + " " + timestamp
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Right, label))
			b.WriteString("\n")
			contentWidth := width - styles.UserMessageStyle.GetHorizontalMargins() - styles.UserMessageStyle.GetHorizontalBorderSize()
			content := styles.UserMessageStyle.Width(max(contentWidth, 1)).Render(message.Text)
			b.WriteString(content)
		} else {
			b.WriteString(styles.AILabelStyle.Render(assistantName) + " " + timestamp)
			b.WriteString("\n")
			rendered := strings.TrimRight(m.renderer.Render(message.ID, message.Text), "\n")
			b.WriteString(styles.AIMessageStyle.Render(rendered))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// formatTimestamp renders RFC 3339 timestamps as local time, other values verbatim.
func formatTimestamp(value string) string {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	t = t.Local()
	if now := time.Now(); t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("Jan 2, 15:04")
}
