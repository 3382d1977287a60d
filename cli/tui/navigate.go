package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// navigate displays the requested route, applying the login guard.
func (m *Model) navigate(requested Route) tea.Cmd {
	return m.open(requested, true)
}

// open displays a route. Chat routes fetch their messages when fetch is set.
func (m *Model) open(requested Route, fetch bool) tea.Cmd {
	var cmds []tea.Cmd
	route, message := Guard(requested, m.sessions.Authenticated())
	if message != "" {
		m.afterLogin = &requested
		cmds = append(cmds, m.notifyError(message))
	}
	if route.Kind == RouteLogin && m.sessions.Authenticated() {
		route = Route{Kind: RouteHome}
	}
	log.Info("navigating", "path", route.Path())

	if !route.isChatView() {
		m.closeRealtime()
	}
	m.route = route
	m.modal = nil

	switch route.Kind {
	case RouteHome:
		m.chats.ClearActive()
		m.focusTextarea()
		cmds = append(cmds, m.connectRealtime())

	case RouteChat:
		m.chats.SelectChatID(route.ChatID)
		m.syncSidebarCursor()
		m.focusTextarea()
		if fetch {
			cmds = append(cmds, m.fetchMessages(route.ChatID))
		}
		cmds = append(cmds, m.connectRealtime())

	case RouteShared:
		m.sharedChat = nil
		m.sharedErr = ""
		m.sharedLoading = true
		m.textarea.Blur()
		cmds = append(cmds, m.resolveShared(route))

	case RouteLogin:
		m.textarea.Blur()
		m.login.reset()
		cmds = append(cmds, m.login.focus())

	case RouteRegister:
		m.textarea.Blur()
	}

	m.recalculateLayout()
	m.refreshViewport(true)
	return tea.Batch(cmds...)
}

func (m *Model) focusTextarea() {
	m.focusedComponent = FocusTextarea
	m.textarea.Focus()
}

func (m *Model) focusSidebar() {
	m.focusedComponent = FocusSidebar
	m.textarea.Blur()
	m.syncSidebarCursor()
}

// syncSidebarCursor moves the sidebar cursor to the active chat.
func (m *Model) syncSidebarCursor() {
	state := m.chats.Snapshot()
	if state.Active != nil {
		for i, c := range state.Chats {
			if c.ID == state.Active.ID {
				m.sidebarCursor = i
				return
			}
		}
	}
	m.clampSidebarCursor(len(state.Chats))
}

func (m *Model) clampSidebarCursor(count int) {
	if m.sidebarCursor >= count {
		m.sidebarCursor = count - 1
	}
	if m.sidebarCursor < 0 {
		m.sidebarCursor = 0
	}
}

// toPreviousChat moves the sidebar cursor up.
// Returns true if the cursor moved.
func (m *Model) toPreviousChat() bool {
	if m.sidebarCursor == 0 {
		return false
	}
	m.sidebarCursor--
	return true
}

// toNextChat moves the sidebar cursor down.
// Returns true if the cursor moved.
func (m *Model) toNextChat() bool {
	count := len(m.chats.Snapshot().Chats)
	if m.sidebarCursor >= count-1 {
		return false
	}
	m.sidebarCursor++
	return true
}
