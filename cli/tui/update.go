package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"go.dalton.dog/bubbleup"

	"github.com/malonaz/navi/chat"
	"github.com/malonaz/navi/internal/api"
	"github.com/malonaz/navi/internal/markdown"
	"github.com/malonaz/navi/internal/realtime"
)

type KeyMapSession struct {
	Quit           key.Binding
	CycleFocus     key.Binding
	NewChat        key.Binding
	Home           key.Binding
	Logout         key.Binding
	AssistantName  key.Binding
	ReloadChatList key.Binding
}

type KeyMapViewport struct {
	ToTop      key.Binding
	ToBottom   key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Copy       key.Binding
}

type KeyMapSidebar struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Rename key.Binding
	Delete key.Binding
	Share  key.Binding
	Back   key.Binding
}

type InputKeyMap struct {
	Send                 key.Binding
	PreviousHistoryEntry key.Binding
	NextHistoryEntry     key.Binding
}

var keyMapSession = KeyMapSession{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
	CycleFocus: key.NewBinding(
		key.WithKeys("tab"),
	),
	NewChat: key.NewBinding(
		key.WithKeys("alt+c"),
	),
	Home: key.NewBinding(
		key.WithKeys("alt+h"),
	),
	Logout: key.NewBinding(
		key.WithKeys("alt+l"),
	),
	AssistantName: key.NewBinding(
		key.WithKeys("alt+a"),
	),
	ReloadChatList: key.NewBinding(
		key.WithKeys("ctrl+r"),
	),
}

var keyMapViewport = KeyMapViewport{
	ToTop: key.NewBinding(
		key.WithKeys("alt+<"),
	),
	ToBottom: key.NewBinding(
		key.WithKeys("alt+>"),
	),

	// Scrolling.
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+p"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+n"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
	),

	// Copy the last code block of the last reply.
	Copy: key.NewBinding(
		key.WithKeys("alt+w"),
	),
}

var keyMapSidebar = KeyMapSidebar{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
	),
	Rename: key.NewBinding(
		key.WithKeys("r"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
	),
	Share: key.NewBinding(
		key.WithKeys("s"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
	),
}

var inputKeyMap = InputKeyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
	),
	PreviousHistoryEntry: key.NewBinding(
		key.WithKeys("alt+p"),
	),
	NextHistoryEntry: key.NewBinding(
		key.WithKeys("alt+n"),
	),
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Always update the alert model with every message
	outAlert, alertCmd := m.alert.Update(msg)
	m.alert = outAlert.(bubbleup.AlertModel)
	if alertCmd != nil {
		cmds = append(cmds, alertCmd)
	}

	// Log for non-tick messages only
	switch msg.(type) {
	case spinner.TickMsg, cursor.BlinkMsg, tea.MouseMsg, tea.KeyMsg:
	default:
		log.Debug("update", "msg_type", fmt.Sprintf("%T", msg), "path", m.route.Path())
	}

	switch msg := msg.(type) {
	case tea.FocusMsg:
		m.windowFocused = true
		if m.focusedComponent == FocusTextarea && m.route.isChatView() {
			m.textarea.Focus()
		}
		cmds = append(cmds, textarea.Blink)
		return m, tea.Batch(cmds...)

	case tea.BlurMsg:
		m.windowFocused = false
		m.textarea.Blur()
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateLayout()
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
		return m, tea.Batch(cmds...)

	case sessionLoadedMsg:
		m.loading = false
		if text := m.chats.Error(); msg.err != nil && text != "" && m.sessions.Authenticated() {
			cmds = append(cmds, m.notifyError(text))
		}
		if !m.sessions.Authenticated() {
			m.chats.Reset()
		}
		cmds = append(cmds, m.navigate(m.initialRoute))

	case chatsListedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.notifyError(m.chatErrorText(msg.err)))
		}
		m.syncSidebarCursor()

	case messagesFetchedMsg:
		cmds = append(cmds, m.handleMessagesFetched(msg))

	case chatCreatedMsg:
		cmds = append(cmds, m.handleChatCreated(msg))

	case chatRenamedMsg:
		if msg.err != nil {
			if !m.failModal(modalRename, m.chatErrorText(msg.err)) {
				cmds = append(cmds, m.notifyError(m.chatErrorText(msg.err)))
			}
			break
		}
		m.closeModal(modalRename)
		cmds = append(cmds, m.notify("Chat renamed"))

	case chatDeletedMsg:
		if msg.err != nil {
			m.closeModal(modalDeleteConfirm)
			cmds = append(cmds, m.notifyError(m.chatErrorText(msg.err)))
			break
		}
		m.closeModal(modalDeleteConfirm)
		m.syncSidebarCursor()
		cmds = append(cmds, m.notify("Chat deleted"))
		if m.route.Kind == RouteChat && m.route.ChatID == msg.chatID {
			cmds = append(cmds, m.navigate(Route{Kind: RouteHome}))
		}

	case sharedResolvedMsg:
		cmds = append(cmds, m.handleSharedResolved(msg))

	case loggedInMsg:
		cmds = append(cmds, m.handleLoggedIn(msg))

	case loggedOutMsg:
		if msg.err != nil {
			log.Warn("logout request failed", "error", msg.err)
		}
		m.closeRealtime()
		m.chats.Reset()
		m.modal = nil
		m.afterLogin = nil
		cmds = append(cmds, m.notify("Logged out"), m.navigate(Route{Kind: RouteLogin}))

	case assistantNamedMsg:
		if msg.err != nil {
			if !m.failModal(modalAssistantName, m.assistantNameErrorText(msg.err)) {
				cmds = append(cmds, m.notifyError(m.assistantNameErrorText(msg.err)))
			}
			break
		}
		m.closeModal(modalAssistantName)
		m.refreshViewport(false)
		cmds = append(cmds, m.notify(fmt.Sprintf("Your assistant is now called %s", msg.user.AssistantName)))

	case messageEmittedMsg:
		if msg.err != nil {
			log.Error("sending message", "chat_id", msg.chatID, "error", msg.err)
			m.chats.AbandonReplies(msg.chatID)
			m.refreshViewport(false)
			cmds = append(cmds, m.notifyError("Failed to send message"))
		}

	case realtimeConnectedMsg:
		cmds = append(cmds, m.handleRealtimeConnected(msg))

	case realtimeEventMsg:
		if msg.channel != m.channel {
			break
		}
		m.handleRealtimeEvent(msg.event)
		cmds = append(cmds, waitForEvent(msg.channel))

	case realtimeClosedMsg:
		if msg.channel != m.channel {
			break
		}
		m.channel = nil
		log.Warn("realtime channel closed", "error", msg.err)
		if m.chats.AbandonReplies("") {
			m.refreshViewport(false)
		}
		cmds = append(cmds, m.notifyError("Connection to the assistant lost"))
	}

	// Let the focused widgets handle the rest (cursor blinks, mouse wheel).
	switch msg.(type) {
	case cursor.BlinkMsg:
		var cmd tea.Cmd
		switch {
		case m.modal != nil:
			m.modal.input, cmd = m.modal.input.Update(msg)
		case m.route.Kind == RouteLogin:
			m.login.email, cmd = m.login.email.Update(msg)
			cmds = append(cmds, cmd)
			m.login.password, cmd = m.login.password.Update(msg)
		default:
			m.textarea, cmd = m.textarea.Update(msg)
		}
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKey handles a key press.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keyMapSession.Quit) {
		m.quitting = true
		m.closeRealtime()
		return tea.Quit
	}
	if m.loading {
		return nil
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}

	switch m.route.Kind {
	case RouteLogin:
		return m.updateLogin(msg)

	case RouteRegister:
		if key.Matches(msg, modalKeyMap.Confirm) || key.Matches(msg, modalKeyMap.Cancel) {
			return m.navigate(Route{Kind: RouteLogin})
		}
		return nil

	case RouteShared:
		if m.sharedErr != "" {
			if key.Matches(msg, modalKeyMap.Confirm) || key.Matches(msg, modalKeyMap.Cancel) {
				return m.navigate(Route{Kind: RouteHome})
			}
			return nil
		}
		if key.Matches(msg, modalKeyMap.Cancel) {
			return m.navigate(Route{Kind: RouteHome})
		}
		return m.updateViewport(msg)
	}
	return m.updateChatView(msg)
}

// updateViewport handles scrolling keys. It returns nil for other keys.
func (m *Model) updateViewport(msg tea.KeyMsg) tea.Cmd {
	km := keyMapViewport
	switch {
	case key.Matches(msg, km.ToTop):
		m.viewport.GotoTop()
	case key.Matches(msg, km.ToBottom):
		m.viewport.GotoBottom()
	case key.Matches(msg, km.ScrollUp):
		m.viewport.LineUp(3)
	case key.Matches(msg, km.ScrollDown):
		m.viewport.LineDown(3)
	case key.Matches(msg, km.PageUp):
		m.viewport.LineUp(max(m.viewport.Height/2, 1))
	case key.Matches(msg, km.PageDown):
		m.viewport.LineDown(max(m.viewport.Height/2, 1))
	case key.Matches(msg, km.Copy):
		return m.copyLastReply()
	}
	return nil
}

func (m *Model) updateChatView(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keyMapSession.CycleFocus):
		if m.focusedComponent == FocusTextarea {
			m.focusSidebar()
			return nil
		}
		m.focusTextarea()
		return textarea.Blink

	case key.Matches(msg, keyMapSession.NewChat):
		return m.openNewChatModal()

	case key.Matches(msg, keyMapSession.Home):
		return m.navigate(Route{Kind: RouteHome})

	case key.Matches(msg, keyMapSession.Logout):
		m.openLogoutModal()
		return nil

	case key.Matches(msg, keyMapSession.AssistantName):
		return m.openAssistantNameModal()

	case key.Matches(msg, keyMapSession.ReloadChatList):
		return m.listChats()
	}
	if cmd := m.updateViewport(msg); cmd != nil || isViewportKey(msg) {
		return cmd
	}

	if m.focusedComponent == FocusSidebar {
		return m.updateSidebar(msg)
	}
	return m.updateInput(msg)
}

func isViewportKey(msg tea.KeyMsg) bool {
	km := keyMapViewport
	return key.Matches(msg, km.ToTop, km.ToBottom, km.ScrollUp, km.ScrollDown, km.PageUp, km.PageDown, km.Copy)
}

func (m *Model) updateSidebar(msg tea.KeyMsg) tea.Cmd {
	km := keyMapSidebar
	state := m.chats.Snapshot()
	var selected *chat.Chat
	if m.sidebarCursor >= 0 && m.sidebarCursor < len(state.Chats) {
		selected = &state.Chats[m.sidebarCursor]
	}

	switch {
	case key.Matches(msg, km.Up):
		m.toPreviousChat()
	case key.Matches(msg, km.Down):
		m.toNextChat()
	case key.Matches(msg, km.Back):
		m.focusTextarea()
		return textarea.Blink
	case selected == nil:
	case key.Matches(msg, km.Open):
		return m.navigate(Route{Kind: RouteChat, ChatID: selected.ID})
	case key.Matches(msg, km.Rename):
		return m.openRenameModal(*selected)
	case key.Matches(msg, km.Delete):
		m.openDeleteModal(*selected)
	case key.Matches(msg, km.Share):
		return m.shareChat(*selected)
	}
	return nil
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	km := inputKeyMap
	switch {
	case key.Matches(msg, km.Send):
		return m.sendMessage()

	case key.Matches(msg, km.PreviousHistoryEntry):
		if entry, ok := m.history.Previous(m.textarea.Value()); ok {
			m.textarea.SetValue(entry)
			m.historyNavigating = true
			m.adjustTextareaHeight()
		}
		return nil

	case key.Matches(msg, km.NextHistoryEntry):
		if entry, ok := m.history.Next(); ok {
			m.textarea.SetValue(entry)
			m.historyNavigating = true
			m.adjustTextareaHeight()
		}
		return nil
	}

	if m.historyNavigating {
		switch msg.Type {
		case tea.KeyRunes, tea.KeyBackspace, tea.KeyDelete:
			m.history.Reset()
			m.historyNavigating = false
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.adjustTextareaHeight()
	return cmd
}

// sendMessage sends the input to the assistant. With no active chat, a chat titled
// with the message is created first.
func (m *Model) sendMessage() tea.Cmd {
	text := strings.TrimSpace(m.textarea.Value())
	if text == "" {
		return nil
	}
	state := m.chats.Snapshot()
	if state.AwaitingReply || state.CreatingChat {
		return nil
	}
	if m.channel == nil {
		return tea.Batch(m.notifyError("Not connected to the assistant, retrying..."), m.connectRealtime())
	}

	if err := m.history.Add(text); err != nil {
		log.Error("saving input history", "error", err)
	}
	m.historyNavigating = false
	m.textarea.Reset()
	m.adjustTextareaHeight()

	if state.Active == nil {
		return m.createChat(text, text)
	}
	active, _, err := m.chats.SendMessage(text)
	if err != nil {
		return m.notifyError("Failed to send message")
	}
	m.refreshViewport(true)
	return m.emit(active.ID, text)
}

func (m *Model) handleChatCreated(msg chatCreatedMsg) tea.Cmd {
	if msg.err != nil {
		text := m.chatErrorText(msg.err)
		if msg.text != "" && m.textarea.Value() == "" {
			m.textarea.SetValue(msg.text)
			m.adjustTextareaHeight()
		}
		if !m.failModal(modalNewChat, text) {
			return m.notifyError(text)
		}
		return nil
	}
	m.closeModal(modalNewChat)

	// The chat is new: there are no messages to fetch.
	cmds := []tea.Cmd{m.open(Route{Kind: RouteChat, ChatID: msg.chat.ID}, false)}
	if msg.text != "" {
		active, _, err := m.chats.SendMessage(msg.text)
		if err != nil {
			return tea.Batch(append(cmds, m.notifyError("Failed to send message"))...)
		}
		m.refreshViewport(true)
		cmds = append(cmds, m.emit(active.ID, msg.text))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleMessagesFetched(msg messagesFetchedMsg) tea.Cmd {
	switch {
	case errors.Is(msg.err, chat.ErrStale):
		return nil
	case msg.err != nil:
		cmd := m.notifyError(m.chatErrorText(msg.err))
		if errors.Is(msg.err, api.ErrNotFound) && m.route.Kind == RouteChat && m.route.ChatID == msg.chatID {
			return tea.Batch(cmd, m.navigate(Route{Kind: RouteHome}))
		}
		m.refreshViewport(false)
		return cmd
	}
	if m.route.Kind == RouteChat && m.route.ChatID == msg.chatID {
		m.refreshViewport(true)
	}
	return nil
}

func (m *Model) handleSharedResolved(msg sharedResolvedMsg) tea.Cmd {
	if m.route != msg.route {
		return nil
	}
	m.sharedLoading = false
	if msg.err != nil {
		log.Warn("resolving shared chat", "path", msg.route.Path(), "error", msg.err)
		m.sharedErr = chat.SharedErrorMessage(msg.err)
		return nil
	}
	if msg.shared.Redirect != "" {
		route, err := ParseRoute(msg.shared.Redirect)
		if err != nil {
			m.sharedErr = chat.SharedErrorMessage(err)
			return nil
		}
		return m.navigate(route)
	}
	m.sharedChat = msg.shared
	m.recalculateLayout()
	if m.ready {
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoTop()
	}
	return nil
}

func (m *Model) handleRealtimeConnected(msg realtimeConnectedMsg) tea.Cmd {
	m.connecting = false
	if msg.err != nil {
		log.Error("connecting realtime channel", "error", msg.err)
		return m.notifyError("Could not connect to the assistant")
	}
	if m.channel != nil || !m.route.isChatView() {
		if err := msg.channel.Close(); err != nil {
			log.Warn("closing unused realtime channel", "error", err)
		}
		return nil
	}
	m.channel = msg.channel
	return waitForEvent(msg.channel)
}

func (m *Model) handleRealtimeEvent(event realtime.Event) {
	if event.Name != realtime.EventAIResponse {
		log.Debug("ignoring realtime event", "name", event.Name)
		return
	}
	response, err := realtime.DecodeAIResponse(event)
	if err != nil {
		log.Error("decoding ai-response", "error", err)
		return
	}
	reply := chat.Reply{ChatID: response.Chat, ID: response.ID, Content: response.Content}
	if _, ok := m.chats.ReceiveReply(reply); ok {
		m.refreshViewport(true)
	}
}

// copyLastReply copies the last code block of the last reply, or the whole reply.
func (m *Model) copyLastReply() tea.Cmd {
	messages := m.displayedMessages()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Sender != chat.SenderAssistant {
			continue
		}
		content := messages[i].Text
		notice := "Reply copied to clipboard!"
		if block, ok := markdown.LastCodeBlock(content); ok {
			content = block.Content()
			notice = "Code block copied to clipboard!"
		}
		if err := m.copy(content); err != nil {
			log.Warn("copying reply", "error", err)
			return m.notifyError("Could not access the clipboard")
		}
		return m.notify(notice)
	}
	return nil
}

// chatErrorText returns the message shown for a failed chat request.
func (m *Model) chatErrorText(err error) string {
	if errors.Is(err, chat.ErrEmptyTitle) {
		return "Chat title cannot be empty"
	}
	if text := m.chats.Error(); text != "" {
		return text
	}
	return api.ErrorMessage(err, "Something went wrong")
}
