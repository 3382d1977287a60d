package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/malonaz/navi/chat"
	"github.com/malonaz/navi/internal/realtime"
	"github.com/malonaz/navi/session"
)

// Results of asynchronous commands.
type (
	sessionLoadedMsg struct {
		err error
	}

	chatsListedMsg struct {
		err error
	}

	messagesFetchedMsg struct {
		chatID string
		err    error
	}

	// chatCreatedMsg carries the text to send once the chat exists, if any.
	chatCreatedMsg struct {
		chat chat.Chat
		text string
		err  error
	}

	chatRenamedMsg struct {
		err error
	}

	chatDeletedMsg struct {
		chatID string
		err    error
	}

	sharedResolvedMsg struct {
		route  Route
		shared *chat.Shared
		err    error
	}

	loggedInMsg struct {
		user session.User
		err  error
	}

	loggedOutMsg struct {
		err error
	}

	assistantNamedMsg struct {
		user session.User
		err  error
	}

	messageEmittedMsg struct {
		chatID string
		err    error
	}

	realtimeConnectedMsg struct {
		channel Channel
		err     error
	}

	realtimeEventMsg struct {
		channel Channel
		event   realtime.Event
	}

	realtimeClosedMsg struct {
		channel Channel
		err     error
	}
)

// loadSession fetches the session user and the chat list concurrently. A failed chat
// list must not cancel the user fetch, which would end the session.
func (m *Model) loadSession() tea.Cmd {
	ctx := m.ctx
	sessions := m.sessions
	chats := m.chats
	return func() tea.Msg {
		var g errgroup.Group
		g.Go(func() error {
			_, err := sessions.FetchCurrentUser(ctx)
			return err
		})
		g.Go(func() error {
			_, err := chats.ListChats(ctx)
			return err
		})
		return sessionLoadedMsg{err: g.Wait()}
	}
}

func (m *Model) listChats() tea.Cmd {
	ctx := m.ctx
	chats := m.chats
	return func() tea.Msg {
		_, err := chats.ListChats(ctx)
		return chatsListedMsg{err: err}
	}
}

func (m *Model) fetchMessages(chatID string) tea.Cmd {
	ctx := m.ctx
	chats := m.chats
	return func() tea.Msg {
		_, err := chats.FetchMessages(ctx, chatID)
		return messagesFetchedMsg{chatID: chatID, err: err}
	}
}

func (m *Model) createChat(title, text string) tea.Cmd {
	ctx := m.ctx
	chats := m.chats
	return func() tea.Msg {
		created, err := chats.CreateChat(ctx, title)
		return chatCreatedMsg{chat: created, text: text, err: err}
	}
}

func (m *Model) renameChat(chatID, title string) tea.Cmd {
	ctx := m.ctx
	chats := m.chats
	return func() tea.Msg {
		return chatRenamedMsg{err: chats.RenameChat(ctx, chatID, title)}
	}
}

func (m *Model) deleteChat(chatID string) tea.Cmd {
	ctx := m.ctx
	chats := m.chats
	return func() tea.Msg {
		return chatDeletedMsg{chatID: chatID, err: chats.DeleteChat(ctx, chatID)}
	}
}

func (m *Model) resolveShared(route Route) tea.Cmd {
	ctx := m.ctx
	client := m.shared
	viewerID := m.sessions.UserID()
	return func() tea.Msg {
		shared, err := chat.ResolveShared(ctx, client, viewerID, route.ChatID, route.UserID)
		return sharedResolvedMsg{route: route, shared: shared, err: err}
	}
}

func (m *Model) logIn(email, password string) tea.Cmd {
	ctx := m.ctx
	sessions := m.sessions
	return func() tea.Msg {
		user, err := sessions.Login(ctx, email, password)
		return loggedInMsg{user: user, err: err}
	}
}

func (m *Model) logOut() tea.Cmd {
	ctx := m.ctx
	sessions := m.sessions
	return func() tea.Msg {
		return loggedOutMsg{err: sessions.Logout(ctx)}
	}
}

func (m *Model) setAssistantName(name string) tea.Cmd {
	ctx := m.ctx
	sessions := m.sessions
	return func() tea.Msg {
		user, err := sessions.SetAssistantName(ctx, name)
		return assistantNamedMsg{user: user, err: err}
	}
}

// emit sends a user message to the assistant over the real-time channel.
func (m *Model) emit(chatID, text string) tea.Cmd {
	ctx := m.ctx
	channel := m.channel
	timeout := m.config.Timeout()
	return func() tea.Msg {
		if channel == nil {
			return messageEmittedMsg{chatID: chatID, err: realtime.ErrClosed}
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return messageEmittedMsg{chatID: chatID, err: channel.SendMessage(ctx, chatID, text)}
	}
}

// connectRealtime opens the real-time channel unless it is open or opening.
func (m *Model) connectRealtime() tea.Cmd {
	if m.channel != nil || m.connecting {
		return nil
	}
	m.connecting = true
	ctx := m.ctx
	dial := m.dial
	endpoint := m.config.SocketEndpoint()
	jar := m.jar
	timeout := m.config.Timeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		channel, err := dial(ctx, endpoint, jar)
		return realtimeConnectedMsg{channel: channel, err: err}
	}
}

// closeRealtime closes the real-time channel, if open. Replies still expected on it
// will never arrive.
func (m *Model) closeRealtime() {
	if m.channel == nil {
		return
	}
	if err := m.channel.Close(); err != nil {
		log.Warn("closing realtime channel", "error", err)
	}
	m.channel = nil
	m.chats.AbandonReplies("")
}

// waitForEvent waits for the next inbound event of channel.
func waitForEvent(channel Channel) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel.Events()
		if !ok {
			return realtimeClosedMsg{channel: channel, err: channel.Err()}
		}
		return realtimeEventMsg{channel: channel, event: event}
	}
}
