// Package chat holds the client-side state of the user's chats and the messages of the
// active chat, synchronized with the backend's REST API.
package chat

import (
	"github.com/malonaz/navi/internal/api"
)

// Sender of a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Chat is a titled conversation thread owned by a user.
type Chat struct {
	ID    string
	Title string
	// UserID is the id of the owner. It may be unknown until the chat's messages are fetched.
	UserID string
	// Timestamp is the backend's last-activity value, verbatim.
	Timestamp string
}

// Message is one turn of a chat.
type Message struct {
	ID        string
	Text      string
	Sender    Sender
	Timestamp string
}

// Reply is an assistant reply delivered over the real-time channel.
// ChatID and ID are empty when the backend does not provide them.
type Reply struct {
	ChatID  string
	ID      string
	Content string
}

func chatFromAPI(c *api.Chat) Chat {
	return Chat{
		ID:        c.ID,
		Title:     c.Title,
		UserID:    string(c.User),
		Timestamp: c.LastActivity,
	}
}

func messageFromAPI(m *api.Message) Message {
	sender := SenderUser
	if m.Role == api.RoleModel {
		sender = SenderAssistant
	}
	return Message{
		ID:        m.ID,
		Text:      m.Content,
		Sender:    sender,
		Timestamp: m.CreatedAt,
	}
}

func messagesFromAPI(messages []*api.Message) []Message {
	result := make([]Message, 0, len(messages))
	for _, message := range messages {
		result = append(result, messageFromAPI(message))
	}
	return result
}
