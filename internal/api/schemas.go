package api

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// OwnerRef is a reference to the user owning a chat. The backend sends either the bare
// id or the populated user document.
type OwnerRef string

// UnmarshalJSON accepts a string, null, or an object carrying '_id' or 'id'.
func (o *OwnerRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*o = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*o = OwnerRef(id)
		return nil
	}
	var document struct {
		ID    string `json:"_id"`
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &document); err != nil {
		return errors.Wrap(err, "unmarshaling owner reference")
	}
	if document.ID == "" {
		document.ID = document.AltID
	}
	*o = OwnerRef(document.ID)
	return nil
}

// Chat as returned by the backend.
type Chat struct {
	ID           string   `json:"_id"`
	Title        string   `json:"title"`
	LastActivity string   `json:"lastActivity,omitempty"`
	User         OwnerRef `json:"user,omitempty"`
}

func (c *Chat) validate() error {
	if c.ID == "" {
		return &DecodeError{Schema: "Chat", Field: "_id"}
	}
	return nil
}

// Message as returned by the backend. Role is "model" for assistant turns.
type Message struct {
	ID        string `json:"_id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// RoleModel is the role the backend gives to assistant messages.
const RoleModel = "model"

func (m *Message) validate() error {
	if m.ID == "" {
		return &DecodeError{Schema: "Message", Field: "_id"}
	}
	if m.Role == "" {
		return &DecodeError{Schema: "Message", Field: "role"}
	}
	return nil
}

// User as returned by the backend.
type User struct {
	ID              string `json:"_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	AIAssistantName string `json:"aiAssistantName,omitempty"`
}

// UnmarshalJSON accepts the id under '_id' or 'id'.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var raw struct {
		alias
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = User(raw.alias)
	if u.ID == "" {
		u.ID = raw.AltID
	}
	return nil
}

func (u *User) validate() error {
	if u.ID == "" {
		return &DecodeError{Schema: "User", Field: "_id"}
	}
	return nil
}

// ListChatsResponse is the response of GET /chat.
type ListChatsResponse struct {
	Chats []*Chat `json:"chats"`
}

func (r *ListChatsResponse) validate() error {
	if r.Chats == nil {
		return &DecodeError{Schema: "ListChatsResponse", Field: "chats"}
	}
	for _, chat := range r.Chats {
		if chat == nil {
			return &DecodeError{Schema: "ListChatsResponse", Field: "chats"}
		}
		if err := chat.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ChatResponse is the response of POST /chat.
type ChatResponse struct {
	Chat *Chat `json:"chat"`
}

func (r *ChatResponse) validate() error {
	if r.Chat == nil {
		return &DecodeError{Schema: "ChatResponse", Field: "chat"}
	}
	return r.Chat.validate()
}

// SuccessResponse is the response of mutations that only acknowledge.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListMessagesResponse is the response of GET /chat/:id/messages.
type ListMessagesResponse struct {
	Messages []*Message `json:"messages"`
	Chat     *Chat      `json:"chat,omitempty"`
}

func (r *ListMessagesResponse) validate() error {
	if r.Messages == nil {
		return &DecodeError{Schema: "ListMessagesResponse", Field: "messages"}
	}
	if err := validateMessages("ListMessagesResponse", r.Messages); err != nil {
		return err
	}
	if r.Chat != nil {
		return r.Chat.validate()
	}
	return nil
}

// SharedChatResponse is the response of GET /chat/:id/shared[/:userId].
type SharedChatResponse struct {
	Chat     *Chat      `json:"chat"`
	Messages []*Message `json:"messages"`
	IsOwner  bool       `json:"isOwner"`
}

func (r *SharedChatResponse) validate() error {
	if r.Chat == nil {
		return &DecodeError{Schema: "SharedChatResponse", Field: "chat"}
	}
	if err := r.Chat.validate(); err != nil {
		return err
	}
	if r.Messages == nil {
		return &DecodeError{Schema: "SharedChatResponse", Field: "messages"}
	}
	return validateMessages("SharedChatResponse", r.Messages)
}

// UserResponse is the response of the /auth endpoints returning the user.
type UserResponse struct {
	User *User `json:"user"`
}

func (r *UserResponse) validate() error {
	if r.User == nil {
		return &DecodeError{Schema: "UserResponse", Field: "user"}
	}
	return r.User.validate()
}

func validateMessages(schema string, messages []*Message) error {
	for _, message := range messages {
		if message == nil {
			return &DecodeError{Schema: schema, Field: "messages"}
		}
		if err := message.validate(); err != nil {
			return err
		}
	}
	return nil
}
