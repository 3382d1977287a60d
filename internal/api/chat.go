package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
)

// ListChats returns the chats of the session user, in backend order (oldest first).
func (c *Client) ListChats(ctx context.Context) ([]*Chat, error) {
	response := &ListChatsResponse{}
	if err := c.do(ctx, http.MethodGet, "/chat", nil, response); err != nil {
		return nil, errors.Wrap(err, "listing chats")
	}
	return response.Chats, nil
}

// CreateChat creates a chat with the given title.
func (c *Client) CreateChat(ctx context.Context, title string) (*Chat, error) {
	request := struct {
		Title string `json:"title"`
	}{Title: title}
	response := &ChatResponse{}
	if err := c.do(ctx, http.MethodPost, "/chat", request, response); err != nil {
		return nil, errors.Wrap(err, "creating chat")
	}
	return response.Chat, nil
}

// RenameChat sets the title of a chat. It reports whether the backend acknowledged it.
func (c *Client) RenameChat(ctx context.Context, chatID, title string) (bool, error) {
	request := struct {
		Title string `json:"title"`
	}{Title: title}
	response := &SuccessResponse{}
	if err := c.do(ctx, http.MethodPut, "/chat/"+url.PathEscape(chatID), request, response); err != nil {
		return false, errors.Wrapf(err, "renaming chat %s", chatID)
	}
	return response.Success, nil
}

// DeleteChat deletes a chat. It reports whether the backend acknowledged it.
func (c *Client) DeleteChat(ctx context.Context, chatID string) (bool, error) {
	response := &SuccessResponse{}
	if err := c.do(ctx, http.MethodDelete, "/chat/"+url.PathEscape(chatID), nil, response); err != nil {
		return false, errors.Wrapf(err, "deleting chat %s", chatID)
	}
	return response.Success, nil
}

// ListMessages returns the messages of a chat along with the chat itself, when the
// backend includes it.
func (c *Client) ListMessages(ctx context.Context, chatID string) (*ListMessagesResponse, error) {
	response := &ListMessagesResponse{}
	path := "/chat/" + url.PathEscape(chatID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, response); err != nil {
		return nil, errors.Wrapf(err, "listing messages of chat %s", chatID)
	}
	return response, nil
}

// GetSharedChat returns the read-only snapshot of a shared chat. The owner id may be
// empty, in which case the backend resolves the owner itself.
func (c *Client) GetSharedChat(ctx context.Context, chatID, ownerID string) (*SharedChatResponse, error) {
	path := "/chat/" + url.PathEscape(chatID) + "/shared"
	if ownerID != "" {
		path += "/" + url.PathEscape(ownerID)
	}
	response := &SharedChatResponse{}
	if err := c.do(ctx, http.MethodGet, path, nil, response); err != nil {
		return nil, errors.Wrapf(err, "getting shared chat %s", chatID)
	}
	return response, nil
}
