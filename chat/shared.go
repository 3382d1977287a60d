package chat

import (
	"context"

	"github.com/pkg/errors"

	"github.com/malonaz/navi/internal/api"
)

// ErrInvalidSharedURL is returned when a shared chat is addressed without its ids.
var ErrInvalidSharedURL = errors.New("invalid shared chat url")

// SharedClient fetches read-only chat snapshots.
type SharedClient interface {
	GetSharedChat(ctx context.Context, chatID, ownerID string) (*api.SharedChatResponse, error)
}

// Shared is the outcome of resolving a shared chat link.
type Shared struct {
	// Redirect is the private route of the chat when the viewer owns it. No snapshot is
	// fetched in that case.
	Redirect string
	Chat     Chat
	Messages []Message
	IsOwner  bool
}

// ResolveShared resolves the shared chat (chatID, ownerID) for the viewer, whose id is
// empty when no session is open.
func ResolveShared(ctx context.Context, client SharedClient, viewerID, chatID, ownerID string) (*Shared, error) {
	if chatID == "" || ownerID == "" {
		return nil, ErrInvalidSharedURL
	}
	if viewerID != "" && viewerID == ownerID {
		return &Shared{Redirect: "/chat/" + chatID, IsOwner: true}, nil
	}

	response, err := client.GetSharedChat(ctx, chatID, ownerID)
	if err != nil {
		return nil, err
	}
	chat := chatFromAPI(response.Chat)
	if chat.UserID == "" {
		chat.UserID = ownerID
	}
	return &Shared{
		Chat:     chat,
		Messages: messagesFromAPI(response.Messages),
		IsOwner:  response.IsOwner,
	}, nil
}

// SharedErrorMessage returns the text of the error panel shown for a failed resolution.
func SharedErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSharedURL):
		return "Invalid shared chat URL"
	case errors.Is(err, api.ErrNotFound):
		return "Chat not found or no longer shared"
	default:
		return "Error loading shared chat"
	}
}
