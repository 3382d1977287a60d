package chat

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/scylladb/go-set/strset"

	"github.com/malonaz/navi/internal/api"
	"github.com/malonaz/navi/internal/debug"
)

var (
	// ErrEmptyTitle is returned, before any request, for blank chat titles.
	ErrEmptyTitle = errors.New("chat title cannot be empty")
	// ErrStale is returned by FetchMessages when the active chat changed while it was in flight.
	ErrStale = errors.New("active chat changed while fetching messages")
	// ErrNotAcknowledged is returned when the backend answers a mutation without success.
	ErrNotAcknowledged = errors.New("request not acknowledged by the backend")
	// ErrNoActiveChat is returned when sending with no active chat.
	ErrNoActiveChat = errors.New("no active chat")
)

// Client is the part of the REST API the store relies on.
type Client interface {
	ListChats(ctx context.Context) ([]*api.Chat, error)
	CreateChat(ctx context.Context, title string) (*api.Chat, error)
	RenameChat(ctx context.Context, chatID, title string) (bool, error)
	DeleteChat(ctx context.Context, chatID string) (bool, error)
	ListMessages(ctx context.Context, chatID string) (*api.ListMessagesResponse, error)
}

// Operation identifies the kind of an in-flight request.
type Operation string

const (
	OperationListChats     Operation = "list-chats"
	OperationCreateChat    Operation = "create-chat"
	OperationRenameChat    Operation = "rename-chat"
	OperationDeleteChat    Operation = "delete-chat"
	OperationFetchMessages Operation = "fetch-messages"
)

// State is an immutable copy of the store, for rendering.
type State struct {
	Chats         []Chat
	Active        *Chat
	Messages      []Message
	Loading       bool
	CreatingChat  bool
	AwaitingReply bool
	Error         string
}

// Store holds the chat list, the active chat and its messages.
type Store struct {
	client Client
	log    *slog.Logger

	mutex    sync.Mutex
	chats    []Chat
	active   *Chat
	messages []Message
	// ids of the messages in the list.
	seen *strset.Set
	// append sequence number of locally appended messages, by id.
	appended  map[string]uint64
	appendSeq uint64
	err       string

	// In-flight requests by request id.
	inflight      map[uint64]Operation
	nextRequestID uint64

	// Incremented on every chat switch.
	token uint64

	// Chat ids of the user messages still awaiting a reply, oldest first.
	pending []string
}

// NewStore instantiates and returns a store backed by client.
func NewStore(client Client) *Store {
	return &Store{
		client:   client,
		log:      debug.GetLogger(),
		seen:     strset.New(),
		appended: map[string]uint64{},
		inflight: map[uint64]Operation{},
	}
}

// begin registers an in-flight request.
func (s *Store) begin(operation Operation) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.nextRequestID++
	s.inflight[s.nextRequestID] = operation
	s.err = ""
	return s.nextRequestID
}

// end unregisters an in-flight request, recording its error message if any.
func (s *Store) end(requestID uint64, err error, fallback string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	operation := s.inflight[requestID]
	delete(s.inflight, requestID)
	if err != nil {
		s.err = api.ErrorMessage(err, fallback)
		s.log.Error("chat request failed", "operation", operation, "error", err)
	}
}

// ListChats replaces the chat list with the backend's, most recent first.
// On failure the list is left unchanged.
func (s *Store) ListChats(ctx context.Context) ([]Chat, error) {
	requestID := s.begin(OperationListChats)
	apiChats, err := s.client.ListChats(ctx)
	s.end(requestID, err, "Failed to fetch chats")
	if err != nil {
		return nil, err
	}

	chats := make([]Chat, 0, len(apiChats))
	for i := len(apiChats) - 1; i >= 0; i-- {
		chats = append(chats, chatFromAPI(apiChats[i]))
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.chats = chats
	return slices.Clone(chats), nil
}

// CreateChat creates a chat, prepends it to the list and makes it active with no messages.
func (s *Store) CreateChat(ctx context.Context, title string) (Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Chat{}, ErrEmptyTitle
	}

	requestID := s.begin(OperationCreateChat)
	apiChat, err := s.client.CreateChat(ctx, title)
	s.end(requestID, err, "Failed to create chat")
	if err != nil {
		return Chat{}, err
	}

	chat := chatFromAPI(apiChat)
	if chat.Timestamp == "" {
		chat.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.chats = append([]Chat{chat}, s.chats...)
	s.activate(chat)
	return chat, nil
}

// RenameChat renames a chat once the backend confirms it.
func (s *Store) RenameChat(ctx context.Context, chatID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	requestID := s.begin(OperationRenameChat)
	ok, err := s.client.RenameChat(ctx, chatID, title)
	if err == nil && !ok {
		err = ErrNotAcknowledged
	}
	s.end(requestID, err, "Failed to rename chat")
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].Title = title
		}
	}
	if s.active != nil && s.active.ID == chatID {
		s.active.Title = title
	}
	return nil
}

// DeleteChat deletes a chat once the backend confirms it. Deleting the active chat
// clears the active chat and its messages.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	requestID := s.begin(OperationDeleteChat)
	ok, err := s.client.DeleteChat(ctx, chatID)
	if err == nil && !ok {
		err = ErrNotAcknowledged
	}
	s.end(requestID, err, "Failed to delete chat")
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.chats = slices.DeleteFunc(s.chats, func(chat Chat) bool { return chat.ID == chatID })
	if s.active != nil && s.active.ID == chatID {
		s.deactivate()
	}
	return nil
}

// FetchMessages replaces the message list with the backend's messages of chatID.
// The result is discarded with ErrStale if the active chat changed in the meantime.
// Messages appended locally while the request was in flight, and absent from the
// response, are kept after it. A local user message is also considered present when
// the response holds a user message with the same text created after the request
// started.
func (s *Store) FetchMessages(ctx context.Context, chatID string) ([]Message, error) {
	s.mutex.Lock()
	token := s.token
	appendSeq := s.appendSeq
	s.mutex.Unlock()
	startedAt := time.Now().Add(-echoClockSkew)

	requestID := s.begin(OperationFetchMessages)
	response, err := s.client.ListMessages(ctx, chatID)
	s.end(requestID, err, "Failed to fetch messages")
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.token != token || s.active == nil || s.active.ID != chatID {
		s.log.Debug("discarding stale messages", "chat_id", chatID)
		return nil, ErrStale
	}

	messages := messagesFromAPI(response.Messages)
	seen := strset.New()
	for _, message := range messages {
		seen.Add(message.ID)
	}
	echoed := make([]bool, len(messages))
	for _, message := range s.messages {
		if s.appended[message.ID] <= appendSeq || seen.Has(message.ID) {
			continue
		}
		if i := findEcho(messages, echoed, message, startedAt); i >= 0 {
			echoed[i] = true
			continue
		}
		messages = append(messages, message)
		seen.Add(message.ID)
	}
	s.messages = messages
	s.seen = seen

	if response.Chat != nil {
		if owner := string(response.Chat.User); owner != "" {
			s.active.UserID = owner
		}
		if s.active.Title == "" {
			s.active.Title = response.Chat.Title
		}
	}
	return slices.Clone(messages), nil
}

// echoClockSkew is how far the backend clock may lag behind ours when matching a
// local user message with its stored copy.
const echoClockSkew = time.Minute

// findEcho returns the index of the first unmatched user message of fetched that
// carries the text of local and was created at or after since, or -1.
func findEcho(fetched []Message, echoed []bool, local Message, since time.Time) int {
	if local.Sender != SenderUser {
		return -1
	}
	for i, message := range fetched[:len(echoed)] {
		if echoed[i] || message.Sender != SenderUser || message.Text != local.Text {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, message.Timestamp)
		if err != nil || createdAt.Before(since) {
			continue
		}
		return i
	}
	return -1
}

// AppendMessage appends a message to the list. Messages without an id are given one.
// It returns false if a message with the same id is already present.
func (s *Store) AppendMessage(message Message) (Message, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.appendMessage(message)
}

func (s *Store) appendMessage(message Message) (Message, bool) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Timestamp == "" {
		message.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if s.seen.Has(message.ID) {
		s.log.Debug("ignoring duplicate message", "message_id", message.ID)
		return message, false
	}
	s.seen.Add(message.ID)
	s.appendSeq++
	s.appended[message.ID] = s.appendSeq
	s.messages = append(s.messages, message)
	return message, true
}

// SendMessage appends a user message to the active chat and registers the pending reply.
// Emitting it over the real-time channel is the caller's responsibility.
func (s *Store) SendMessage(text string) (Chat, Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Chat{}, Message{}, errors.New("message cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.active == nil {
		return Chat{}, Message{}, ErrNoActiveChat
	}
	message, _ := s.appendMessage(Message{Text: text, Sender: SenderUser})
	s.pending = append(s.pending, s.active.ID)
	return *s.active, message, nil
}

// ReceiveReply appends an assistant reply to the active chat, ending its pending state.
// Replies addressed to another chat, or answering a message sent from a chat that is no
// longer active, are dropped. It reports whether the reply was appended.
func (s *Store) ReceiveReply(reply Reply) (Message, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	target := reply.ChatID
	if i := s.pendingIndex(reply.ChatID); i >= 0 {
		target = s.pending[i]
		s.pending = slices.Delete(s.pending, i, i+1)
	}
	if s.active == nil || (target != "" && target != s.active.ID) {
		s.log.Warn("dropping reply for inactive chat", "chat_id", target)
		return Message{}, false
	}
	return s.appendMessage(Message{ID: reply.ID, Text: reply.Content, Sender: SenderAssistant})
}

// AbandonReplies stops waiting for the replies of chatID, or of every chat when chatID
// is empty. It is called when a message could not be delivered or the channel is gone.
// It reports whether any reply was pending.
func (s *Store) AbandonReplies(chatID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	before := len(s.pending)
	if chatID == "" {
		s.pending = nil
	} else {
		s.pending = slices.DeleteFunc(s.pending, func(id string) bool { return id == chatID })
	}
	if abandoned := before - len(s.pending); abandoned > 0 {
		s.log.Warn("abandoning pending replies", "chat_id", chatID, "count", abandoned)
		return true
	}
	return false
}

// pendingIndex returns the index of the oldest pending reply for chatID, or of the oldest
// pending reply at all when chatID is empty.
func (s *Store) pendingIndex(chatID string) int {
	if chatID == "" {
		if len(s.pending) == 0 {
			return -1
		}
		return 0
	}
	return slices.Index(s.pending, chatID)
}

// SelectChat makes chat active and returns the new switch token. Switching to a
// different chat clears the message list.
func (s *Store) SelectChat(chat Chat) uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.active != nil && s.active.ID == chat.ID {
		s.token++
		return s.token
	}
	s.activate(chat)
	return s.token
}

// SelectChatID makes the chat with the given id active. Chats missing from the list
// are activated with their id only; FetchMessages fills in the rest.
func (s *Store) SelectChatID(chatID string) uint64 {
	s.mutex.Lock()
	chat := Chat{ID: chatID}
	for _, c := range s.chats {
		if c.ID == chatID {
			chat = c
			break
		}
	}
	s.mutex.Unlock()
	return s.SelectChat(chat)
}

// ClearActive deselects the active chat.
func (s *Store) ClearActive() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.deactivate()
}

func (s *Store) activate(chat Chat) {
	s.active = &chat
	s.messages = nil
	s.seen = strset.New()
	s.appended = map[string]uint64{}
	s.token++
}

func (s *Store) deactivate() {
	s.active = nil
	s.messages = nil
	s.seen = strset.New()
	s.appended = map[string]uint64{}
	s.token++
}

// Chat returns the chat with the given id from the list.
func (s *Store) Chat(chatID string) (Chat, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, chat := range s.chats {
		if chat.ID == chatID {
			return chat, true
		}
	}
	return Chat{}, false
}

// Loading reports whether any request is in flight.
func (s *Store) Loading() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.inflight) > 0
}

// LoadingOperation reports whether a request of the given kind is in flight.
func (s *Store) LoadingOperation(operation Operation) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, o := range s.inflight {
		if o == operation {
			return true
		}
	}
	return false
}

// Error returns the message of the last failure, if any.
func (s *Store) Error() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.err
}

// Snapshot returns a copy of the store's state.
func (s *Store) Snapshot() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	state := State{
		Chats:    slices.Clone(s.chats),
		Messages: slices.Clone(s.messages),
		Loading:  len(s.inflight) > 0,
		Error:    s.err,
	}
	for _, operation := range s.inflight {
		if operation == OperationCreateChat {
			state.CreatingChat = true
		}
	}
	if s.active != nil {
		active := *s.active
		state.Active = &active
		state.AwaitingReply = slices.Contains(s.pending, active.ID)
	}
	return state
}

// Reset clears all state.
func (s *Store) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.chats = nil
	s.pending = nil
	s.err = ""
	s.deactivate()
}

// ShareURL returns the public link of a chat on the web client. The owner defaults to
// fallbackUserID when the chat has no owner recorded.
func ShareURL(webBaseURL string, chat Chat, fallbackUserID string) (string, error) {
	owner := chat.UserID
	if owner == "" {
		owner = fallbackUserID
	}
	if chat.ID == "" || owner == "" {
		return "", errors.New("chat has no id or owner")
	}
	return strings.TrimSuffix(webBaseURL, "/") + "/shared/" + url.PathEscape(chat.ID) + "/" + url.PathEscape(owner), nil
}
