package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/navi/internal/api"
)

// fakeClient is an in-memory Client. When gate is set, ListMessages blocks on it.
type fakeClient struct {
	mutex     sync.Mutex
	chats     []*api.Chat
	messages  map[string][]*api.Message
	err       error
	ack       bool
	gate      chan struct{}
	entered   chan struct{}
	calls     []string
	nextID    int
	ownerByID map[string]string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		messages:  map[string][]*api.Message{},
		ack:       true,
		ownerByID: map[string]string{},
	}
}

func (f *fakeClient) record(call string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeClient) ListChats(ctx context.Context) ([]*api.Chat, error) {
	if err := f.record("ListChats"); err != nil {
		return nil, err
	}
	return f.chats, nil
}

func (f *fakeClient) CreateChat(ctx context.Context, title string) (*api.Chat, error) {
	if err := f.record("CreateChat"); err != nil {
		return nil, err
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.nextID++
	return &api.Chat{ID: "new-" + string(rune('0'+f.nextID)), Title: title, User: "u1"}, nil
}

func (f *fakeClient) RenameChat(ctx context.Context, chatID, title string) (bool, error) {
	if err := f.record("RenameChat"); err != nil {
		return false, err
	}
	return f.ack, nil
}

func (f *fakeClient) DeleteChat(ctx context.Context, chatID string) (bool, error) {
	if err := f.record("DeleteChat"); err != nil {
		return false, err
	}
	return f.ack, nil
}

func (f *fakeClient) ListMessages(ctx context.Context, chatID string) (*api.ListMessagesResponse, error) {
	if err := f.record("ListMessages"); err != nil {
		return nil, err
	}
	if f.gate != nil {
		if f.entered != nil {
			f.entered <- struct{}{}
		}
		<-f.gate
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	messages := f.messages[chatID]
	if messages == nil {
		messages = []*api.Message{}
	}
	return &api.ListMessagesResponse{
		Messages: messages,
		Chat:     &api.Chat{ID: chatID, Title: "fetched", User: api.OwnerRef(f.ownerByID[chatID])},
	}, nil
}

func TestStore_ListChats(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a", Title: "T1", LastActivity: "t1", User: "u1"}}
	store := NewStore(client)

	chats, err := store.ListChats(context.Background())
	require.NoError(t, err)

	want := []Chat{{ID: "a", Title: "T1", Timestamp: "t1", UserID: "u1"}}
	if diff := cmp.Diff(want, chats); diff != "" {
		t.Fatalf("unexpected chats (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, store.Snapshot().Chats); diff != "" {
		t.Fatalf("unexpected state (-want +got):\n%s", diff)
	}
}

func TestStore_ListChatsMostRecentFirst(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "old"}, {ID: "mid"}, {ID: "new"}}
	store := NewStore(client)

	chats, err := store.ListChats(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"new", "mid", "old"}, chatIDs(chats))
}

func TestStore_ListChatsFailureKeepsList(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a"}}
	store := NewStore(client)
	_, err := store.ListChats(context.Background())
	require.NoError(t, err)

	client.err = &api.StatusError{Code: 500, Message: "boom"}
	_, err = store.ListChats(context.Background())
	require.Error(t, err)

	state := store.Snapshot()
	require.Equal(t, []string{"a"}, chatIDs(state.Chats))
	require.Equal(t, "boom", state.Error)
	require.False(t, state.Loading)
}

func TestStore_CreateChat(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a"}}
	client.messages["a"] = []*api.Message{{ID: "m1", Content: "hi", Role: "user"}}
	store := NewStore(client)
	ctx := context.Background()

	_, err := store.ListChats(ctx)
	require.NoError(t, err)
	store.SelectChatID("a")
	_, err = store.FetchMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, store.Snapshot().Messages, 1)

	chat, err := store.CreateChat(ctx, "  Hello  ")
	require.NoError(t, err)
	require.Equal(t, "Hello", chat.Title)

	state := store.Snapshot()
	require.Equal(t, []string{chat.ID, "a"}, chatIDs(state.Chats))
	require.NotNil(t, state.Active)
	require.Equal(t, chat.ID, state.Active.ID)
	require.Empty(t, state.Messages)
	require.False(t, state.CreatingChat)
}

func TestStore_CreateChatValidation(t *testing.T) {
	client := newFakeClient()
	store := NewStore(client)

	_, err := store.CreateChat(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyTitle)
	require.Empty(t, client.calls)
	require.Empty(t, store.Snapshot().Chats)
}

func TestStore_CreateChatFailure(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a"}}
	store := NewStore(client)
	_, err := store.ListChats(context.Background())
	require.NoError(t, err)

	client.err = errors.New("connection refused")
	_, err = store.CreateChat(context.Background(), "x")
	require.Error(t, err)

	state := store.Snapshot()
	require.Equal(t, []string{"a"}, chatIDs(state.Chats))
	require.Equal(t, "Failed to create chat", state.Error)
}

func TestStore_RenameChat(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a", Title: "old"}, {ID: "b", Title: "other"}}
	store := NewStore(client)
	ctx := context.Background()
	_, err := store.ListChats(ctx)
	require.NoError(t, err)
	store.SelectChatID("a")

	require.ErrorIs(t, store.RenameChat(ctx, "a", ""), ErrEmptyTitle)
	require.Equal(t, []string{"ListChats"}, client.calls)

	require.NoError(t, store.RenameChat(ctx, "a", "new"))
	state := store.Snapshot()
	require.Equal(t, "new", state.Active.Title)
	require.Equal(t, []string{"other", "new"}, chatTitles(state.Chats))

	client.ack = false
	require.ErrorIs(t, store.RenameChat(ctx, "a", "ignored"), ErrNotAcknowledged)
	require.Equal(t, "new", store.Snapshot().Active.Title)
}

func TestStore_DeleteActiveChat(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a"}, {ID: "b"}}
	client.messages["a"] = []*api.Message{{ID: "m1", Content: "hi", Role: "user"}}
	store := NewStore(client)
	ctx := context.Background()
	_, err := store.ListChats(ctx)
	require.NoError(t, err)
	store.SelectChatID("a")
	_, err = store.FetchMessages(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, store.DeleteChat(ctx, "a"))

	state := store.Snapshot()
	require.Nil(t, state.Active)
	require.Empty(t, state.Messages)
	require.Equal(t, []string{"b"}, chatIDs(state.Chats))
}

func TestStore_DeleteOtherChatKeepsActive(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a"}, {ID: "b"}}
	store := NewStore(client)
	ctx := context.Background()
	_, err := store.ListChats(ctx)
	require.NoError(t, err)
	store.SelectChatID("a")
	store.AppendMessage(Message{Text: "local", Sender: SenderUser})

	require.NoError(t, store.DeleteChat(ctx, "b"))
	state := store.Snapshot()
	require.Equal(t, "a", state.Active.ID)
	require.Len(t, state.Messages, 1)

	client.ack = false
	require.ErrorIs(t, store.DeleteChat(ctx, "a"), ErrNotAcknowledged)
	require.Equal(t, []string{"a"}, chatIDs(store.Snapshot().Chats))
}

func TestStore_FetchMessages(t *testing.T) {
	client := newFakeClient()
	client.messages["a"] = []*api.Message{
		{ID: "m1", Content: "hi", Role: "user", CreatedAt: "c1"},
		{ID: "m2", Content: "hello", Role: api.RoleModel, CreatedAt: "c2"},
	}
	client.ownerByID["a"] = "owner"
	store := NewStore(client)
	store.SelectChatID("a")

	messages, err := store.FetchMessages(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, []Message{
		{ID: "m1", Text: "hi", Sender: SenderUser, Timestamp: "c1"},
		{ID: "m2", Text: "hello", Sender: SenderAssistant, Timestamp: "c2"},
	}, messages)

	state := store.Snapshot()
	require.Equal(t, "owner", state.Active.UserID)
	require.Equal(t, "fetched", state.Active.Title)
}

func TestStore_FetchMessagesReplaces(t *testing.T) {
	client := newFakeClient()
	client.messages["a"] = []*api.Message{{ID: "m1", Content: "hi", Role: "user"}}
	store := NewStore(client)
	store.SelectChatID("a")
	ctx := context.Background()

	_, err := store.FetchMessages(ctx, "a")
	require.NoError(t, err)
	_, err = store.FetchMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, store.Snapshot().Messages, 1)
}

func TestStore_FetchMessagesStale(t *testing.T) {
	client := newFakeClient()
	client.messages["a"] = []*api.Message{{ID: "m1", Content: "from a", Role: "user"}}
	client.messages["b"] = []*api.Message{{ID: "m2", Content: "from b", Role: "user"}}
	client.gate = make(chan struct{})
	client.entered = make(chan struct{})
	store := NewStore(client)
	ctx := context.Background()

	store.SelectChatID("a")
	errs := make(chan error, 1)
	go func() {
		_, err := store.FetchMessages(ctx, "a")
		errs <- err
	}()
	<-client.entered
	require.True(t, store.LoadingOperation(OperationFetchMessages))

	// Switch chats while the fetch of 'a' is in flight.
	store.SelectChatID("b")
	store.AppendMessage(Message{ID: "m2", Text: "from b", Sender: SenderUser})
	close(client.gate)

	require.ErrorIs(t, <-errs, ErrStale)
	state := store.Snapshot()
	require.Equal(t, "b", state.Active.ID)
	require.Equal(t, []string{"from b"}, messageTexts(state.Messages))
	require.False(t, state.Loading)
}

func TestStore_FetchMessagesDropsEchoedSend(t *testing.T) {
	client := newFakeClient()
	client.gate = make(chan struct{})
	client.entered = make(chan struct{})
	store := NewStore(client)
	store.SelectChatID("a")

	errs := make(chan error, 1)
	go func() {
		_, err := store.FetchMessages(context.Background(), "a")
		errs <- err
	}()
	<-client.entered

	// The message is stored by the backend before the fetch reads the chat.
	_, _, err := store.SendMessage("hello")
	require.NoError(t, err)
	_, _, err = store.SendMessage("unsaved")
	require.NoError(t, err)
	client.mutex.Lock()
	client.messages["a"] = []*api.Message{
		{ID: "old", Content: "hello", Role: "user", CreatedAt: "2020-01-01T00:00:00Z"},
		{ID: "s1", Content: "hello", Role: "user", CreatedAt: time.Now().UTC().Format(time.RFC3339)},
	}
	client.mutex.Unlock()
	close(client.gate)

	require.NoError(t, <-errs)
	messages := store.Snapshot().Messages
	require.Equal(t, []string{"hello", "hello", "unsaved"}, messageTexts(messages))
	require.Equal(t, "s1", messages[1].ID)
}

func TestStore_LoadingIsPerRequest(t *testing.T) {
	client := newFakeClient()
	client.gate = make(chan struct{})
	client.entered = make(chan struct{})
	store := NewStore(client)
	store.SelectChatID("a")

	done := make(chan struct{})
	go func() {
		store.FetchMessages(context.Background(), "a")
		close(done)
	}()
	<-client.entered

	// A request completing meanwhile does not clear the indicator of the other.
	_, err := store.ListChats(context.Background())
	require.NoError(t, err)
	require.True(t, store.Loading())

	close(client.gate)
	<-done
	require.False(t, store.Loading())
}

func TestStore_AppendMessageDedupe(t *testing.T) {
	store := NewStore(newFakeClient())
	store.SelectChatID("a")

	first, ok := store.AppendMessage(Message{Text: "no id", Sender: SenderUser})
	require.True(t, ok)
	require.NotEmpty(t, first.ID)
	require.NotEmpty(t, first.Timestamp)

	_, ok = store.AppendMessage(Message{ID: "x", Text: "one", Sender: SenderAssistant})
	require.True(t, ok)
	_, ok = store.AppendMessage(Message{ID: "x", Text: "again", Sender: SenderAssistant})
	require.False(t, ok)
	require.Equal(t, []string{"no id", "one"}, messageTexts(store.Snapshot().Messages))
}

func TestStore_RepliesAppendInArrivalOrder(t *testing.T) {
	const n = 5
	client := newFakeClient()
	client.messages["a"] = []*api.Message{{ID: "m0", Content: "history", Role: "user"}}
	client.gate = make(chan struct{})
	client.entered = make(chan struct{})
	store := NewStore(client)
	ctx := context.Background()
	store.SelectChatID("a")

	errs := make(chan error, 1)
	go func() {
		_, err := store.FetchMessages(ctx, "a")
		errs <- err
	}()
	<-client.entered

	// Replies arrive while the fetch is in flight.
	var want []string
	for i := 0; i < n; i++ {
		content := "reply " + string(rune('a'+i))
		want = append(want, content)
		_, ok := store.ReceiveReply(Reply{Content: content})
		require.True(t, ok)
	}
	close(client.gate)
	require.NoError(t, <-errs)

	var got []string
	for _, message := range store.Snapshot().Messages {
		if message.Sender == SenderAssistant {
			got = append(got, message.Text)
		}
	}
	require.Equal(t, want, got)
	require.Equal(t, "history", store.Snapshot().Messages[0].Text)
}

func TestStore_SendAndReceive(t *testing.T) {
	store := NewStore(newFakeClient())
	_, _, err := store.SendMessage("hello")
	require.ErrorIs(t, err, ErrNoActiveChat)

	store.SelectChatID("a")
	chat, message, err := store.SendMessage("  hello ")
	require.NoError(t, err)
	require.Equal(t, "a", chat.ID)
	require.Equal(t, "hello", message.Text)
	require.True(t, store.Snapshot().AwaitingReply)

	reply, ok := store.ReceiveReply(Reply{Content: "hi there"})
	require.True(t, ok)
	require.Equal(t, SenderAssistant, reply.Sender)

	state := store.Snapshot()
	require.False(t, state.AwaitingReply)
	require.Equal(t, []string{"hello", "hi there"}, messageTexts(state.Messages))
}

func TestStore_AbandonReplies(t *testing.T) {
	store := NewStore(newFakeClient())
	store.SelectChatID("a")
	_, _, err := store.SendMessage("lost in transit")
	require.NoError(t, err)
	require.True(t, store.Snapshot().AwaitingReply)

	require.False(t, store.AbandonReplies("b"))
	require.True(t, store.Snapshot().AwaitingReply)
	require.True(t, store.AbandonReplies("a"))
	require.False(t, store.Snapshot().AwaitingReply)
	require.False(t, store.AbandonReplies("a"))

	// The message stays and another one can be sent.
	_, _, err = store.SendMessage("again")
	require.NoError(t, err)
	require.True(t, store.AbandonReplies(""))
	state := store.Snapshot()
	require.False(t, state.AwaitingReply)
	require.Equal(t, []string{"lost in transit", "again"}, messageTexts(state.Messages))
}

func TestStore_ReplyForSwitchedChatIsDropped(t *testing.T) {
	store := NewStore(newFakeClient())
	store.SelectChatID("a")
	_, _, err := store.SendMessage("question for a")
	require.NoError(t, err)

	store.SelectChatID("b")
	_, ok := store.ReceiveReply(Reply{Content: "answer for a"})
	require.False(t, ok)
	require.Empty(t, store.Snapshot().Messages)

	// The pending reply was consumed: the next one belongs to the active chat.
	_, ok = store.ReceiveReply(Reply{Content: "unsolicited"})
	require.True(t, ok)
}

func TestStore_ReplyWithChatIDIsFiltered(t *testing.T) {
	store := NewStore(newFakeClient())
	store.SelectChatID("a")

	_, ok := store.ReceiveReply(Reply{ChatID: "b", Content: "elsewhere"})
	require.False(t, ok)
	_, ok = store.ReceiveReply(Reply{ChatID: "a", ID: "r1", Content: "here"})
	require.True(t, ok)
	_, ok = store.ReceiveReply(Reply{ChatID: "a", ID: "r1", Content: "here"})
	require.False(t, ok)
	require.Equal(t, []string{"here"}, messageTexts(store.Snapshot().Messages))
}

func TestStore_ReplyWithoutActiveChatIsDropped(t *testing.T) {
	store := NewStore(newFakeClient())
	_, ok := store.ReceiveReply(Reply{Content: "nobody listening"})
	require.False(t, ok)
}

func TestStore_Reset(t *testing.T) {
	client := newFakeClient()
	client.chats = []*api.Chat{{ID: "a"}}
	store := NewStore(client)
	_, err := store.ListChats(context.Background())
	require.NoError(t, err)
	token := store.SelectChatID("a")
	store.AppendMessage(Message{Text: "x"})

	store.Reset()
	state := store.Snapshot()
	if diff := cmp.Diff(State{}, state, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected state after reset (-want +got):\n%s", diff)
	}
	require.Greater(t, store.SelectChatID("a"), token)
}

func TestShareURL(t *testing.T) {
	link, err := ShareURL("https://navi.example.com/", Chat{ID: "c1", UserID: "u1"}, "me")
	require.NoError(t, err)
	require.Equal(t, "https://navi.example.com/shared/c1/u1", link)

	link, err = ShareURL("https://navi.example.com", Chat{ID: "c1"}, "me")
	require.NoError(t, err)
	require.Equal(t, "https://navi.example.com/shared/c1/me", link)

	_, err = ShareURL("https://navi.example.com", Chat{ID: "c1"}, "")
	require.Error(t, err)
}

func chatIDs(chats []Chat) []string {
	ids := make([]string, 0, len(chats))
	for _, chat := range chats {
		ids = append(ids, chat.ID)
	}
	return ids
}

func chatTitles(chats []Chat) []string {
	titles := make([]string, 0, len(chats))
	for _, chat := range chats {
		titles = append(titles, chat.Title)
	}
	return titles
}

func messageTexts(messages []Message) []string {
	texts := make([]string, 0, len(messages))
	for _, message := range messages {
		texts = append(texts, message.Text)
	}
	return texts
}
