package session

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/malonaz/navi/internal/api"
	"github.com/malonaz/navi/store"
)

type fakeClient struct {
	user          *api.User
	meErr         error
	loginErr      error
	logoutErr     error
	assistantErr  error
	cookies       []*http.Cookie
	cookiesClosed bool
	calls         []string
}

func (f *fakeClient) Me(ctx context.Context) (*api.User, error) {
	f.calls = append(f.calls, "Me")
	if f.meErr != nil {
		return nil, f.meErr
	}
	user := *f.user
	return &user, nil
}

func (f *fakeClient) Login(ctx context.Context, email, password string) error {
	f.calls = append(f.calls, "Login")
	if f.loginErr != nil {
		return f.loginErr
	}
	f.cookies = []*http.Cookie{{Name: "connect.sid", Value: "s1"}}
	return nil
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "Logout")
	return f.logoutErr
}

func (f *fakeClient) UpdateUser(ctx context.Context, patch *api.UserPatch) (*api.User, error) {
	f.calls = append(f.calls, "UpdateUser")
	if patch.Name != "" {
		f.user.Name = patch.Name
	}
	if patch.Email != "" {
		f.user.Email = patch.Email
	}
	user := *f.user
	return &user, nil
}

func (f *fakeClient) SetAssistantName(ctx context.Context, name string) error {
	f.calls = append(f.calls, "SetAssistantName")
	if f.assistantErr != nil {
		return f.assistantErr
	}
	f.user.AIAssistantName = name
	return nil
}

func (f *fakeClient) Cookies() []*http.Cookie           { return f.cookies }
func (f *fakeClient) SetCookies(cookies []*http.Cookie) { f.cookies = cookies }
func (f *fakeClient) ClearCookies()                     { f.cookies = nil; f.cookiesClosed = true }

func newTestStorage(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestClient() *fakeClient {
	return &fakeClient{user: &api.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}}
}

func TestStore_LoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	client := newTestClient()
	sessions, err := New(client, storage)
	require.NoError(t, err)
	require.False(t, sessions.Authenticated())

	user, err := sessions.Login(ctx, " ada@example.com ", "secret")
	require.NoError(t, err)
	require.Equal(t, User{ID: "u1", Name: "Ada", Email: "ada@example.com"}, user)
	require.True(t, sessions.Authenticated())
	require.Equal(t, "u1", sessions.UserID())

	// A new process rehydrates the user and the session cookie.
	restoredClient := newTestClient()
	restored, err := New(restoredClient, storage)
	require.NoError(t, err)
	require.True(t, restored.Authenticated())
	restoredUser, ok := restored.User()
	require.True(t, ok)
	require.Equal(t, user, restoredUser)
	require.Len(t, restoredClient.cookies, 1)
	require.Equal(t, "s1", restoredClient.cookies[0].Value)
}

func TestStore_LoginFailure(t *testing.T) {
	client := newTestClient()
	client.loginErr = &api.StatusError{Code: http.StatusUnauthorized, Message: "Invalid credentials"}
	sessions, err := New(client, newTestStorage(t))
	require.NoError(t, err)

	_, err = sessions.Login(context.Background(), "ada@example.com", "wrong")
	require.ErrorIs(t, err, api.ErrUnauthorized)
	require.Equal(t, "Invalid credentials", sessions.Error())
	require.False(t, sessions.Authenticated())

	_, err = sessions.Login(context.Background(), "", "")
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestStore_FetchCurrentUserFailureClears(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	client := newTestClient()
	sessions, err := New(client, storage)
	require.NoError(t, err)
	_, err = sessions.FetchCurrentUser(ctx)
	require.NoError(t, err)
	require.True(t, sessions.Authenticated())

	client.meErr = &api.StatusError{Code: http.StatusUnauthorized}
	_, err = sessions.FetchCurrentUser(ctx)
	require.ErrorIs(t, err, api.ErrUnauthorized)
	require.False(t, sessions.Authenticated())
	_, ok := sessions.User()
	require.False(t, ok)
	require.Equal(t, "Failed to fetch user", sessions.Error())

	state := &persistedState{}
	found, err := storage.Get(userEntryName, state)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, &persistedState{}, state)
}

func TestStore_LogoutAlwaysClears(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	client := newTestClient()
	sessions, err := New(client, storage)
	require.NoError(t, err)
	_, err = sessions.Login(ctx, "ada@example.com", "secret")
	require.NoError(t, err)

	client.logoutErr = errors.New("connection refused")
	err = sessions.Logout(ctx)
	require.Error(t, err)

	require.False(t, sessions.Authenticated())
	require.Empty(t, sessions.UserID())
	require.True(t, client.cookiesClosed)

	var cookies []persistedCookie
	found, err := storage.Get(cookiesEntryName, &cookies)
	require.NoError(t, err)
	require.False(t, found)

	restored, err := New(newTestClient(), storage)
	require.NoError(t, err)
	require.False(t, restored.Authenticated())
}

func TestStore_SetAssistantName(t *testing.T) {
	ctx := context.Background()
	client := newTestClient()
	sessions, err := New(client, newTestStorage(t))
	require.NoError(t, err)
	require.Equal(t, DefaultAssistantName, sessions.AssistantName(DefaultAssistantName))

	_, err = sessions.SetAssistantName(ctx, "   ")
	require.ErrorIs(t, err, ErrInvalidAssistantName)
	_, err = sessions.SetAssistantName(ctx, strings.Repeat("x", MaxAssistantNameLength+1))
	require.ErrorIs(t, err, ErrInvalidAssistantName)
	require.Empty(t, client.calls)

	user, err := sessions.SetAssistantName(ctx, "  Nova ")
	require.NoError(t, err)
	require.Equal(t, "Nova", user.AssistantName)
	require.Equal(t, "Nova", sessions.AssistantName(DefaultAssistantName))
	require.Equal(t, []string{"SetAssistantName", "Me"}, client.calls)

	client.assistantErr = &api.StatusError{Code: http.StatusBadRequest, Message: "Name taken"}
	_, err = sessions.SetAssistantName(ctx, "Other")
	require.Error(t, err)
	require.Equal(t, "Name taken", sessions.Error())
	require.Equal(t, "Nova", sessions.AssistantName(DefaultAssistantName))
}

func TestStore_UpdateUser(t *testing.T) {
	client := newTestClient()
	sessions, err := New(client, newTestStorage(t))
	require.NoError(t, err)

	user, err := sessions.UpdateUser(context.Background(), &api.UserPatch{Name: "Ada L."})
	require.NoError(t, err)
	require.Equal(t, "Ada L.", user.Name)
	require.True(t, sessions.Authenticated())
}

func TestStore_UpdateUserRejectsEmptyPatch(t *testing.T) {
	client := newTestClient()
	sessions, err := New(client, newTestStorage(t))
	require.NoError(t, err)

	_, err = sessions.UpdateUser(context.Background(), &api.UserPatch{Name: "  "})
	require.ErrorIs(t, err, ErrEmptyUserPatch)
	require.NotContains(t, client.calls, "UpdateUser")
}

func TestProfileCmd(t *testing.T) {
	client := newTestClient()
	sessions, err := New(client, newTestStorage(t))
	require.NoError(t, err)

	cmd := NewProfileCmd(sessions)
	cmd.SetArgs([]string{"--email", "ada@navi.example"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	user, ok := sessions.User()
	require.True(t, ok)
	require.Equal(t, "ada@navi.example", user.Email)
	require.Equal(t, "Ada", user.Name)
	require.Contains(t, client.calls, "UpdateUser")
}
