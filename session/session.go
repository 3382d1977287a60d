// Package session holds the identity of the authenticated user and persists it across runs.
package session

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/malonaz/navi/internal/api"
	"github.com/malonaz/navi/internal/debug"
)

const (
	userEntryName    = "user-storage"
	cookiesEntryName = "session-cookies"

	// DefaultAssistantName is displayed when the user has not named their assistant.
	DefaultAssistantName = "Aria"
	// MaxAssistantNameLength is the maximum number of characters of an assistant name.
	MaxAssistantNameLength = 30
)

var (
	// ErrInvalidAssistantName is returned for blank or overlong assistant names.
	ErrInvalidAssistantName = errors.Errorf("assistant name must be 1 to %d characters", MaxAssistantNameLength)
	// ErrMissingCredentials is returned when logging in without email or password.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrEmptyUserPatch is returned when a profile update changes nothing.
	ErrEmptyUserPatch = errors.New("nothing to update: set a name or an email")
)

// User is the authenticated user.
type User struct {
	ID            string `json:"_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	AssistantName string `json:"aiAssistantName,omitempty"`
}

func userFromAPI(u *api.User) *User {
	return &User{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		AssistantName: u.AIAssistantName,
	}
}

// Client is the part of the REST API the session relies on.
type Client interface {
	Me(ctx context.Context) (*api.User, error)
	Login(ctx context.Context, email, password string) error
	Logout(ctx context.Context) error
	UpdateUser(ctx context.Context, patch *api.UserPatch) (*api.User, error)
	SetAssistantName(ctx context.Context, name string) error
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
	ClearCookies()
}

// Storage persists the session.
type Storage interface {
	Put(name string, value any) error
	Get(name string, value any) (bool, error)
	Delete(name string) error
}

// persistedState is the durable subset of the session.
type persistedState struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

type persistedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Store holds the session.
type Store struct {
	client  Client
	storage Storage
	log     *slog.Logger

	mutex         sync.Mutex
	user          *User
	authenticated bool
	err           string
}

// New instantiates a store and rehydrates the persisted session, including the
// session cookies of client.
func New(client Client, storage Storage) (*Store, error) {
	s := &Store{
		client:  client,
		storage: storage,
		log:     debug.GetLogger(),
	}

	state := &persistedState{}
	if _, err := storage.Get(userEntryName, state); err != nil {
		return nil, errors.Wrap(err, "loading session")
	}
	s.user = state.User
	s.authenticated = state.IsAuthenticated && state.User != nil

	var cookies []persistedCookie
	if _, err := storage.Get(cookiesEntryName, &cookies); err != nil {
		return nil, errors.Wrap(err, "loading session cookies")
	}
	httpCookies := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		httpCookies = append(httpCookies, &http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	client.SetCookies(httpCookies)
	return s, nil
}

// User returns the session user.
func (s *Store) User() (User, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// UserID returns the id of the session user, empty when logged out.
func (s *Store) UserID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// Authenticated reports whether a user is logged in.
func (s *Store) Authenticated() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.authenticated
}

// AssistantName returns the user's name for the assistant, or defaultName.
func (s *Store) AssistantName(defaultName string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.user == nil || s.user.AssistantName == "" {
		return defaultName
	}
	return s.user.AssistantName
}

// Error returns the message of the last failure, if any.
func (s *Store) Error() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.err
}

// FetchCurrentUser asks the backend who the session user is. On failure the session is
// cleared.
func (s *Store) FetchCurrentUser(ctx context.Context) (User, error) {
	apiUser, err := s.client.Me(ctx)
	if err != nil {
		s.mutex.Lock()
		s.user = nil
		s.authenticated = false
		s.err = api.ErrorMessage(err, "Failed to fetch user")
		s.persist()
		s.mutex.Unlock()
		return User{}, err
	}
	return s.setUser(userFromAPI(apiUser)), nil
}

// Login opens a session and fetches its user.
func (s *Store) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, ErrMissingCredentials
	}
	if err := s.client.Login(ctx, email, password); err != nil {
		s.mutex.Lock()
		s.err = api.ErrorMessage(err, "Login failed. Please try again.")
		s.mutex.Unlock()
		return User{}, err
	}
	return s.FetchCurrentUser(ctx)
}

// Logout notifies the backend, then clears the session whatever its answer.
// The backend error, if any, is returned after the session is cleared.
func (s *Store) Logout(ctx context.Context) error {
	serverErr := s.client.Logout(ctx)
	if serverErr != nil {
		s.log.Warn("logout request failed, clearing session anyway", "error", serverErr)
	}

	s.client.ClearCookies()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.user = nil
	s.authenticated = false
	s.err = ""
	s.persist()
	return serverErr
}

// UpdateUser updates the profile of the session user.
func (s *Store) UpdateUser(ctx context.Context, patch *api.UserPatch) (User, error) {
	patch = &api.UserPatch{Name: strings.TrimSpace(patch.Name), Email: strings.TrimSpace(patch.Email)}
	if patch.Name == "" && patch.Email == "" {
		return User{}, ErrEmptyUserPatch
	}
	apiUser, err := s.client.UpdateUser(ctx, patch)
	if err != nil {
		s.mutex.Lock()
		s.err = api.ErrorMessage(err, "Failed to update user")
		s.mutex.Unlock()
		return User{}, err
	}
	return s.setUser(userFromAPI(apiUser)), nil
}

// SetAssistantName names the user's assistant, then refreshes the user.
func (s *Store) SetAssistantName(ctx context.Context, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxAssistantNameLength {
		return User{}, ErrInvalidAssistantName
	}
	if err := s.client.SetAssistantName(ctx, name); err != nil {
		s.mutex.Lock()
		s.err = api.ErrorMessage(err, "Failed to update assistant name")
		s.mutex.Unlock()
		return User{}, err
	}
	return s.FetchCurrentUser(ctx)
}

func (s *Store) setUser(user *User) User {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.user = user
	s.authenticated = true
	s.err = ""
	s.persist()
	return *user
}

// persist writes the session to storage. Must be called with the mutex held.
// Failures are logged: the in-memory session stays authoritative.
func (s *Store) persist() {
	state := &persistedState{User: s.user, IsAuthenticated: s.authenticated}
	if err := s.storage.Put(userEntryName, state); err != nil {
		s.log.Error("persisting session", "error", err)
	}

	if !s.authenticated {
		if err := s.storage.Delete(cookiesEntryName); err != nil {
			s.log.Error("deleting session cookies", "error", err)
		}
		return
	}
	cookies := []persistedCookie{}
	for _, cookie := range s.client.Cookies() {
		cookies = append(cookies, persistedCookie{Name: cookie.Name, Value: cookie.Value})
	}
	if err := s.storage.Put(cookiesEntryName, cookies); err != nil {
		s.log.Error("persisting session cookies", "error", err)
	}
}
