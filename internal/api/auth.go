package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// UserPatch holds the user fields that can be updated. Empty fields are left unchanged.
type UserPatch struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Me returns the user of the current session.
func (c *Client) Me(ctx context.Context) (*User, error) {
	response := &UserResponse{}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, response); err != nil {
		return nil, errors.Wrap(err, "fetching current user")
	}
	return response.User, nil
}

// Login opens a session. The session cookie is stored in the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	request := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", request, nil); err != nil {
		return errors.Wrap(err, "logging in")
	}
	return nil
}

// Logout closes the session on the backend.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return errors.Wrap(err, "logging out")
	}
	return nil
}

// UpdateUser updates the profile of the session user.
func (c *Client) UpdateUser(ctx context.Context, patch *UserPatch) (*User, error) {
	response := &UserResponse{}
	if err := c.do(ctx, http.MethodPut, "/auth/update", patch, response); err != nil {
		return nil, errors.Wrap(err, "updating user")
	}
	return response.User, nil
}

// SetAssistantName sets the display name of the user's assistant.
func (c *Client) SetAssistantName(ctx context.Context, name string) error {
	request := struct {
		AIAssistantName string `json:"aiAssistantName"`
	}{AIAssistantName: name}
	if err := c.do(ctx, http.MethodPost, "/auth/give-ai-assistant-name", request, nil); err != nil {
		return errors.Wrap(err, "setting assistant name")
	}
	return nil
}
