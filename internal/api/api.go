// Package api implements a typed client for the navi backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/malonaz/navi/internal/debug"
)

var (
	// ErrUnauthorized is matched by a StatusError with code 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is matched by a StatusError with code 404.
	ErrNotFound = errors.New("not found")
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Message)
}

// Is lets errors.Is match the sentinel errors of this package.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Code == http.StatusUnauthorized
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	}
	return false
}

// DecodeError is returned when a response body does not match its schema.
type DecodeError struct {
	Schema string
	Field  string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding %s: %v", e.Schema, e.Err)
	}
	return fmt.Sprintf("decoding %s: missing required field %q", e.Schema, e.Field)
}

// Unwrap returns the underlying json error, if any.
func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorMessage returns the user-facing text of an error: the backend's message when
// there is one, the fallback otherwise.
func ErrorMessage(err error, fallback string) string {
	var statusError *StatusError
	if errors.As(err, &statusError) && statusError.Message != "" {
		return statusError.Message
	}
	return fallback
}

// Client of the REST API. Authentication is carried by the session cookie held in its jar.
type Client struct {
	baseURL    string
	jar        *cookiejar.Jar
	httpClient *http.Client
	log        *slog.Logger
}

// New instantiates and returns a client rooted at baseURL (e.g. 'http://host/api').
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "parsing base url")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "creating cookie jar")
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		jar:     jar,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		log: debug.GetLogger(),
	}, nil
}

// Jar returns the cookie jar holding the session, for use by other transports.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// Cookies returns the cookies the jar holds for the backend.
func (c *Client) Cookies() []*http.Cookie {
	u, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return nil
	}
	return c.jar.Cookies(u)
}

// SetCookies restores previously persisted cookies into the jar.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	u, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return
	}
	// Persisted cookies only carry name and value: scope them to the whole host.
	scoped := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		scoped = append(scoped, &http.Cookie{Name: cookie.Name, Value: cookie.Value, Path: "/"})
	}
	c.jar.SetCookies(u, scoped)
}

// ClearCookies expires every cookie the jar holds for the backend.
func (c *Client) ClearCookies() {
	u, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return
	}
	cookies := c.jar.Cookies(u)
	expired := make([]*http.Cookie, 0, len(cookies))
	for _, cookie := range cookies {
		expired = append(expired, &http.Cookie{Name: cookie.Name, Path: "/", MaxAge: -1})
	}
	c.jar.SetCookies(u, expired)
}

type validator interface {
	validate() error
}

// do issues a JSON request and decodes the response into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshaling request body")
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.log.Error("request failed", "method", method, "path", path, "error", err)
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return errors.Wrap(err, "reading response body")
	}
	c.log.Debug("request completed", "method", method, "path", path, "status", response.StatusCode, "duration", time.Since(start))

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return newStatusError(response.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Schema: fmt.Sprintf("%T", out), Err: err}
	}
	if v, ok := out.(validator); ok {
		return v.validate()
	}
	return nil
}

func newStatusError(code int, body []byte) *StatusError {
	statusError := &StatusError{Code: code}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		statusError.Message = payload.Message
	}
	return statusError
}
