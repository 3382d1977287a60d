package tui

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// RouteKind identifies a screen of the application.
type RouteKind int

const (
	RouteHome RouteKind = iota
	RouteChat
	RouteShared
	RouteRegister
	RouteLogin
)

const loginRequiredMessage = "Please login first to access this page"

// ErrUnknownRoute is returned when parsing a path that matches no route.
var ErrUnknownRoute = errors.New("unknown route")

// Route is a parsed application path.
type Route struct {
	Kind   RouteKind
	ChatID string
	// UserID is the owner of a shared chat.
	UserID string
}

// ParseRoute parses an application path. Shared chat paths with missing segments are
// accepted; the shared view reports them.
func ParseRoute(path string) (Route, error) {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segments := []string{}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		unescaped, err := url.PathUnescape(segment)
		if err != nil {
			return Route{}, errors.Wrapf(err, "parsing route %q", path)
		}
		segments = append(segments, unescaped)
	}

	if len(segments) == 0 {
		return Route{Kind: RouteHome}, nil
	}
	switch segments[0] {
	case "chat":
		if len(segments) == 2 {
			return Route{Kind: RouteChat, ChatID: segments[1]}, nil
		}
	case "shared":
		if len(segments) <= 3 {
			route := Route{Kind: RouteShared}
			if len(segments) > 1 {
				route.ChatID = segments[1]
			}
			if len(segments) > 2 {
				route.UserID = segments[2]
			}
			return route, nil
		}
	case "register":
		if len(segments) == 1 {
			return Route{Kind: RouteRegister}, nil
		}
	case "login":
		if len(segments) == 1 {
			return Route{Kind: RouteLogin}, nil
		}
	}
	return Route{}, errors.Wrapf(ErrUnknownRoute, "%q", path)
}

// Path returns the path of the route.
func (r Route) Path() string {
	switch r.Kind {
	case RouteChat:
		return "/chat/" + url.PathEscape(r.ChatID)
	case RouteShared:
		path := "/shared"
		if r.ChatID != "" {
			path += "/" + url.PathEscape(r.ChatID)
			if r.UserID != "" {
				path += "/" + url.PathEscape(r.UserID)
			}
		}
		return path
	case RouteRegister:
		return "/register"
	case RouteLogin:
		return "/login"
	default:
		return "/"
	}
}

// Private reports whether the route requires an authenticated session.
func (r Route) Private() bool {
	return r.Kind == RouteHome || r.Kind == RouteChat
}

// isChatView reports whether the route renders the chat interface.
func (r Route) isChatView() bool {
	return r.Kind == RouteHome || r.Kind == RouteChat
}

// Guard returns the route to display for the requested one. Private routes redirect to
// the login route when no session is open, with the message to notify the user with.
func Guard(requested Route, authenticated bool) (Route, string) {
	if requested.Private() && !authenticated {
		return Route{Kind: RouteLogin}, loginRequiredMessage
	}
	return requested, ""
}
