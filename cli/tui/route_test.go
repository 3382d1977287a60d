package tui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRoute(t *testing.T) {
	for _, tc := range []struct {
		path string
		want Route
	}{
		{"", Route{Kind: RouteHome}},
		{"/", Route{Kind: RouteHome}},
		{"/chat/abc", Route{Kind: RouteChat, ChatID: "abc"}},
		{"/chat/abc/", Route{Kind: RouteChat, ChatID: "abc"}},
		{"/shared/abc/u1", Route{Kind: RouteShared, ChatID: "abc", UserID: "u1"}},
		{"/shared/abc", Route{Kind: RouteShared, ChatID: "abc"}},
		{"/shared", Route{Kind: RouteShared}},
		{"/login", Route{Kind: RouteLogin}},
		{"/register?ref=web", Route{Kind: RouteRegister}},
		{"/chat/a%2Fb", Route{Kind: RouteChat, ChatID: "a/b"}},
	} {
		got, err := ParseRoute(tc.path)
		require.NoError(t, err, tc.path)
		require.Equal(t, tc.want, got, tc.path)
	}

	for _, path := range []string{"/chat", "/chat/a/b", "/settings", "/login/x", "/shared/a/b/c"} {
		_, err := ParseRoute(path)
		require.ErrorIs(t, err, ErrUnknownRoute, path)
	}
}

func TestRoute_PathRoundTrip(t *testing.T) {
	for _, route := range []Route{
		{Kind: RouteHome},
		{Kind: RouteChat, ChatID: "a/b"},
		{Kind: RouteShared, ChatID: "abc", UserID: "u1"},
		{Kind: RouteShared, ChatID: "abc"},
		{Kind: RouteRegister},
		{Kind: RouteLogin},
	} {
		parsed, err := ParseRoute(route.Path())
		require.NoError(t, err, route.Path())
		require.Equal(t, route, parsed)
	}
	require.Equal(t, "/shared/abc/u1", Route{Kind: RouteShared, ChatID: "abc", UserID: "u1"}.Path())
}

func TestGuard(t *testing.T) {
	for _, tc := range []struct {
		route         Route
		authenticated bool
		want          Route
		message       string
	}{
		{Route{Kind: RouteHome}, false, Route{Kind: RouteLogin}, "Please login first to access this page"},
		{Route{Kind: RouteChat, ChatID: "a"}, false, Route{Kind: RouteLogin}, "Please login first to access this page"},
		{Route{Kind: RouteChat, ChatID: "a"}, true, Route{Kind: RouteChat, ChatID: "a"}, ""},
		{Route{Kind: RouteShared, ChatID: "a", UserID: "u"}, false, Route{Kind: RouteShared, ChatID: "a", UserID: "u"}, ""},
		{Route{Kind: RouteLogin}, false, Route{Kind: RouteLogin}, ""},
		{Route{Kind: RouteRegister}, false, Route{Kind: RouteRegister}, ""},
	} {
		got, message := Guard(tc.route, tc.authenticated)
		require.Equal(t, tc.want, got, tc.route.Path())
		require.Equal(t, tc.message, message, tc.route.Path())
	}
}
