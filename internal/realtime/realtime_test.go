package realtime

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeServer speaks just enough Socket.IO to exercise the client.
type fakeServer struct {
	t        *testing.T
	server   *httptest.Server
	received chan string
	cookies  chan string
	refuse   bool
}

func newFakeServer(t *testing.T, refuse bool) *fakeServer {
	f := &fakeServer{
		t:        t,
		received: make(chan string, 16),
		cookies:  make(chan string, 1),
		refuse:   refuse,
	}
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/socket.io/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
			http.Error(w, "bad transport", http.StatusBadRequest)
			return
		}
		if cookie, err := r.Cookie("connect.sid"); err == nil {
			f.cookies <- cookie.Value
		} else {
			f.cookies <- ""
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		f.serve(conn)
	})
	f.server = httptest.NewServer(mux)
	return f
}

func (f *fakeServer) serve(conn *websocket.Conn) {
	conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"e1","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`))
	_, data, err := conn.ReadMessage()
	if err != nil || string(data) != "40" {
		return
	}
	if f.refuse {
		conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"Authentication error"}`))
		return
	}
	conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"s1"}`))
	conn.WriteMessage(websocket.TextMessage, []byte("2"))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		packet := string(data)
		f.received <- packet
		if strings.HasPrefix(packet, `42["ai-message"`) {
			for _, reply := range []string{"first", "second", "third"} {
				conn.WriteMessage(websocket.TextMessage, []byte(`42["ai-response",{"content":"`+reply+`"}]`))
			}
		}
		if packet == "41" {
			return
		}
	}
}

func (f *fakeServer) next(t *testing.T) string {
	select {
	case packet := <-f.received:
		return packet
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for packet")
		return ""
	}
}

func TestChannel_RoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFakeServer(t, false)
	defer f.server.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	serverURL, err := url.Parse(f.server.URL)
	require.NoError(t, err)
	jar.SetCookies(serverURL, []*http.Cookie{{Name: "connect.sid", Value: "s1", Path: "/"}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	channel, err := Dial(ctx, f.server.URL, jar)
	require.NoError(t, err)
	require.Equal(t, "s1", <-f.cookies)

	// The ping sent right after connecting is answered.
	require.Equal(t, "3", f.next(t))

	require.NoError(t, channel.SendMessage(ctx, "c1", "hello"))
	require.Equal(t, `42["ai-message",{"chat":"c1","content":"hello"}]`, f.next(t))

	var contents []string
	for len(contents) < 3 {
		select {
		case event := <-channel.Events():
			response, err := DecodeAIResponse(event)
			require.NoError(t, err)
			contents = append(contents, response.Content)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	require.Equal(t, []string{"first", "second", "third"}, contents)

	require.NoError(t, channel.Close())
	require.Equal(t, "41", f.next(t))
	require.NoError(t, channel.Err())

	_, open := <-channel.Events()
	require.False(t, open)
	require.Error(t, channel.SendMessage(ctx, "c1", "late"))
}

func TestChannel_ConnectRefused(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFakeServer(t, true)
	defer f.server.Close()

	_, err := Dial(context.Background(), f.server.URL, nil)
	require.ErrorContains(t, err, "Authentication error")
}

func TestSocketURL(t *testing.T) {
	for _, tc := range []struct {
		endpoint string
		want     string
	}{
		{"http://localhost:3000", "ws://localhost:3000/socket.io/?EIO=4&transport=websocket"},
		{"https://navi.example.com/", "wss://navi.example.com/socket.io/?EIO=4&transport=websocket"},
		{"wss://socket.example.com/base", "wss://socket.example.com/base/socket.io/?EIO=4&transport=websocket"},
	} {
		got, err := socketURL(tc.endpoint)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}
	_, err := socketURL("ftp://example.com")
	require.Error(t, err)
}

func TestDecodeEvent(t *testing.T) {
	event, err := decodeEvent(`["ai-response",{"content":"hi"}]`)
	require.NoError(t, err)
	require.Equal(t, "ai-response", event.Name)
	require.JSONEq(t, `{"content":"hi"}`, string(event.Payload))

	event, err = decodeEvent(`/chat,12["ai-response",{"content":"ns"}]`)
	require.NoError(t, err)
	require.Equal(t, "ai-response", event.Name)

	event, err = decodeEvent(`["ping"]`)
	require.NoError(t, err)
	require.Nil(t, event.Payload)

	_, err = decodeEvent(`[]`)
	require.Error(t, err)
	_, err = decodeEvent(`not json`)
	require.Error(t, err)
}

func TestEncodeEvent(t *testing.T) {
	packet, err := encodeEvent(EventAIMessage, &AIMessage{Chat: "c", Content: "x"})
	require.NoError(t, err)
	require.Equal(t, `42["ai-message",{"chat":"c","content":"x"}]`, string(packet))
}

func TestDecodeAIResponse(t *testing.T) {
	response, err := DecodeAIResponse(Event{Name: EventAIResponse, Payload: []byte(`{"content":"x","chat":"c","_id":"m"}`)})
	require.NoError(t, err)
	require.Equal(t, &AIResponse{Content: "x", Chat: "c", ID: "m"}, response)

	_, err = DecodeAIResponse(Event{Name: "other"})
	require.Error(t, err)
}
