// Package realtime implements the client side of the backend's Socket.IO channel,
// over a single websocket (Engine.IO v4, no polling fallback).
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/malonaz/navi/internal/debug"
)

const (
	// EventAIMessage carries a user message to the assistant.
	EventAIMessage = "ai-message"
	// EventAIResponse carries the assistant's reply.
	EventAIResponse = "ai-response"

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	eventBufferSize  = 64
)

// ErrClosed is reported when the server closes the channel.
var ErrClosed = errors.New("realtime channel closed by server")

// AIMessage is the payload of an outbound 'ai-message' event.
type AIMessage struct {
	Chat    string `json:"chat"`
	Content string `json:"content"`
}

// AIResponse is the payload of an inbound 'ai-response' event. Chat and ID are only
// present when the backend provides them.
type AIResponse struct {
	Content string `json:"content"`
	Chat    string `json:"chat,omitempty"`
	ID      string `json:"_id,omitempty"`
}

// DecodeAIResponse decodes the payload of an 'ai-response' event.
func DecodeAIResponse(event Event) (*AIResponse, error) {
	if event.Name != EventAIResponse {
		return nil, errors.Errorf("unexpected event %s", event.Name)
	}
	response := &AIResponse{}
	if err := json.Unmarshal(event.Payload, response); err != nil {
		return nil, errors.Wrap(err, "unmarshaling ai-response")
	}
	return response, nil
}

// Channel is an open Socket.IO connection. Inbound events are delivered in transport
// order on Events(), which is closed when the channel terminates.
type Channel struct {
	conn         *websocket.Conn
	pingDeadline time.Duration
	log          *slog.Logger

	writeMutex sync.Mutex
	events     chan Event
	closing    chan struct{}
	done       chan struct{}
	closeOnce  sync.Once

	errMutex sync.Mutex
	err      error
}

// Dial opens a channel to the Socket.IO server at endpoint (an http(s) or ws(s) base
// URL). Cookies for the endpoint are read from jar, which may be nil.
func Dial(ctx context.Context, endpoint string, jar http.CookieJar) (*Channel, error) {
	socketURL, err := socketURL(endpoint)
	if err != nil {
		return nil, err
	}
	log := debug.GetLogger()

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Jar:              jar,
	}
	conn, _, err := dialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", socketURL)
	}

	c := &Channel{
		conn:    conn,
		log:     log,
		events:  make(chan Event, eventBufferSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := c.handshake(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "socket.io handshake")
	}
	log.Info("realtime channel open", "url", socketURL)

	go c.readLoop()
	return c, nil
}

// socketURL derives the websocket URL of the Engine.IO endpoint.
func socketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parsing socket endpoint")
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported socket scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}

// handshake reads the Engine.IO open packet and connects to the default namespace.
func (c *Channel) handshake(ctx context.Context) error {
	deadline := time.Now().Add(handshakeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return errors.Wrap(err, "reading open packet")
	}
	if len(data) == 0 || data[0] != engineOpen {
		return errors.Errorf("expected open packet, got %q", data)
	}
	open := &openPayload{}
	if err := json.Unmarshal(data[1:], open); err != nil {
		return errors.Wrap(err, "unmarshaling open packet")
	}
	if open.PingInterval > 0 {
		c.pingDeadline = time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond
	}

	if err := c.write([]byte{engineMessage, socketConnect}); err != nil {
		return errors.Wrap(err, "writing connect packet")
	}
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "reading connect packet")
		}
		packet := string(data)
		switch {
		case packet == string(enginePing):
			if err := c.write([]byte{enginePong}); err != nil {
				return errors.Wrap(err, "writing pong")
			}
		case strings.HasPrefix(packet, string([]byte{engineMessage, socketConnect})):
			return nil
		case strings.HasPrefix(packet, string([]byte{engineMessage, socketConnectError})):
			return errors.Errorf("connection refused: %s", connectErrorMessage(packet[2:]))
		default:
			return errors.Errorf("unexpected packet %q", packet)
		}
	}
}

// readLoop dispatches inbound packets until the connection fails or is closed.
func (c *Channel) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		if c.pingDeadline > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.pingDeadline))
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closing:
			default:
				c.setErr(errors.Wrap(err, "reading packet"))
			}
			return
		}

		packet := string(data)
		switch {
		case packet == string(enginePing):
			if err := c.write([]byte{enginePong}); err != nil {
				c.setErr(errors.Wrap(err, "writing pong"))
				return
			}

		case packet == string(engineClose), packet == string([]byte{engineMessage, socketDisconnect}):
			c.setErr(ErrClosed)
			return

		case strings.HasPrefix(packet, string([]byte{engineMessage, socketEvent})):
			event, err := decodeEvent(packet[2:])
			if err != nil {
				c.log.Warn("dropping malformed event", "packet", packet, "error", err)
				continue
			}
			select {
			case c.events <- event:
			case <-c.closing:
				return
			}

		default:
			c.log.Debug("ignoring packet", "packet", packet)
		}
	}
}

func (c *Channel) write(data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Channel) setErr(err error) {
	c.errMutex.Lock()
	defer c.errMutex.Unlock()
	if c.err == nil {
		c.err = err
		c.log.Error("realtime channel terminated", "error", err)
	}
}

// Err returns the error that terminated the channel, if any.
func (c *Channel) Err() error {
	c.errMutex.Lock()
	defer c.errMutex.Unlock()
	return c.err
}

// Events returns the inbound events.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Emit sends an event.
func (c *Channel) Emit(ctx context.Context, name string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.done:
		if err := c.Err(); err != nil {
			return errors.Wrap(err, "channel terminated")
		}
		return errors.New("channel closed")
	default:
	}
	packet, err := encodeEvent(name, payload)
	if err != nil {
		return err
	}
	if err := c.write(packet); err != nil {
		return errors.Wrapf(err, "emitting %s", name)
	}
	return nil
}

// SendMessage emits an 'ai-message' event for the given chat.
func (c *Channel) SendMessage(ctx context.Context, chatID, content string) error {
	return c.Emit(ctx, EventAIMessage, &AIMessage{Chat: chatID, Content: content})
}

// Close disconnects from the server and waits for the read loop to exit.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closing)
		c.write([]byte{engineMessage, socketDisconnect})
		err = c.conn.Close()
		<-c.done
		c.log.Info("realtime channel closed")
	})
	return err
}
