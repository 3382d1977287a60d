package realtime

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Engine.IO packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
)

// Socket.IO packet types, carried inside Engine.IO message packets.
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'
)

// openPayload is sent by the server in the Engine.IO open packet.
type openPayload struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

// Event is a named Socket.IO event.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// encodeEvent encodes an event into an Engine.IO message packet.
func encodeEvent(name string, payload any) ([]byte, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	bytes, err := json.Marshal(args)
	if err != nil {
		return nil, errors.Wrapf(err, "marshaling event %s", name)
	}
	return append([]byte{engineMessage, socketEvent}, bytes...), nil
}

// decodeEvent decodes the body of a Socket.IO event packet: an optional namespace,
// an optional ack id and a JSON array of [name, payload...].
func decodeEvent(body string) (Event, error) {
	if strings.HasPrefix(body, "/") {
		if i := strings.IndexByte(body, ','); i >= 0 {
			body = body[i+1:]
		}
	}
	body = strings.TrimLeftFunc(body, unicode.IsDigit)

	var args []json.RawMessage
	if err := json.Unmarshal([]byte(body), &args); err != nil {
		return Event{}, errors.Wrap(err, "unmarshaling event arguments")
	}
	if len(args) == 0 {
		return Event{}, errors.New("event has no name")
	}
	event := Event{}
	if err := json.Unmarshal(args[0], &event.Name); err != nil {
		return Event{}, errors.Wrap(err, "unmarshaling event name")
	}
	if len(args) > 1 {
		event.Payload = args[1]
	}
	return event, nil
}

// connectErrorMessage extracts the message of a Socket.IO connect error packet body.
func connectErrorMessage(body string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal([]byte(body), &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return body
}
