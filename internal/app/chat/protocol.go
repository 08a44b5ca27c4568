package chat

import (
	"encoding/json"
)

// Event names a frame on the wire.
type Event string

const (
	// EventMessage carries {content} from a client and a stored message.Message to clients.
	EventMessage Event = "message"

	// EventTyping carries {user} from a client and the sender's username to the others.
	EventTyping Event = "typing"

	// EventUsers carries the presence snapshot.
	EventUsers Event = "users"

	// EventError carries an ErrorPayload to a single client.
	EventError Event = "error"
)

// Envelope is the JSON frame exchanged in both directions.
type Envelope struct {
	Event Event           `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// TextPayload is the data of an inbound message event.
type TextPayload struct {
	Content string `json:"content"`
}

// TypingPayload is the data of an inbound typing event. User is what the client claims to
// be and is ignored.
type TypingPayload struct {
	User string `json:"user"`
}

// ErrorPayload is the data of an outbound error event.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// encodeFrame marshals data into an envelope for event.
func encodeFrame(event Event, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Event: event, Data: raw})
}
