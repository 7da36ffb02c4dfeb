package ws

import "encoding/json"

const (
	EventLogin   = "login"
	EventMessage = "message"
	EventError   = "error"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // "login" | "message" | "error"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON, forwarded verbatim for "message"
}

// ErrorBody is returned to the sender only.
type ErrorBody struct {
	Error string `json:"error"`
}

func errorFrame(msg string) Envelope {
	body, _ := json.Marshal(ErrorBody{Error: msg})
	return Envelope{Event: EventError, Body: body}
}

var messagePrefix = []byte(`{"event":"` + EventMessage + `","body":`)

// messageFrame wraps body as a "message" envelope, keeping its bytes as sent.
func messageFrame(body json.RawMessage) []byte {
	frame := make([]byte, 0, len(messagePrefix)+len(body)+1)
	frame = append(frame, messagePrefix...)
	frame = append(frame, body...)
	return append(frame, '}')
}
