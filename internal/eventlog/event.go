// Package eventlog records client lifecycle and room rebalancing events.
package eventlog

import (
	"strconv"
	"time"
)

type Kind string

const (
	KindConnect    Kind = "connect"
	KindLogin      Kind = "login"
	KindDisconnect Kind = "disconnect"
	KindSplit      Kind = "split"
	KindDissolve   Kind = "dissolve"
)

// Event is one lifecycle record. Rooms and Clients are the directory totals
// after the event was applied.
type Event struct {
	Kind     Kind
	ClientID string
	Name     string
	Room     string // internal identifier, never sent to clients
	Rooms    int
	Clients  int
	At       time.Time
}

// Sink accepts events from the reactor goroutine. Record must not block.
type Sink interface {
	Record(Event)
}

type nop struct{}

func (nop) Record(Event) {}

// Nop discards every event.
var Nop Sink = nop{}

// Values flattens the event into ordered stream field/value pairs.
func (e Event) Values() []any {
	return []any{
		"kind", string(e.Kind),
		"client", e.ClientID,
		"name", e.Name,
		"room", e.Room,
		"rooms", strconv.Itoa(e.Rooms),
		"clients", strconv.Itoa(e.Clients),
		"at", strconv.FormatInt(e.At.UnixMilli(), 10),
	}
}
