package rooms

import (
	"sort"
	"time"

	"roomrelay/internal/eventlog"

	"go.uber.org/zap"
)

// Conn is the transport side of a connected client.
type Conn interface {
	// Send queues payload for delivery and reports whether it was accepted.
	// It must not block.
	Send(payload []byte) bool
	Close()
}

type State int

const (
	// Terminated also covers identifiers that never connected.
	Terminated State = iota
	Connected
	Assigned
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Assigned:
		return "assigned"
	default:
		return "terminated"
	}
}

type session struct {
	conn  Conn
	name  string
	state State
}

// Stats is a point-in-time view of the directory without room identifiers.
type Stats struct {
	Rooms     int   `json:"rooms"`
	Clients   int   `json:"clients"`
	Connected int   `json:"connected"`
	RoomSizes []int `json:"room_sizes"`
}

// Handler drives the per-client state machine and owns the directory. It is
// not safe for concurrent use: every call must come from one goroutine.
type Handler struct {
	dir      *Directory
	balancer *Balancer
	router   *Router
	sessions map[ClientID]*session
	events   eventlog.Sink
	log      *zap.Logger
	now      func() time.Time
}

func NewHandler(limits Limits, events eventlog.Sink, log *zap.Logger) (*Handler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = eventlog.Nop
	}
	dir := NewDirectory()
	b, err := NewBalancer(dir, limits, log)
	if err != nil {
		return nil, err
	}
	h := &Handler{
		dir:      dir,
		balancer: b,
		sessions: make(map[ClientID]*session),
		events:   events,
		log:      log,
		now:      time.Now,
	}
	h.router = NewRouter(dir, DelivererFunc(h.deliver), log)
	return h, nil
}

func (h *Handler) Connect(id ClientID, conn Conn) {
	if _, ok := h.sessions[id]; ok {
		h.log.Warn("rooms.connect_duplicate", zap.String("client", string(id)))
		return
	}
	h.sessions[id] = &session{conn: conn, state: Connected}
	h.log.Debug("rooms.connect", zap.String("client", string(id)))
	h.record(eventlog.KindConnect, id, "", "")
}

func (h *Handler) Login(id ClientID, name string) {
	s, ok := h.sessions[id]
	if !ok {
		h.log.Warn("rooms.login_unknown", zap.String("client", string(id)))
		return
	}
	if s.state == Assigned {
		h.log.Warn("rooms.login_repeat", zap.String("client", string(id)), zap.String("name", name))
		return
	}

	a, err := h.balancer.AssignClient(id)
	if err != nil {
		h.log.Error("rooms.assign_failed", zap.String("client", string(id)), zap.Error(err))
		return
	}
	s.state = Assigned
	s.name = name
	h.log.Info("rooms.login", zap.String("client", string(id)), zap.String("name", name))
	h.record(eventlog.KindLogin, id, name, string(a.Room))
	for _, sp := range a.Splits {
		h.record(eventlog.KindSplit, id, "", string(sp.From))
	}
}

func (h *Handler) Message(id ClientID, payload []byte) {
	if _, ok := h.sessions[id]; !ok {
		h.log.Warn("rooms.message_unknown", zap.String("client", string(id)))
		return
	}
	h.router.Broadcast(id, payload)
}

// Disconnect removes the client from the system. Later events for the same
// identifier are no-ops.
func (h *Handler) Disconnect(id ClientID) {
	s, ok := h.sessions[id]
	if !ok {
		h.log.Warn("rooms.disconnect_unknown", zap.String("client", string(id)))
		return
	}
	delete(h.sessions, id)

	r := h.balancer.RemoveClient(id)
	h.log.Info("rooms.disconnect",
		zap.String("client", string(id)),
		zap.String("name", s.name),
		zap.Bool("was_assigned", r.Removed),
	)
	h.record(eventlog.KindDisconnect, id, s.name, string(r.Room))
	if len(r.Dissolved) > 0 {
		h.record(eventlog.KindDissolve, id, "", string(r.Room))
	}
	for _, a := range r.Reassigned {
		for _, sp := range a.Splits {
			h.record(eventlog.KindSplit, id, "", string(sp.From))
		}
	}
}

// Shutdown removes every remaining client and closes its transport. Rooms
// are emptied without rebalancing, so only disconnect events are recorded.
func (h *Handler) Shutdown() {
	for id, s := range h.sessions {
		delete(h.sessions, id)
		room, assigned := h.dir.RoomOf(id)
		if assigned {
			if err := h.dir.RemoveMember(room, id); err != nil {
				h.log.Error("rooms.shutdown_remove", zap.String("client", string(id)), zap.Error(err))
			}
		}
		h.record(eventlog.KindDisconnect, id, s.name, string(room))
		if s.conn != nil {
			s.conn.Close()
		}
	}
	h.log.Info("rooms.shutdown", zap.Int("rooms_left", h.dir.RoomCount()))
}

func (h *Handler) State(id ClientID) State {
	if s, ok := h.sessions[id]; ok {
		return s.state
	}
	return Terminated
}

func (h *Handler) RoomOf(id ClientID) (RoomID, bool) { return h.dir.RoomOf(id) }

func (h *Handler) Stats() Stats {
	st := Stats{
		Rooms:     h.dir.RoomCount(),
		Clients:   h.dir.ClientCount(),
		Connected: len(h.sessions),
		RoomSizes: make([]int, 0, h.dir.RoomCount()),
	}
	for _, id := range h.dir.Rooms() {
		n, _ := h.dir.SizeOf(id)
		st.RoomSizes = append(st.RoomSizes, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(st.RoomSizes)))
	return st
}

// Verify reports a directory inconsistency at error level.
func (h *Handler) Verify() error {
	err := h.dir.Verify()
	if err != nil {
		h.log.Error("rooms.invariant_violation", zap.Error(err))
	}
	return err
}

func (h *Handler) deliver(to ClientID, payload []byte) {
	s, ok := h.sessions[to]
	if !ok || s.conn == nil {
		h.log.Error("rooms.deliver_no_session", zap.String("client", string(to)))
		return
	}
	if !s.conn.Send(payload) {
		h.log.Warn("rooms.deliver_dropped", zap.String("client", string(to)))
	}
}

func (h *Handler) record(kind eventlog.Kind, id ClientID, name, room string) {
	h.events.Record(eventlog.Event{
		Kind:     kind,
		ClientID: string(id),
		Name:     name,
		Room:     room,
		Rooms:    h.dir.RoomCount(),
		Clients:  h.dir.ClientCount(),
		At:       h.now(),
	})
}
