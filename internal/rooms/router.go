package rooms

import "go.uber.org/zap"

// Deliverer hands a payload to one client's transport. It must not block.
type Deliverer interface {
	Deliver(to ClientID, payload []byte)
}

type DelivererFunc func(to ClientID, payload []byte)

func (f DelivererFunc) Deliver(to ClientID, payload []byte) { f(to, payload) }

// Router fans a sender's payload out to the other members of its room.
type Router struct {
	dir *Directory
	out Deliverer
	log *zap.Logger
}

func NewRouter(dir *Directory, out Deliverer, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{dir: dir, out: out, log: log}
}

// Broadcast delivers payload to every member of the sender's room except the
// sender and returns how many recipients it reached. Senders without a room
// are dropped.
func (r *Router) Broadcast(sender ClientID, payload []byte) int {
	roomID, ok := r.dir.RoomOf(sender)
	if !ok {
		r.log.Warn("rooms.broadcast_unassigned", zap.String("client", string(sender)))
		return 0
	}
	members, err := r.dir.MembersOf(roomID)
	if err != nil {
		r.log.Error("rooms.broadcast_inconsistent", zap.String("client", string(sender)), zap.Error(err))
		return 0
	}

	sent := 0
	for _, m := range members {
		if m == sender {
			continue
		}
		r.out.Deliver(m, payload)
		sent++
	}
	if sent == 0 {
		r.log.Warn("rooms.broadcast_no_recipients",
			zap.String("client", string(sender)),
			zap.String("room", string(roomID)),
		)
	}
	return sent
}
