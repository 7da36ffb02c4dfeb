package rooms

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrInvalidLimits = errors.New("invalid room limits")

// Limits is the steady-state population band of a room.
type Limits struct {
	MinPerRoom int
	MaxPerRoom int
}

func DefaultLimits() Limits { return Limits{MinPerRoom: 3, MaxPerRoom: 10} }

func (l Limits) Validate() error {
	if l.MinPerRoom < 1 || l.MinPerRoom > l.MaxPerRoom {
		return fmt.Errorf("%w: min=%d max=%d", ErrInvalidLimits, l.MinPerRoom, l.MaxPerRoom)
	}
	return nil
}

// Split records members moved out of an overgrown room.
type Split struct {
	From  RoomID
	To    RoomID
	Moved []ClientID
}

type Assignment struct {
	Room   RoomID
	Splits []Split
}

type Removal struct {
	Room       RoomID
	Removed    bool
	Dissolved  []ClientID // members redistributed because Room fell below the minimum
	Reassigned []Assignment
}

// Balancer keeps room populations within Limits by creating, splitting and
// dissolving rooms as clients come and go.
type Balancer struct {
	dir    *Directory
	limits Limits
	log    *zap.Logger
}

func NewBalancer(dir *Directory, limits Limits, log *zap.Logger) (*Balancer, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Balancer{dir: dir, limits: limits, log: log}, nil
}

func (b *Balancer) Limits() Limits { return b.limits }

// AssignClient places c in the quietest room, creating one when none exist,
// and splits that room if it grew past MaxPerRoom.
func (b *Balancer) AssignClient(c ClientID) (Assignment, error) {
	if cur, ok := b.dir.RoomOf(c); ok {
		return Assignment{Room: cur}, fmt.Errorf("assign %s: %w", c, ErrAlreadyAssigned)
	}

	target, ok := b.dir.QuietestRoom()
	if !ok {
		target = b.dir.CreateRoom()
		b.log.Debug("rooms.create", zap.String("room", string(target)))
	}
	if err := b.dir.AddMember(target, c); err != nil {
		return Assignment{}, err
	}

	var out Assignment
	for {
		size, err := b.dir.SizeOf(target)
		if err != nil || size <= b.limits.MaxPerRoom {
			break
		}
		s, err := b.split(target)
		if err != nil {
			return out, err
		}
		out.Splits = append(out.Splits, s)
	}

	out.Room, _ = b.dir.RoomOf(c)
	return out, nil
}

// split moves the MinPerRoom most recently added members of roomID into a
// new room.
func (b *Balancer) split(roomID RoomID) (Split, error) {
	members, err := b.dir.MembersOf(roomID)
	if err != nil {
		return Split{}, err
	}
	moved := members[len(members)-b.limits.MinPerRoom:]

	for _, m := range moved {
		if err := b.dir.RemoveMember(roomID, m); err != nil {
			return Split{}, err
		}
	}
	to := b.dir.CreateRoom()
	for _, m := range moved {
		if err := b.dir.AddMember(to, m); err != nil {
			return Split{}, err
		}
	}

	b.log.Info("rooms.split",
		zap.String("from", string(roomID)),
		zap.String("to", string(to)),
		zap.Int("from_size", len(members)-len(moved)),
		zap.Int("to_size", len(moved)),
	)
	return Split{From: roomID, To: to, Moved: moved}, nil
}

// RemoveClient takes c out of its room. A room left with fewer than
// MinPerRoom members is dissolved and its members assigned elsewhere. Removing
// an unassigned client is a no-op.
func (b *Balancer) RemoveClient(c ClientID) Removal {
	roomID, ok := b.dir.RoomOf(c)
	if !ok {
		return Removal{}
	}
	if err := b.dir.RemoveMember(roomID, c); err != nil {
		b.log.Error("rooms.remove_inconsistent", zap.String("client", string(c)), zap.Error(err))
		return Removal{Room: roomID}
	}
	out := Removal{Room: roomID, Removed: true}

	size, err := b.dir.SizeOf(roomID)
	if err != nil || size >= b.limits.MinPerRoom {
		return out // emptied and pruned, or still healthy
	}

	members, _ := b.dir.MembersOf(roomID)
	for _, m := range members {
		if err := b.dir.RemoveMember(roomID, m); err != nil {
			b.log.Error("rooms.dissolve_inconsistent", zap.String("client", string(m)), zap.Error(err))
		}
	}
	out.Dissolved = members
	b.log.Info("rooms.dissolve", zap.String("room", string(roomID)), zap.Int("remaining", len(members)))

	for _, m := range members {
		a, err := b.AssignClient(m)
		if err != nil {
			b.log.Error("rooms.reassign_failed", zap.String("client", string(m)), zap.Error(err))
			continue
		}
		out.Reassigned = append(out.Reassigned, a)
	}
	return out
}
