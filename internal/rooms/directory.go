package rooms

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type (
	ClientID string
	RoomID   string
)

var (
	ErrNotFound        = errors.New("room not found")
	ErrAlreadyAssigned = errors.New("client already assigned")
)

type room struct {
	id      RoomID
	members []ClientID // insertion order, oldest first
}

func (r *room) indexOf(c ClientID) int {
	for i, m := range r.members {
		if m == c {
			return i
		}
	}
	return -1
}

// Directory maps room identifiers to their members. It holds no policy and is
// not safe for concurrent use; callers serialise access.
type Directory struct {
	rooms    map[RoomID]*room
	order    []RoomID // creation order, used for stable iteration
	clientOf map[ClientID]RoomID
	newID    func() RoomID
}

func NewDirectory() *Directory {
	return newDirectory(func() RoomID { return RoomID(uuid.NewString()) })
}

func newDirectory(gen func() RoomID) *Directory {
	return &Directory{
		rooms:    make(map[RoomID]*room),
		clientOf: make(map[ClientID]RoomID),
		newID:    gen,
	}
}

// CreateRoom inserts an empty room under a fresh identifier. The caller is
// expected to add a member before the current event finishes.
func (d *Directory) CreateRoom() RoomID {
	id := d.newID()
	for _, taken := d.rooms[id]; taken; _, taken = d.rooms[id] {
		id = d.newID()
	}
	d.rooms[id] = &room{id: id}
	d.order = append(d.order, id)
	return id
}

func (d *Directory) AddMember(roomID RoomID, c ClientID) error {
	r, ok := d.rooms[roomID]
	if !ok {
		return fmt.Errorf("add %s to %s: %w", c, roomID, ErrNotFound)
	}
	if cur, ok := d.clientOf[c]; ok {
		return fmt.Errorf("add %s to %s (in %s): %w", c, roomID, cur, ErrAlreadyAssigned)
	}
	r.members = append(r.members, c)
	d.clientOf[c] = roomID
	return nil
}

// RemoveMember drops c from the room and deletes the room once it is empty.
func (d *Directory) RemoveMember(roomID RoomID, c ClientID) error {
	r, ok := d.rooms[roomID]
	if !ok {
		return fmt.Errorf("remove %s from %s: %w", c, roomID, ErrNotFound)
	}
	i := r.indexOf(c)
	if i < 0 {
		return fmt.Errorf("remove %s from %s: client %w", c, roomID, ErrNotFound)
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	delete(d.clientOf, c)
	if len(r.members) == 0 {
		d.deleteRoom(roomID)
	}
	return nil
}

func (d *Directory) deleteRoom(roomID RoomID) {
	delete(d.rooms, roomID)
	for i, id := range d.order {
		if id == roomID {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Directory) RoomOf(c ClientID) (RoomID, bool) {
	id, ok := d.clientOf[c]
	return id, ok
}

func (d *Directory) SizeOf(roomID RoomID) (int, error) {
	r, ok := d.rooms[roomID]
	if !ok {
		return 0, fmt.Errorf("size of %s: %w", roomID, ErrNotFound)
	}
	return len(r.members), nil
}

// MembersOf returns a copy of the room's members, oldest first.
func (d *Directory) MembersOf(roomID RoomID) ([]ClientID, error) {
	r, ok := d.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("members of %s: %w", roomID, ErrNotFound)
	}
	out := make([]ClientID, len(r.members))
	copy(out, r.members)
	return out, nil
}

// QuietestRoom returns the room with the fewest members; ties go to the room
// created first.
func (d *Directory) QuietestRoom() (RoomID, bool) {
	var (
		best     RoomID
		bestSize = -1
	)
	for _, id := range d.order {
		n := len(d.rooms[id].members)
		if bestSize == -1 || n < bestSize {
			best, bestSize = id, n
		}
	}
	return best, bestSize != -1
}

// Rooms lists room identifiers in creation order.
func (d *Directory) Rooms() []RoomID {
	out := make([]RoomID, len(d.order))
	copy(out, d.order)
	return out
}

func (d *Directory) RoomCount() int   { return len(d.rooms) }
func (d *Directory) ClientCount() int { return len(d.clientOf) }

// Verify cross-checks the room tables against the client index. A non-nil
// result is a programming error.
func (d *Directory) Verify() error {
	if len(d.order) != len(d.rooms) {
		return fmt.Errorf("order lists %d rooms, table holds %d", len(d.order), len(d.rooms))
	}
	seen := make(map[ClientID]RoomID, len(d.clientOf))
	for _, id := range d.order {
		r, ok := d.rooms[id]
		if !ok {
			return fmt.Errorf("room %s ordered but missing", id)
		}
		if len(r.members) == 0 {
			return fmt.Errorf("room %s is empty", id)
		}
		for _, c := range r.members {
			if other, dup := seen[c]; dup {
				return fmt.Errorf("client %s in rooms %s and %s", c, other, id)
			}
			seen[c] = id
			if d.clientOf[c] != id {
				return fmt.Errorf("client %s indexed to %s, found in %s", c, d.clientOf[c], id)
			}
		}
	}
	if len(seen) != len(d.clientOf) {
		return fmt.Errorf("index holds %d clients, rooms hold %d", len(d.clientOf), len(seen))
	}
	return nil
}
