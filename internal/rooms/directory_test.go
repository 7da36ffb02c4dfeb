package rooms

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqDirectory numbers rooms r1, r2, ... so tests can name them.
func seqDirectory() *Directory {
	n := 0
	return newDirectory(func() RoomID {
		n++
		return RoomID(fmt.Sprintf("r%d", n))
	})
}

func TestDirectory_AddAndLookup(t *testing.T) {
	d := seqDirectory()
	r := d.CreateRoom()
	require.NoError(t, d.AddMember(r, "a"))
	require.NoError(t, d.AddMember(r, "b"))

	got, ok := d.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, r, got)

	size, err := d.SizeOf(r)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	members, err := d.MembersOf(r)
	require.NoError(t, err)
	assert.Equal(t, []ClientID{"a", "b"}, members)
	assert.NoError(t, d.Verify())
}

func TestDirectory_MembersOfReturnsCopy(t *testing.T) {
	d := seqDirectory()
	r := d.CreateRoom()
	require.NoError(t, d.AddMember(r, "a"))

	members, _ := d.MembersOf(r)
	members[0] = "mutated"

	again, _ := d.MembersOf(r)
	assert.Equal(t, []ClientID{"a"}, again)
}

func TestDirectory_RemoveLastMemberPrunesRoom(t *testing.T) {
	d := seqDirectory()
	r := d.CreateRoom()
	require.NoError(t, d.AddMember(r, "a"))
	require.NoError(t, d.RemoveMember(r, "a"))

	assert.Equal(t, 0, d.RoomCount())
	_, ok := d.RoomOf("a")
	assert.False(t, ok)
	_, err := d.SizeOf(r)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, d.Rooms())
}

func TestDirectory_NotFound(t *testing.T) {
	d := seqDirectory()
	assert.ErrorIs(t, d.AddMember("missing", "a"), ErrNotFound)
	assert.ErrorIs(t, d.RemoveMember("missing", "a"), ErrNotFound)
	_, err := d.MembersOf("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	r := d.CreateRoom()
	require.NoError(t, d.AddMember(r, "a"))
	assert.ErrorIs(t, d.RemoveMember(r, "stranger"), ErrNotFound)
}

func TestDirectory_RejectsDoubleAssignment(t *testing.T) {
	d := seqDirectory()
	r1 := d.CreateRoom()
	r2 := d.CreateRoom()
	require.NoError(t, d.AddMember(r1, "a"))

	err := d.AddMember(r2, "a")
	assert.ErrorIs(t, err, ErrAlreadyAssigned)

	got, _ := d.RoomOf("a")
	assert.Equal(t, r1, got)
}

func TestDirectory_QuietestRoom(t *testing.T) {
	d := seqDirectory()
	_, ok := d.QuietestRoom()
	assert.False(t, ok)

	r1 := d.CreateRoom()
	r2 := d.CreateRoom()
	r3 := d.CreateRoom()
	for _, c := range []ClientID{"a", "b"} {
		require.NoError(t, d.AddMember(r1, c))
	}
	require.NoError(t, d.AddMember(r2, "c"))
	require.NoError(t, d.AddMember(r3, "d"))

	// r2 and r3 tie; the older room wins
	q, ok := d.QuietestRoom()
	require.True(t, ok)
	assert.Equal(t, r2, q)

	require.NoError(t, d.RemoveMember(r2, "c"))
	q, _ = d.QuietestRoom()
	assert.Equal(t, r3, q)
}

func TestDirectory_CreateRoomSkipsCollisions(t *testing.T) {
	ids := []RoomID{"same", "same", "other"}
	d := newDirectory(func() RoomID {
		id := ids[0]
		ids = ids[1:]
		return id
	})
	assert.Equal(t, RoomID("same"), d.CreateRoom())
	assert.Equal(t, RoomID("other"), d.CreateRoom())
}

func TestDirectory_DefaultIDsAreUnique(t *testing.T) {
	d := NewDirectory()
	a, b := d.CreateRoom(), d.CreateRoom()
	assert.NotEqual(t, a, b)
	assert.Len(t, string(a), 36)
}

func TestDirectory_VerifyDetectsCorruption(t *testing.T) {
	d := seqDirectory()
	r1 := d.CreateRoom()
	r2 := d.CreateRoom()
	require.NoError(t, d.AddMember(r1, "a"))
	require.NoError(t, d.AddMember(r2, "b"))
	require.NoError(t, d.Verify())

	d.rooms[r2].members = append(d.rooms[r2].members, "a")
	assert.ErrorContains(t, d.Verify(), "client a in rooms r1 and r2")
}

func TestDirectory_VerifyDetectsEmptyRoom(t *testing.T) {
	d := seqDirectory()
	d.CreateRoom()
	assert.ErrorContains(t, d.Verify(), "is empty")
}
