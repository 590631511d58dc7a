package tracking

import (
	"fmt"
	"strings"
)

// RoomID identifies a monitored zone, e.g. "Room A".
type RoomID string

// DefaultRoomList is the room set used when none is configured.
const DefaultRoomList = "Room A,Room B"

// Rooms is the ordered set of known room identifiers.
type Rooms struct {
	order []RoomID
	index map[RoomID]struct{}
}

// NewRooms builds a registry from the given ids. Blank and duplicate ids are
// ignored; order of first appearance is kept.
func NewRooms(ids ...RoomID) *Rooms {
	r := &Rooms{index: make(map[RoomID]struct{}, len(ids))}
	for _, id := range ids {
		id = RoomID(strings.TrimSpace(string(id)))
		if id == "" {
			continue
		}
		if _, ok := r.index[id]; ok {
			continue
		}
		r.index[id] = struct{}{}
		r.order = append(r.order, id)
	}
	return r
}

// ParseRooms parses a comma separated room list ("Room A,Room B").
func ParseRooms(list string) (*Rooms, error) {
	parts := strings.Split(list, ",")
	ids := make([]RoomID, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, RoomID(p))
	}
	r := NewRooms(ids...)
	if len(r.order) == 0 {
		return nil, fmt.Errorf("no rooms configured in %q", list)
	}
	return r, nil
}

// DefaultRooms returns the rooms named by DefaultRoomList.
func DefaultRooms() *Rooms {
	r, _ := ParseRooms(DefaultRoomList)
	return r
}

// Contains reports whether id is a known room.
func (r *Rooms) Contains(id RoomID) bool {
	_, ok := r.index[id]
	return ok
}

// Validate returns ErrUnknownRoom if id is not registered.
func (r *Rooms) Validate(id RoomID) error {
	if !r.Contains(id) {
		return fmt.Errorf("%w: %q", ErrUnknownRoom, id)
	}
	return nil
}

// List returns the rooms in configuration order.
func (r *Rooms) List() []RoomID {
	out := make([]RoomID, len(r.order))
	copy(out, r.order)
	return out
}
