// Package registry keeps the in-memory authoritative room state.
//
// The same contract serves two independent keyspaces: presence rooms
// (values are player avatars) and video rooms (values are display
// names). A room exists if and only if it has at least one participant;
// the removal that empties a room deletes it.
package registry

import "sync"

type room[V any] struct {
	order  []string
	values map[string]V
}

// Rooms maps room id to participant set. All methods are safe for
// concurrent use; a single mutex serializes mutations so a snapshot
// never observes a half-applied update.
type Rooms[V any] struct {
	mx    sync.Mutex
	rooms map[string]*room[V]
}

func New[V any]() *Rooms[V] {
	return &Rooms[V]{
		rooms: make(map[string]*room[V]),
	}
}

// Put inserts or overwrites a participant entry, creating the room
// first if absent. Overwriting keeps the entry's original position in
// snapshot order.
func (r *Rooms[V]) Put(roomID, id string, v V) {
	r.mx.Lock()
	defer r.mx.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room[V]{values: make(map[string]V)}
		r.rooms[roomID] = rm
	}
	if _, exists := rm.values[id]; !exists {
		rm.order = append(rm.order, id)
	}
	rm.values[id] = v
}

// Update applies fn to the participant's value if both the room and the
// entry exist, and returns the resulting value. A miss on either is
// reported via ok=false with no other effect; stale updates after a
// leave are an expected race, not an error.
func (r *Rooms[V]) Update(roomID, id string, fn func(*V)) (V, bool) {
	r.mx.Lock()
	defer r.mx.Unlock()

	var zero V
	rm, ok := r.rooms[roomID]
	if !ok {
		return zero, false
	}
	v, ok := rm.values[id]
	if !ok {
		return zero, false
	}
	fn(&v)
	rm.values[id] = v
	return v, true
}

// Remove deletes the participant entry and, if that leaves the room
// empty, the room itself. Removing from an absent room or removing an
// absent participant is a no-op: disconnect cleanup may race with an
// already-processed leave.
func (r *Rooms[V]) Remove(roomID, id string) {
	r.mx.Lock()
	defer r.mx.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return
	}
	if _, exists := rm.values[id]; !exists {
		return
	}
	delete(rm.values, id)
	for i, oid := range rm.order {
		if oid == id {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	if len(rm.values) == 0 {
		delete(r.rooms, roomID)
	}
}

// Snapshot returns a copy of the room's current values in insertion
// order, or an empty slice if the room does not exist.
func (r *Rooms[V]) Snapshot(roomID string) []V {
	r.mx.Lock()
	defer r.mx.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return []V{}
	}
	out := make([]V, 0, len(rm.order))
	for _, id := range rm.order {
		out = append(out, rm.values[id])
	}
	return out
}

// Has reports whether the room currently exists.
func (r *Rooms[V]) Has(roomID string) bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	_, ok := r.rooms[roomID]
	return ok
}
