// Package presence keeps the in-memory record of who is currently in which room.
package presence

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry maps a room name to the ordered usernames currently present in it.
// Usernames are unique within a room and listed in first-join order.
//
// Writes are expected to come from a single owner (the core hub loop); the lock
// exists so HTTP handlers can read membership concurrently.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string][]string)}
}

// AddMember appends username to the room. Adding an existing member is a no-op.
func (r *Registry) AddMember(room, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	if lo.Contains(members, username) {
		return
	}
	r.rooms[room] = append(members, username)
}

// RemoveMember drops username from the room if present.
// Rooms left without members are forgotten.
func (r *Registry) RemoveMember(room, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[room]
	if !ok {
		return
	}
	idx := lo.IndexOf(members, username)
	if idx < 0 {
		return
	}

	next := make([]string, 0, len(members)-1)
	next = append(next, members[:idx]...)
	next = append(next, members[idx+1:]...)
	if len(next) == 0 {
		delete(r.rooms, room)
		return
	}
	r.rooms[room] = next
}

// RenameMember replaces oldUsername with newUsername at the same position.
// It does nothing when oldUsername is absent. It does not deduplicate: if
// newUsername is already listed, both entries remain.
func (r *Registry) RenameMember(room, oldUsername, newUsername string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[room]
	idx := lo.IndexOf(members, oldUsername)
	if idx < 0 {
		return
	}
	members[idx] = newUsername
}

// ListMembers returns a copy of the room's members. Unknown rooms yield an empty slice.
func (r *Registry) ListMembers(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// Contains reports whether username is listed in room.
func (r *Registry) Contains(room, username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Contains(r.rooms[room], username)
}

// Rooms returns the sorted names of rooms that have at least one member.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := lo.Keys(r.rooms)
	sort.Strings(names)
	return names
}
