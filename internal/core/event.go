package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage notifies clients about a chat message in a room.
	EventRoomMessage EventKind = iota
	// EventUserJoined notifies clients about a user joining a room.
	EventUserJoined
	// EventUserLeft notifies clients about a user leaving a room.
	EventUserLeft
	// EventHistory delivers message history to a client upon joining a room.
	EventHistory
	// EventMemberList carries the room's current member list.
	EventMemberList
	// EventUsernameChanged notifies clients that a member was renamed.
	EventUsernameChanged
	// EventError notifies clients about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
// A single Event value may be shared by every recipient of a broadcast and
// must not be modified after it is emitted.
type Event struct {
	Kind     EventKind
	Room     string
	User     string
	NewUser  string    // For EventUsernameChanged
	Updated  int64     // Messages rewritten by a rename
	Members  []string  // For EventMemberList
	Message  Message   // For EventRoomMessage
	Messages []Message // For EventHistory
	Error    *CoreError
}

func errorEvent(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}
