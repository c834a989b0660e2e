package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom binds the session to a room under a username.
	CommandJoinRoom CommandKind = iota
	// CommandSendRoomMessage stores a chat message and delivers it to the room.
	CommandSendRoomMessage
	// CommandChangeUsername renames the session's user in its room.
	CommandChangeUsername
	// CommandLeaveRoom unbinds the session from its room.
	CommandLeaveRoom
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoinRoom:
		return "join"
	case CommandSendRoomMessage:
		return "send"
	case CommandChangeUsername:
		return "rename"
	case CommandLeaveRoom:
		return "leave"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
// Room and User are optional on send and rename; when set they must match the
// session's binding.
type Command struct {
	Kind    CommandKind
	Room    string
	User    string
	NewUser string
	Text    string
}
