package proto

import (
	"encoding/json"
	"time"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin           = "joinChat"
	InboundTypeSend           = "sendMessage"
	InboundTypeChangeUsername = "changeUsername"
	InboundTypeLeave          = "leaveChat"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Event names carried in Outbound.Event.
const (
	EventLoadMessages    = "loadMessages"
	EventUpdateUsers     = "updateUsers"
	EventUserJoined      = "userJoined"
	EventUserLeft        = "userLeft"
	EventNewMessage      = "newMessage"
	EventUsernameChanged = "usernameChanged"
)

// JoinData binds the connection to a room under a display name.
type JoinData struct {
	Chat     string `json:"chat" validate:"required,max=64"`
	Username string `json:"username" validate:"required,max=32"`
}

// SendData is a chat message from the client. Chat and Username are optional
// and, when present, must match the connection's binding.
type SendData struct {
	Chat     string `json:"chat,omitempty" validate:"omitempty,max=64"`
	Username string `json:"username,omitempty" validate:"omitempty,max=32"`
	Message  string `json:"message"`
}

// ChangeUsernameData renames the connection within its room.
type ChangeUsernameData struct {
	OldUsername string `json:"oldUsername,omitempty" validate:"omitempty,max=32"`
	NewUsername string `json:"newUsername" validate:"required,max=32"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Message is a stored chat message as seen by clients.
type Message struct {
	ID        int64     `json:"id"`
	Chat      string    `json:"chat"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// UserEvent notifies that a user joined or left a room.
type UserEvent struct {
	Chat     string `json:"chat"`
	Username string `json:"username"`
}

// UsernameChanged notifies a rename and how many stored messages were re-attributed.
type UsernameChanged struct {
	Chat        string `json:"chat"`
	OldUsername string `json:"oldUsername"`
	NewUsername string `json:"newUsername"`
	Updated     int64  `json:"updated"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
