package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeAlreadyJoined = "already_joined"
	ErrCodeNotInRoom     = "not_in_room"
	ErrCodeForbidden     = "forbidden"
	ErrCodeUsernameTaken = "username_taken"
	ErrCodeStorage       = "storage_error"
	ErrCodeBusy          = "busy"

	// Raised by the transport before a command reaches the hub.
	ErrCodeInvalidMessage = "invalid_message"
	ErrCodeRateLimited    = "rate_limited"
)

var (
	ErrAlreadyJoined  = errors.New("already joined")
	ErrNotInRoom      = errors.New("not in room")
	ErrBadRequest     = errors.New("bad request")
	ErrForbidden      = errors.New("forbidden")
	ErrUsernameTaken  = errors.New("username taken")
	ErrStorage        = errors.New("storage failure")
	ErrBusy           = errors.New("busy")
	ErrInvalidMessage = errors.New("invalid message")
	ErrRateLimited    = errors.New("rate limited")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is lets errors.Is match a CoreError against the sentinel for its code.
func (e *CoreError) Is(target error) bool {
	return sentinels[e.Code] == target
}

var sentinels = map[string]error{
	ErrCodeBadRequest:    ErrBadRequest,
	ErrCodeAlreadyJoined: ErrAlreadyJoined,
	ErrCodeNotInRoom:     ErrNotInRoom,
	ErrCodeForbidden:     ErrForbidden,
	ErrCodeUsernameTaken: ErrUsernameTaken,
	ErrCodeStorage:       ErrStorage,
	ErrCodeBusy:          ErrBusy,

	ErrCodeInvalidMessage: ErrInvalidMessage,
	ErrCodeRateLimited:    ErrRateLimited,
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
