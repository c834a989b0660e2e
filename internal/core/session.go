package core

import "context"

// storageJob runs on a session's storage worker and returns a completion
// that the hub executes on its own goroutine. A nil completion is skipped.
type storageJob func(ctx context.Context) func()

// Session binds one client to at most one (room, username) pair.
// Empty Room means the session is unbound. Only the hub goroutine touches it.
type Session struct {
	Client   *Client
	Room     string
	Username string

	jobs chan storageJob
}

func newSession(c *Client, queue int) *Session {
	return &Session{
		Client: c,
		jobs:   make(chan storageJob, queue),
	}
}

// Bound reports whether the session is bound to a room.
func (s *Session) Bound() bool {
	return s.Room != ""
}

func (s *Session) unbind() (room, username string) {
	room, username = s.Room, s.Username
	s.Room, s.Username = "", ""
	return room, username
}
