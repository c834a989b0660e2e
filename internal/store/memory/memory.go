// Package memory provides a process-local message log. History is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Store keeps messages in a slice guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	nextID   int64
	messages []store.Message
	now      func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{now: time.Now}
}

// Migrate is a no-op.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// InsertMessage appends a message with the next ID.
func (s *Store) InsertMessage(ctx context.Context, room, username, body string) (*store.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	msg := store.Message{
		ID:        s.nextID,
		Room:      room,
		Username:  username,
		Body:      body,
		CreatedAt: s.now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

// ListMessagesByRoom returns copies of the room's messages, oldest first.
func (s *Store) ListMessagesByRoom(ctx context.Context, room string) ([]*store.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*store.Message, 0)
	for i := range s.messages {
		if s.messages[i].Room == room {
			msg := s.messages[i]
			out = append(out, &msg)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RenameAuthor rewrites the author of matching messages in room.
func (s *Store) RenameAuthor(ctx context.Context, room, oldUsername, newUsername string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.messages {
		if s.messages[i].Room == room && s.messages[i].Username == oldUsername {
			s.messages[i].Username = newUsername
			n++
		}
	}
	return n, nil
}
