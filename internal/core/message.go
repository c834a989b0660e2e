package core

import (
	"context"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Message is the domain model for a chat message.
type Message struct {
	ID        int64
	Room      string
	From      string
	Text      string
	CreatedAt time.Time
}

// MessageLog is the durable history the hub reads on join and appends on send.
type MessageLog interface {
	InsertMessage(ctx context.Context, room, username, body string) (*store.Message, error)
	ListMessagesByRoom(ctx context.Context, room string) ([]*store.Message, error)
	RenameAuthor(ctx context.Context, room, oldUsername, newUsername string) (int64, error)
}

func messageFromStore(m *store.Message) Message {
	return Message{
		ID:        m.ID,
		Room:      m.Room,
		From:      m.Username,
		Text:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
