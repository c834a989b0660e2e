package store

import (
	"context"
	_ "embed"
	"errors"
	"time"
)

// Message represents a persisted chat message.
type Message struct {
	ID        int64
	Room      string
	Username  string
	Body      string
	CreatedAt time.Time
}

// Driver names accepted by Open helpers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ErrUnknownDriver is returned when the configured driver is not supported.
var ErrUnknownDriver = errors.New("unknown store driver")

// MessageStore handles message persistence.
type MessageStore interface {
	// InsertMessage appends a message and returns the stored record with its
	// assigned ID and timestamp.
	InsertMessage(ctx context.Context, room, username, body string) (*Message, error)

	// ListMessagesByRoom returns every message of a room, oldest first.
	// Messages sharing a timestamp are ordered by ID.
	ListMessagesByRoom(ctx context.Context, room string) ([]*Message, error)

	// RenameAuthor rewrites the author of every message in room written by
	// oldUsername. Returns the number of rows updated.
	RenameAuthor(ctx context.Context, room, oldUsername, newUsername string) (int64, error)
}

// Store aggregates the message log with lifecycle operations.
type Store interface {
	MessageStore

	// Migrate creates the schema if it does not exist yet.
	Migrate(ctx context.Context) error

	// Ping checks the underlying connection.
	Ping(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}

// SQLiteSchema is the messages table in the SQLite dialect.
//
//go:embed schema_sqlite.sql
var SQLiteSchema string

// PostgresSchema is the messages table in the Postgres dialect.
//
//go:embed schema_postgres.sql
var PostgresSchema string
