// Package postgres implements the message log on PostgreSQL using the schema
// of the original chat server: messages(id, chat, username, message, timestamp).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// PostgresStore implements store.Store for PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// New opens a connection pool for the given DSN and verifies it.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Migrate creates the messages table and its index.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, store.PostgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InsertMessage stores a message and returns the row as written by the database.
func (s *PostgresStore) InsertMessage(ctx context.Context, room, username, body string) (*store.Message, error) {
	query := `
		INSERT INTO messages (chat, username, message)
		VALUES ($1, $2, $3)
		RETURNING id, chat, username, message, timestamp
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, room, username, body).Scan(
		&msg.ID,
		&msg.Room,
		&msg.Username,
		&msg.Body,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

// ListMessagesByRoom retrieves the full history of a room in chronological order.
func (s *PostgresStore) ListMessagesByRoom(ctx context.Context, room string) ([]*store.Message, error) {
	query := `
		SELECT id, chat, username, message, timestamp
		FROM messages
		WHERE chat = $1
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, room)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.Room, &msg.Username, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// RenameAuthor rewrites the author of a user's messages within one room.
func (s *PostgresStore) RenameAuthor(ctx context.Context, room, oldUsername, newUsername string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET username = $1 WHERE chat = $2 AND username = $3`,
		newUsername, room, oldUsername,
	)
	if err != nil {
		return 0, fmt.Errorf("rename author: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}
