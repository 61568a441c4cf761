// Package store persists conversation history, pending requests, and OAuth
// tokens in SQLite. It replaces per-request external state lookups with a
// single local database file; SQLite serializes writes, so concurrent
// events from the chat surface are safe without extra locking.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Retention policy. Conversations die after a day of inactivity; a pending
// request only needs to survive one OAuth round trip.
const (
	ConversationTTL   = 24 * time.Hour
	PendingRequestTTL = 10 * time.Minute
)

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB

	// now is injectable for TTL tests.
	now func() time.Time
}

// NewStore opens (or creates) the database at dbPath and applies the
// schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		user_id    TEXT NOT NULL,
		thread_ts  TEXT NOT NULL,
		payload    TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, thread_ts)
	);

	CREATE TABLE IF NOT EXISTS oauth_tokens (
		user_id    TEXT PRIMARY KEY,
		token_data TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
