package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveToken stores a user's serialized OAuth token, replacing any previous
// one. The token is opaque JSON; the google package owns its shape.
func (s *Store) SaveToken(ctx context.Context, userID string, tokenJSON []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oauth_tokens (user_id, token_data, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE
		 SET token_data = excluded.token_data, updated_at = excluded.updated_at`,
		userID, string(tokenJSON), s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save token for %s: %w", userID, err)
	}
	return nil
}

// GetToken returns the stored token JSON for a user, or nil when the user
// has not authorized yet.
func (s *Store) GetToken(ctx context.Context, userID string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_data FROM oauth_tokens WHERE user_id = ?`,
		userID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load token for %s: %w", userID, err)
	}
	return []byte(data), nil
}

// DeleteToken removes a user's stored token. No error when absent.
func (s *Store) DeleteToken(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM oauth_tokens WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete token for %s: %w", userID, err)
	}
	return nil
}
