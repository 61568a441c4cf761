package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaigibot/kaigibot/internal/llm"
)

// pendingThreadTS is the reserved thread key holding a user's pending
// request while they complete the OAuth flow. Real Slack thread timestamps
// are numeric, so this cannot collide.
const pendingThreadTS = "pending_oauth"

// PendingRequest is a user message parked until OAuth completes. It is
// replayed once after the callback and then discarded.
type PendingRequest struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
	Text      string `json:"text"`
}

// GetHistory loads the conversation for (userID, threadTS). Expired or
// absent conversations return nil; expired rows are purged on read.
func (s *Store) GetHistory(ctx context.Context, userID, threadTS string) ([]llm.Message, error) {
	payload, ok, err := s.getPayload(ctx, userID, threadTS)
	if err != nil || !ok {
		return nil, err
	}

	var messages []llm.Message
	if err := json.Unmarshal([]byte(payload), &messages); err != nil {
		return nil, fmt.Errorf("decode conversation %s/%s: %w", userID, threadTS, err)
	}
	return messages, nil
}

// SaveHistory replaces the conversation for (userID, threadTS) and resets
// its TTL. Concurrent writers are last-write-wins; history for a thread is
// effectively serialized by the chat surface anyway.
func (s *Store) SaveHistory(ctx context.Context, userID, threadTS string, messages []llm.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode conversation %s/%s: %w", userID, threadTS, err)
	}
	return s.setPayload(ctx, userID, threadTS, string(payload), ConversationTTL)
}

// ClearHistory removes the conversation for (userID, threadTS).
func (s *Store) ClearHistory(ctx context.Context, userID, threadTS string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id = ? AND thread_ts = ?`,
		userID, threadTS,
	)
	if err != nil {
		return fmt.Errorf("clear conversation %s/%s: %w", userID, threadTS, err)
	}
	return nil
}

// SavePendingRequest parks a request for replay after OAuth. Any previous
// pending request for the user is overwritten.
func (s *Store) SavePendingRequest(ctx context.Context, userID string, req PendingRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode pending request for %s: %w", userID, err)
	}
	return s.setPayload(ctx, userID, pendingThreadTS, string(payload), PendingRequestTTL)
}

// ConsumePendingRequest returns the user's pending request and deletes it in
// the same transaction, so a request is replayed at most once. Returns nil
// when there is nothing pending or it has expired.
func (s *Store) ConsumePendingRequest(ctx context.Context, userID string) (*PendingRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consume for %s: %w", userID, err)
	}
	defer tx.Rollback()

	var payload string
	var expiresAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM conversations WHERE user_id = ? AND thread_ts = ?`,
		userID, pendingThreadTS,
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pending request for %s: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id = ? AND thread_ts = ?`,
		userID, pendingThreadTS,
	); err != nil {
		return nil, fmt.Errorf("delete pending request for %s: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consume for %s: %w", userID, err)
	}

	if expiresAt <= s.now().Unix() {
		return nil, nil
	}

	var req PendingRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return nil, fmt.Errorf("decode pending request for %s: %w", userID, err)
	}
	return &req, nil
}

func (s *Store) getPayload(ctx context.Context, userID, threadTS string) (string, bool, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM conversations WHERE user_id = ? AND thread_ts = ?`,
		userID, threadTS,
	).Scan(&payload, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load conversation %s/%s: %w", userID, threadTS, err)
	}

	if expiresAt <= s.now().Unix() {
		// Lazy expiry; a failed purge is harmless.
		_, _ = s.db.ExecContext(ctx,
			`DELETE FROM conversations WHERE user_id = ? AND thread_ts = ?`,
			userID, threadTS,
		)
		return "", false, nil
	}

	return payload, true, nil
}

func (s *Store) setPayload(ctx context.Context, userID, threadTS, payload string, ttl time.Duration) error {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, thread_ts, payload, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, thread_ts) DO UPDATE
		 SET payload = excluded.payload,
		     expires_at = excluded.expires_at,
		     updated_at = excluded.updated_at`,
		userID, threadTS, payload, now.Add(ttl).Unix(), now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save conversation %s/%s: %w", userID, threadTS, err)
	}
	return nil
}
