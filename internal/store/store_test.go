package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaigibot/kaigibot/internal/llm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetHistory(ctx, "U1", "1700000000.000100")
	require.NoError(t, err)
	assert.Nil(t, got, "missing conversation returns nil")

	messages := []llm.Message{
		llm.UserText("明日の空き時間を教えて"),
		llm.AssistantText("確認します"),
	}
	require.NoError(t, s.SaveHistory(ctx, "U1", "1700000000.000100", messages))

	got, err = s.GetHistory(ctx, "U1", "1700000000.000100")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, llm.RoleUser, got[0].Role)
	assert.Equal(t, "明日の空き時間を教えて", got[0].Content[0].Text)

	// A different thread is a different conversation.
	got, err = s.GetHistory(ctx, "U1", "1700000000.000200")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestHistoryExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }

	require.NoError(t, s.SaveHistory(ctx, "U1", "ts1", []llm.Message{llm.UserText("hi")}))

	s.now = func() time.Time { return base.Add(ConversationTTL + time.Minute) }

	got, err := s.GetHistory(ctx, "U1", "ts1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired conversation returns nil")
}

func TestClearHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHistory(ctx, "U1", "ts1", []llm.Message{llm.UserText("hi")}))
	require.NoError(t, s.ClearHistory(ctx, "U1", "ts1"))

	got, err := s.GetHistory(ctx, "U1", "ts1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Clearing again is a no-op.
	require.NoError(t, s.ClearHistory(ctx, "U1", "ts1"))
}

func TestPendingRequestConsumedOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	req := PendingRequest{ChannelID: "C1", ThreadTS: "ts1", Text: "明日の15時に会議を入れて"}
	require.NoError(t, s.SavePendingRequest(ctx, "U1", req))

	got, err := s.ConsumePendingRequest(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, req, *got)

	// Second consume finds nothing.
	got, err = s.ConsumePendingRequest(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPendingRequestExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base }

	require.NoError(t, s.SavePendingRequest(ctx, "U1", PendingRequest{ChannelID: "C1", ThreadTS: "ts1", Text: "x"}))

	s.now = func() time.Time { return base.Add(PendingRequestTTL + time.Second) }

	got, err := s.ConsumePendingRequest(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired pending request is dropped")
}

func TestPendingRequestDoesNotShadowConversations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveHistory(ctx, "U1", "ts1", []llm.Message{llm.UserText("hi")}))
	require.NoError(t, s.SavePendingRequest(ctx, "U1", PendingRequest{ChannelID: "C1", ThreadTS: "ts1", Text: "x"}))

	got, err := s.GetHistory(ctx, "U1", "ts1")
	require.NoError(t, err)
	assert.Len(t, got, 1, "pending request lives under its own key")
}

func TestTokenRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetToken(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, got)

	tokenJSON := []byte(`{"access_token":"ya29.x","refresh_token":"1//r","expiry":"2024-01-15T14:00:00+09:00"}`)
	require.NoError(t, s.SaveToken(ctx, "U1", tokenJSON))

	got, err = s.GetToken(ctx, "U1")
	require.NoError(t, err)
	assert.JSONEq(t, string(tokenJSON), string(got))

	// Overwrite replaces.
	updated := []byte(`{"access_token":"ya29.y"}`)
	require.NoError(t, s.SaveToken(ctx, "U1", updated))
	got, err = s.GetToken(ctx, "U1")
	require.NoError(t, err)
	assert.JSONEq(t, string(updated), string(got))

	require.NoError(t, s.DeleteToken(ctx, "U1"))
	got, err = s.GetToken(ctx, "U1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
