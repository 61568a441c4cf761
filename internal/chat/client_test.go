package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPostMessage(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat.postMessage", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1700000000.000200"})
	}))
	defer srv.Close()

	client, err := NewClient("xoxb-test", testLogger(), WithAPIURL(srv.URL))
	require.NoError(t, err)

	ts, err := client.PostMessage(context.Background(), Message{
		Channel:  "C1",
		ThreadTS: "1700000000.000100",
		Text:     "こんにちは",
	})
	require.NoError(t, err)

	assert.Equal(t, "1700000000.000200", ts)
	assert.Equal(t, "Bearer xoxb-test", gotAuth)
	assert.Equal(t, "C1", gotBody["channel"])
	assert.Equal(t, "1700000000.000100", gotBody["thread_ts"])
	assert.Equal(t, "こんにちは", gotBody["text"])
	assert.NotContains(t, gotBody, "blocks")
}

func TestPostMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	}))
	defer srv.Close()

	client, err := NewClient("xoxb-test", testLogger(), WithAPIURL(srv.URL))
	require.NoError(t, err)

	_, err = client.PostMessage(context.Background(), Message{Channel: "C404", Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestUserEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users.info", r.URL.Path)
		require.Equal(t, "U123", r.URL.Query().Get("user"))
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"user": map[string]any{
				"profile": map[string]any{"email": "tanaka@example.com"},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient("xoxb-test", testLogger(), WithAPIURL(srv.URL))
	require.NoError(t, err)

	email, err := client.UserEmail(context.Background(), "U123")
	require.NoError(t, err)
	assert.Equal(t, "tanaka@example.com", email)
}

func TestUserEmailMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":   true,
			"user": map[string]any{"profile": map[string]any{}},
		})
	}))
	defer srv.Close()

	client, err := NewClient("xoxb-test", testLogger(), WithAPIURL(srv.URL))
	require.NoError(t, err)

	_, err = client.UserEmail(context.Background(), "U123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no email")
}

func TestResolveMentions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "U111" {
			json.NewEncoder(w).Encode(map[string]any{
				"ok":   true,
				"user": map[string]any{"profile": map[string]any{"email": "tanaka@example.com"}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "user_not_found"})
	}))
	defer srv.Close()

	client, err := NewClient("xoxb-test", testLogger(), WithAPIURL(srv.URL))
	require.NoError(t, err)

	got := ResolveMentions(context.Background(), client, "<@U111> と <@U999> で調整して")
	assert.Equal(t, "tanaka@example.com と <@U999> で調整して", got)
}

func TestNewClientRequiresToken(t *testing.T) {
	_, err := NewClient("", testLogger())
	assert.Error(t, err)
}
