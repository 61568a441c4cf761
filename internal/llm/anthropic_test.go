package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	resp := &Response{Content: []ContentBlock{
		{Type: "text", Text: "こんにちは"},
		{Type: "tool_use", ID: "toolu_1", Name: "search_free_slots"},
		{Type: "text", Text: "空き時間を確認します"},
	}}

	assert.Equal(t, "こんにちは\n空き時間を確認します", resp.Text())
}

func TestResponseToolUses(t *testing.T) {
	resp := &Response{Content: []ContentBlock{
		{Type: "text", Text: "ok"},
		{Type: "tool_use", ID: "toolu_1", Name: "search_free_slots", Input: json.RawMessage(`{"date":"2024-01-15"}`)},
		{Type: "tool_use", ID: "toolu_2", Name: "create_event", Input: json.RawMessage(`{}`)},
	}}

	uses := resp.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "toolu_1", uses[0].ID)
	assert.Equal(t, "search_free_slots", uses[0].Name)
	assert.JSONEq(t, `{"date":"2024-01-15"}`, string(uses[0].Input))
	assert.Equal(t, "create_event", uses[1].Name)
}

func TestMessageHelpers(t *testing.T) {
	user := UserText("明日の空き時間を教えて")
	assert.Equal(t, RoleUser, user.Role)
	require.Len(t, user.Content, 1)
	assert.Equal(t, "text", user.Content[0].Type)

	result := ToolResult("toolu_9", `{"status":"created"}`)
	assert.Equal(t, RoleUser, result.Role)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "tool_result", result.Content[0].Type)
	assert.Equal(t, "toolu_9", result.Content[0].ToolUseID)
}

func TestMessageRoundTripsThroughJSON(t *testing.T) {
	original := Message{
		Role: RoleAssistant,
		Content: []ContentBlock{
			{Type: "text", Text: "確認します"},
			{Type: "tool_use", ID: "toolu_1", Name: "get_event", Input: json.RawMessage(`{"event_id":"ev1"}`)},
		},
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, original.Role, decoded.Role)
	require.Len(t, decoded.Content, 2)
	assert.Equal(t, "tool_use", decoded.Content[1].Type)
	assert.JSONEq(t, `{"event_id":"ev1"}`, string(decoded.Content[1].Input))
}

func TestAnthropicClientInvoke(t *testing.T) {
	var gotReq anthropicRequest
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-sonnet-20241022",
			"stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "空き時間を検索します"},
				{"type": "tool_use", "id": "toolu_abc", "name": "search_free_slots", "input": {"date": "明日"}}
			],
			"usage": {"input_tokens": 120, "output_tokens": 45}
		}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("test-key", nil, WithMaxTokens(512))
	client.model = "claude-3-5-sonnet-20241022"
	// Point the client at the test server.
	client.httpClient = srv.Client()
	client.httpClient.Transport = rewriteTransport{base: srv.Client().Transport, target: srv.URL}

	resp, err := client.Invoke(context.Background(),
		[]Message{UserText("明日の空きを探して")},
		[]ToolDefinition{{Name: "search_free_slots", InputSchema: map[string]any{"type": "object"}}},
	)
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, anthropicAPIVersion, gotHeaders.Get("anthropic-version"))
	assert.Equal(t, 512, gotReq.MaxTokens)
	assert.Equal(t, SystemPrompt, gotReq.System)
	require.Len(t, gotReq.Tools, 1)

	assert.Equal(t, StopReasonToolUse, resp.StopReason)
	uses := resp.ToolUses()
	require.Len(t, uses, 1)
	assert.Equal(t, "toolu_abc", uses[0].ID)
	assert.Equal(t, 120, resp.Usage.InputTokens)
}

func TestAnthropicClientInvokeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error"}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("test-key", nil)
	client.httpClient = srv.Client()
	client.httpClient.Transport = rewriteTransport{base: srv.Client().Transport, target: srv.URL}

	_, err := client.Invoke(context.Background(), []Message{UserText("hi")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

// rewriteTransport redirects every request to the test server regardless of
// the hard-coded API URL.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u := req.URL
	u.Scheme = "http"
	u.Host = req.Host
	if rt.target != "" {
		parsed, err := req.URL.Parse(rt.target)
		if err == nil {
			u.Scheme = parsed.Scheme
			u.Host = parsed.Host
		}
	}
	base := rt.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
