package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSource(t *testing.T) {
	t.Setenv("KAIGIBOT_SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("KAIGIBOT_SLACK_SIGNING_SECRET", "sig-test")

	src := EnvSource{Prefix: "KAIGIBOT_"}

	creds, err := Slack(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-test", creds.BotToken)
	assert.Equal(t, "sig-test", creds.SigningSecret)
}

func TestEnvSourceUnknownBundle(t *testing.T) {
	_, err := EnvSource{}.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"slack":  {"bot_token": "xoxb-1", "signing_secret": "s1"},
		"google": {"client_id": "cid", "client_secret": "cs"},
		"anthropic": {"api_key": "sk-ant-test"}
	}`), 0o600))

	src := FileSource{Path: path}
	ctx := context.Background()

	google, err := Google(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "cid", google.ClientID)

	key, err := AnthropicAPIKey(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", key)

	_, err = src.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestIncompleteBundles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"slack":  {"bot_token": "xoxb-1"},
		"google": {"client_id": "cid"},
		"anthropic": {}
	}`), 0o600))

	src := FileSource{Path: path}
	ctx := context.Background()

	_, err := Slack(ctx, src)
	assert.Error(t, err)
	_, err = Google(ctx, src)
	assert.Error(t, err)
	_, err = AnthropicAPIKey(ctx, src)
	assert.Error(t, err)
}

// countingSource counts resolutions to verify cache behavior.
type countingSource struct {
	calls int
}

func (c *countingSource) Get(_ context.Context, name string) (map[string]string, error) {
	c.calls++
	return map[string]string{"api_key": fmt.Sprintf("key-%d", c.calls)}, nil
}

func TestCache(t *testing.T) {
	underlying := &countingSource{}
	cache := NewCache(underlying)
	ctx := context.Background()

	first, err := cache.Get(ctx, AnthropicBundle)
	require.NoError(t, err)
	second, err := cache.Get(ctx, AnthropicBundle)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, underlying.calls)

	cache.Clear()
	_, err = cache.Get(ctx, AnthropicBundle)
	require.NoError(t, err)
	assert.Equal(t, 2, underlying.calls)
}
