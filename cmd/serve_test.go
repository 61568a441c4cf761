package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaigibot/kaigibot/internal/config"
	"github.com/kaigibot/kaigibot/internal/secrets"
)

func TestSecretsSource(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		path    string
		wantErr bool
	}{
		{name: "default is env", source: "", path: ""},
		{name: "explicit env", source: "env", path: ""},
		{name: "file with path", source: "file", path: "/tmp/secrets.json"},
		{name: "file without path", source: "file", path: "", wantErr: true},
		{name: "unknown source", source: "vault", path: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Secrets.Source = tt.source
			cfg.Secrets.Path = tt.path

			src, err := secretsSource(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, src)
		})
	}
}

func TestSecretsSourceEnvReadsPrefixedVars(t *testing.T) {
	t.Setenv("KAIGIBOT_SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("KAIGIBOT_SLACK_SIGNING_SECRET", "sig-test")

	cfg := testConfig()
	src, err := secretsSource(cfg)
	require.NoError(t, err)

	creds, err := secrets.Slack(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-test", creds.BotToken)
	assert.Equal(t, "sig-test", creds.SigningSecret)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen:\n  port: 8080\n"), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Listen.Port)

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRootSubcommands(t *testing.T) {
	for _, name := range []string{"serve", "mcp", "version"} {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %s", name)
	}
}

func testConfig() *config.Config {
	return config.Default()
}
