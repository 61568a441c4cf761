// Package config handles kaigibot configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/kaigibot/config.yaml, /etc/kaigibot/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "kaigibot", "config.yaml"))
	}

	paths = append(paths, "/etc/kaigibot/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all kaigibot configuration. Credentials come from the
// secrets source, not from here.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Store     StoreConfig     `yaml:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the HTTP server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// MetricsConfig defines the Prometheus metrics listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// StoreConfig defines the SQLite state store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AnthropicConfig defines model invocation settings. The API key itself is
// a secret.
type AnthropicConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// OAuthConfig defines the Google OAuth callback surface.
type OAuthConfig struct {
	// BaseURL is the externally reachable URL of this service, used to
	// build the redirect URL (BaseURL + /oauth/google/callback).
	BaseURL string `yaml:"base_url"`
}

// SecretsConfig selects where credentials come from.
type SecretsConfig struct {
	// Source is "env" or "file".
	Source string `yaml:"source"`
	// Path is the secrets JSON file when Source is "file".
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 3000},
		Metrics: MetricsConfig{Enabled: true, Port: 9090},
		Store:   StoreConfig{Path: "kaigibot.db"},
		Anthropic: AnthropicConfig{
			MaxTokens: 1024,
		},
		Secrets:  SecretsConfig{Source: "env"},
		LogLevel: "info",
	}
}
