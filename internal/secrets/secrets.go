// Package secrets resolves credential bundles for the assistant's external
// services. A bundle is a named JSON object of string fields; sources can be
// the environment or a JSON file on disk, and results are cached per bundle
// name for the lifetime of the process.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Bundle names resolved by the typed accessors.
const (
	SlackBundle     = "slack"
	GoogleBundle    = "google"
	AnthropicBundle = "anthropic"
)

// Source resolves a named bundle to its key/value fields.
type Source interface {
	Get(ctx context.Context, name string) (map[string]string, error)
}

// SlackCredentials are the chat surface secrets.
type SlackCredentials struct {
	BotToken      string
	SigningSecret string
}

// GoogleCredentials are the OAuth client secrets.
type GoogleCredentials struct {
	ClientID     string
	ClientSecret string
}

// EnvSource resolves bundles from environment variables named
// <PREFIX><BUNDLE>_<FIELD>, e.g. KAIGIBOT_SLACK_BOT_TOKEN.
type EnvSource struct {
	Prefix string
}

// Get collects the known fields of a bundle from the environment. Missing
// variables are simply absent from the map; validation happens in the typed
// accessors.
func (e EnvSource) Get(_ context.Context, name string) (map[string]string, error) {
	fields, ok := bundleFields[name]
	if !ok {
		return nil, fmt.Errorf("unknown secret bundle: %s", name)
	}

	out := make(map[string]string)
	for _, field := range fields {
		key := e.Prefix + strings.ToUpper(name) + "_" + strings.ToUpper(field)
		if v := os.Getenv(key); v != "" {
			out[field] = v
		}
	}
	return out, nil
}

var bundleFields = map[string][]string{
	SlackBundle:     {"bot_token", "signing_secret"},
	GoogleBundle:    {"client_id", "client_secret"},
	AnthropicBundle: {"api_key"},
}

// FileSource resolves bundles from a JSON file shaped as
// {"slack": {"bot_token": "..."}, ...}.
type FileSource struct {
	Path string
}

// Get loads and parses the file on every call; wrap in a Cache to avoid
// repeated reads.
func (f FileSource) Get(_ context.Context, name string) (map[string]string, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	var bundles map[string]map[string]string
	if err := json.Unmarshal(raw, &bundles); err != nil {
		return nil, fmt.Errorf("parse secrets file: %w", err)
	}

	bundle, ok := bundles[name]
	if !ok {
		return nil, fmt.Errorf("secret bundle %s not found in %s", name, f.Path)
	}
	return bundle, nil
}

// Cache memoizes bundle lookups from an underlying source.
type Cache struct {
	source Source

	mu      sync.Mutex
	bundles map[string]map[string]string
}

// NewCache wraps a source with per-bundle memoization.
func NewCache(source Source) *Cache {
	return &Cache{source: source, bundles: map[string]map[string]string{}}
}

// Get returns the cached bundle, resolving it on first use.
func (c *Cache) Get(ctx context.Context, name string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if bundle, ok := c.bundles[name]; ok {
		return bundle, nil
	}

	bundle, err := c.source.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	c.bundles[name] = bundle
	return bundle, nil
}

// Clear drops all cached bundles, forcing re-resolution.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bundles = map[string]map[string]string{}
}

// Slack resolves and validates the Slack bundle.
func Slack(ctx context.Context, src Source) (SlackCredentials, error) {
	bundle, err := src.Get(ctx, SlackBundle)
	if err != nil {
		return SlackCredentials{}, err
	}

	creds := SlackCredentials{
		BotToken:      bundle["bot_token"],
		SigningSecret: bundle["signing_secret"],
	}
	if creds.BotToken == "" || creds.SigningSecret == "" {
		return SlackCredentials{}, fmt.Errorf("slack secrets incomplete: need bot_token and signing_secret")
	}
	return creds, nil
}

// Google resolves and validates the Google OAuth bundle.
func Google(ctx context.Context, src Source) (GoogleCredentials, error) {
	bundle, err := src.Get(ctx, GoogleBundle)
	if err != nil {
		return GoogleCredentials{}, err
	}

	creds := GoogleCredentials{
		ClientID:     bundle["client_id"],
		ClientSecret: bundle["client_secret"],
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return GoogleCredentials{}, fmt.Errorf("google secrets incomplete: need client_id and client_secret")
	}
	return creds, nil
}

// AnthropicAPIKey resolves the model API key.
func AnthropicAPIKey(ctx context.Context, src Source) (string, error) {
	bundle, err := src.Get(ctx, AnthropicBundle)
	if err != nil {
		return "", err
	}
	key := bundle["api_key"]
	if key == "" {
		return "", fmt.Errorf("anthropic secrets incomplete: need api_key")
	}
	return key, nil
}
