package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIURL = "https://slack.com/api"

// Client is a minimal Slack Web API client covering the calls the assistant
// needs: posting and updating messages, opening modals, and resolving user
// profiles.
type Client struct {
	botToken   string
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithAPIURL overrides the Slack API base URL.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		c.apiURL = strings.TrimRight(apiURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Slack client authenticated with the bot token.
func NewClient(botToken string, logger *slog.Logger, opts ...Option) (*Client, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		botToken: botToken,
		apiURL:   defaultAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Message is an outbound chat message. Blocks are optional; Text doubles as
// the notification fallback when blocks are present.
type Message struct {
	Channel  string  `json:"channel"`
	ThreadTS string  `json:"thread_ts,omitempty"`
	Text     string  `json:"text"`
	Blocks   []Block `json:"blocks,omitempty"`
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	TS    string `json:"ts"`
	User  struct {
		Profile struct {
			Email string `json:"email"`
		} `json:"profile"`
	} `json:"user"`
}

// PostMessage posts a message and returns its timestamp.
func (c *Client) PostMessage(ctx context.Context, msg Message) (string, error) {
	resp, err := c.call(ctx, "chat.postMessage", msg)
	if err != nil {
		return "", err
	}
	return resp.TS, nil
}

// UpdateMessage replaces the content of an existing message.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts, text string, blocks []Block) error {
	_, err := c.call(ctx, "chat.update", map[string]any{
		"channel": channel,
		"ts":      ts,
		"text":    text,
		"blocks":  blocks,
	})
	return err
}

// OpenView opens a modal in response to an interaction trigger.
func (c *Client) OpenView(ctx context.Context, triggerID string, view View) error {
	_, err := c.call(ctx, "views.open", map[string]any{
		"trigger_id": triggerID,
		"view":       view,
	})
	return err
}

// UserEmail resolves a Slack user ID to the email on their profile.
func (c *Client) UserEmail(ctx context.Context, userID string) (string, error) {
	endpoint := fmt.Sprintf("%s/users.info?%s", c.apiURL, url.Values{"user": {userID}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build users.info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	if resp.User.Profile.Email == "" {
		return "", fmt.Errorf("no email on profile for user %s", userID)
	}
	return resp.User.Profile.Email, nil
}

func (c *Client) call(ctx context.Context, method string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack request failed: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read slack response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slack returned status %d: %s", httpResp.StatusCode, data)
	}

	var resp apiResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode slack response: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("slack error: %s", resp.Error)
	}
	return &resp, nil
}
