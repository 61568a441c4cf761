package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// CalendarScope is the only scope the assistant requests. Freebusy,
// event creation, and rescheduling all fall under it.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// Config wraps the OAuth2 configuration for the per-user authorization
// flow. The redirect URL must match a registered URI on the Google Cloud
// OAuth client.
type Config struct {
	oauth *oauth2.Config
}

// NewConfig builds the OAuth configuration from client credentials.
func NewConfig(clientID, clientSecret, redirectURL string) *Config {
	return &Config{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{CalendarScope},
		},
	}
}

// AuthURL returns the consent URL for a user. The chat user ID travels in
// the state parameter so the callback can attribute the grant. Offline
// access with forced consent guarantees a refresh token on first grant.
func (c *Config) AuthURL(userID string) string {
	return c.oauth.AuthCodeURL(userID,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token.
func (c *Config) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// TokenSource returns a refreshing token source seeded with the given
// token.
func (c *Config) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return c.oauth.TokenSource(ctx, token)
}
