package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

// ErrNotAuthorized is returned when a user has no stored Google credentials.
// Callers translate it into the OAuth prompt flow.
var ErrNotAuthorized = errors.New("user has not authorized calendar access")

// TokenStore persists serialized OAuth tokens per chat user.
type TokenStore interface {
	GetToken(ctx context.Context, userID string) ([]byte, error)
	SaveToken(ctx context.Context, userID string, tokenJSON []byte) error
	DeleteToken(ctx context.Context, userID string) error
}

// TokenService manages per-user Google credentials: the authorization flow,
// storage, and transparent refresh. Refreshed tokens are written back so
// the next request does not refresh again.
type TokenService struct {
	config *Config
	store  TokenStore
	logger *slog.Logger
}

// NewTokenService creates a token service.
func NewTokenService(config *Config, store TokenStore, logger *slog.Logger) *TokenService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{config: config, store: store, logger: logger}
}

// AuthURL returns the consent URL for a user.
func (s *TokenService) AuthURL(userID string) string {
	return s.config.AuthURL(userID)
}

// HasCredentials reports whether the user has stored credentials. It does
// not verify that the token is still refreshable.
func (s *TokenService) HasCredentials(ctx context.Context, userID string) bool {
	data, err := s.store.GetToken(ctx, userID)
	return err == nil && len(data) > 0
}

// Authorize exchanges the callback code and stores the resulting token for
// the user.
func (s *TokenService) Authorize(ctx context.Context, userID, code string) error {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return err
	}
	if err := s.saveToken(ctx, userID, token); err != nil {
		return err
	}

	s.logger.Info("stored calendar credentials", "user_id", userID)
	return nil
}

// TokenSource returns a live token source for the user, refreshing the
// stored token first when it has expired. Returns ErrNotAuthorized when the
// user never completed the OAuth flow.
func (s *TokenService) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	data, err := s.store.GetToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load credentials for %s: %w", userID, err)
	}
	if len(data) == 0 {
		return nil, ErrNotAuthorized
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode credentials for %s: %w", userID, err)
	}

	ts := s.config.TokenSource(ctx, &token)

	if !token.Valid() {
		refreshed, err := ts.Token()
		if err != nil {
			// A rejected grant (revoked consent, expired refresh token)
			// means only a new consent flow can recover; transient
			// provider failures stay plain errors.
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < 500 {
				s.logger.Warn("stored credentials no longer refreshable",
					"user_id", userID, "oauth_error", retrieveErr.ErrorCode)
				return nil, fmt.Errorf("refresh credentials for %s: %v: %w", userID, err, ErrNotAuthorized)
			}
			return nil, fmt.Errorf("refresh credentials for %s: %w", userID, err)
		}
		if refreshed.AccessToken != token.AccessToken {
			if err := s.saveToken(ctx, userID, refreshed); err != nil {
				// The refreshed token still works for this request.
				s.logger.Warn("failed to persist refreshed token", "user_id", userID, "error", err)
			} else {
				s.logger.Debug("refreshed calendar credentials", "user_id", userID,
					"expiry", refreshed.Expiry.Format(time.RFC3339))
			}
		}
		ts = s.config.TokenSource(ctx, refreshed)
	}

	return ts, nil
}

// Revoke deletes the user's stored credentials.
func (s *TokenService) Revoke(ctx context.Context, userID string) error {
	return s.store.DeleteToken(ctx, userID)
}

func (s *TokenService) saveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode credentials for %s: %w", userID, err)
	}
	if err := s.store.SaveToken(ctx, userID, data); err != nil {
		return fmt.Errorf("save credentials for %s: %w", userID, err)
	}
	return nil
}
