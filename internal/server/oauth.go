package server

import (
	"context"
	"net/http"

	"github.com/kaigibot/kaigibot/internal/logging"
)

const (
	oauthCancelledReply  = "認証がキャンセルされました。Slackから再度お試しください。"
	oauthBadRequestReply = "不正なリクエストです。"
	oauthFailedReply     = "認証処理中にエラーが発生しました。再度お試しください。"
	oauthCompletedReply  = "Google Calendarの認証が完了しました！Slackに戻って操作を続けてください。"
)

// handleOAuthCallback completes the Google consent flow. The state
// parameter carries the chat user ID; after the token is stored, the
// request the user parked before authenticating is replayed.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	query := r.URL.Query()

	if oauthErr := query.Get("error"); oauthErr != "" {
		s.logger.Warn("oauth flow cancelled", "reason", oauthErr)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(oauthCancelledReply))
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(oauthBadRequestReply))
		return
	}

	userID := state

	if err := s.tokens.Authorize(r.Context(), userID, code); err != nil {
		s.logger.Error("oauth token exchange failed", logging.UserHash(userID), logging.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(oauthFailedReply))
		return
	}

	s.logger.Info("oauth completed", logging.UserHash(userID))

	// Replay whatever the user asked for before the consent detour.
	go s.replayPending(userID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(oauthCompletedReply))
}

func (s *Server) replayPending(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := s.agent.ProcessRequest(ctx, userID); err != nil {
		s.logger.Error("failed to replay pending request", logging.UserHash(userID), logging.Err(err))
	}
}
