package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kaigibot/kaigibot/internal/agent"
	"github.com/kaigibot/kaigibot/internal/chat"
	"github.com/kaigibot/kaigibot/internal/logging"
)

// maxBodySize caps inbound request bodies.
const maxBodySize = 1 << 20

type eventsPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Event     struct {
		Type     string `json:"type"`
		User     string `json:"user"`
		Text     string `json:"text"`
		Channel  string `json:"channel"`
		TS       string `json:"ts"`
		ThreadTS string `json:"thread_ts"`
		BotID    string `json:"bot_id"`
	} `json:"event"`
}

// handleEvents receives the Slack Events API callback. Mentions are
// acknowledged immediately and processed in the background; Slack retries
// requests that take longer than a few seconds.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := verifySignature(s.signingSecret, r.Header, body, s.now()); err != nil {
		s.logger.Warn("rejected events request", logging.Err(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var payload eventsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch payload.Type {
	case "url_verification":
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(payload.Challenge))
		return

	case "event_callback":
		if payload.Event.Type == "app_mention" && payload.Event.BotID == "" {
			go s.processMention(payload)
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// processMention runs one mention through the agent on its own deadline.
func (s *Server) processMention(payload eventsPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	event := payload.Event
	threadTS := event.ThreadTS
	if threadTS == "" {
		threadTS = event.TS
	}

	turn := agent.Turn{
		UserID:    event.User,
		ChannelID: event.Channel,
		ThreadTS:  threadTS,
	}

	text := chat.CleanMentionText(event.Text)
	if text == "" {
		if err := s.presenter.FinalText(ctx, turn, chat.GreetingReply); err != nil {
			s.logger.Error("failed to post greeting", logging.Channel(event.Channel), logging.Err(err))
		}
		return
	}

	// Participant mentions become calendar-ready addresses before the
	// model sees the message.
	turn.Text = chat.ResolveMentions(ctx, s.chatClient, text)

	if err := s.agent.HandleMessage(ctx, turn); err != nil {
		s.logger.Error("failed to handle mention",
			logging.UserHash(event.User),
			logging.Channel(event.Channel),
			logging.Thread(threadTS),
			logging.Err(err))
		if perr := s.presenter.FinalText(ctx, turn, chat.ErrorReply); perr != nil {
			s.logger.Error("failed to post error reply", logging.Channel(event.Channel), logging.Err(perr))
		}
	}
}
