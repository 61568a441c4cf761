package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kaigibot/kaigibot/internal/calendar"
	"github.com/kaigibot/kaigibot/internal/chat"
	"github.com/kaigibot/kaigibot/internal/google"
	"github.com/kaigibot/kaigibot/internal/logging"
	"github.com/kaigibot/kaigibot/internal/timeslot"
)

const (
	invalidDataReply     = "エラー: 無効なデータです。"
	noTriggerReply       = "エラー: モーダルを開けませんでした。"
	modalOpenFailedReply = "モーダルを開けませんでした。再度お試しください。"
	authExpiredReply     = "Google Calendarの認証が期限切れです。再度認証してください。"
	createFailedReply    = "イベントの作成中にエラーが発生しました。再度お試しください。"
	rescheduleFailReply  = "リスケジュール中にエラーが発生しました。再度お試しください。"
)

type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	TriggerID string `json:"trigger_id"`
	Channel   struct {
		ID string `json:"id"`
	} `json:"channel"`
	Message struct {
		TS string `json:"ts"`
	} `json:"message"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
	View struct {
		CallbackID      string `json:"callback_id"`
		PrivateMetadata string `json:"private_metadata"`
		State           struct {
			Values map[string]map[string]struct {
				Value string `json:"value"`
			} `json:"values"`
		} `json:"state"`
	} `json:"view"`
}

// handleInteractive receives button clicks and modal submissions. The
// payload arrives form-encoded under the "payload" key.
func (s *Server) handleInteractive(w http.ResponseWriter, r *http.Request) {
	// The signature covers the raw form-encoded body, so it must be read
	// before any parsing.
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := verifySignature(s.signingSecret, r.Header, body, s.now()); err != nil {
		s.logger.Warn("rejected interactive request", logging.Err(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var payload interactionPayload
	if err := json.Unmarshal([]byte(form.Get("payload")), &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	// Slack needs the ack within 3 seconds; calendar work happens in the
	// background.
	w.WriteHeader(http.StatusOK)

	go s.processInteraction(payload)
}

func (s *Server) processInteraction(payload interactionPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	switch payload.Type {
	case "block_actions":
		s.processBlockAction(ctx, payload)
	case "view_submission":
		s.processViewSubmission(ctx, payload)
	}
}

func (s *Server) processBlockAction(ctx context.Context, payload interactionPayload) {
	if len(payload.Actions) == 0 {
		return
	}
	action := payload.Actions[0]

	switch {
	case strings.HasPrefix(action.ActionID, chat.ActionConfirmSlotPrefix):
		s.openSlotModal(ctx, payload, action.Value)

	case strings.HasPrefix(action.ActionID, chat.ActionConfirmReschedulePrefix):
		s.confirmReschedule(ctx, payload, action.Value)

	case action.ActionID == chat.ActionConfirmCreate:
		s.openCreateModal(ctx, payload, action.Value)

	case action.ActionID == chat.ActionGoogleOAuth:
		// The button carries a URL; the click itself needs no handling.
	}
}

func (s *Server) processViewSubmission(ctx context.Context, payload interactionPayload) {
	switch payload.View.CallbackID {
	case chat.CallbackSlotModal:
		s.submitSlotModal(ctx, payload)
	case chat.CallbackCreateModal:
		s.submitCreateModal(ctx, payload)
	}
}

func (s *Server) postText(ctx context.Context, channelID, text string) {
	if _, err := s.chatClient.PostMessage(ctx, chat.Message{Channel: channelID, Text: text}); err != nil {
		s.logger.Error("failed to post message", logging.Channel(channelID), logging.Err(err))
	}
}

// openSlotModal opens the title confirmation modal for a chosen free slot.
func (s *Server) openSlotModal(ctx context.Context, payload interactionPayload, value string) {
	var slot chat.SlotAction
	if err := json.Unmarshal([]byte(value), &slot); err != nil {
		s.logger.Error("invalid slot action value", logging.Err(err))
		s.postText(ctx, payload.Channel.ID, invalidDataReply)
		return
	}

	if payload.TriggerID == "" {
		s.postText(ctx, payload.Channel.ID, noTriggerReply)
		return
	}

	modal := chat.SlotConfirmationModal(chat.SlotModalMetadata{
		ChannelID: payload.Channel.ID,
		MessageTS: payload.Message.TS,
		Start:     slot.Start,
		End:       slot.End,
		Attendees: slot.Attendees,
		Summary:   slot.Summary,
	})

	if err := s.chatClient.OpenView(ctx, payload.TriggerID, modal); err != nil {
		s.logger.Error("failed to open slot modal", logging.Err(err))
		s.postText(ctx, payload.Channel.ID, modalOpenFailedReply)
	}
}

// openCreateModal opens the title confirmation modal for a create request.
func (s *Server) openCreateModal(ctx context.Context, payload interactionPayload, value string) {
	var action chat.SlotAction
	if err := json.Unmarshal([]byte(value), &action); err != nil {
		s.logger.Error("invalid create action value", logging.Err(err))
		s.postText(ctx, payload.Channel.ID, invalidDataReply)
		return
	}

	if payload.TriggerID == "" {
		s.postText(ctx, payload.Channel.ID, noTriggerReply)
		return
	}

	modal := chat.CreateConfirmationModal(chat.CreateModalMetadata{
		ChannelID: payload.Channel.ID,
		MessageTS: payload.Message.TS,
		StartTime: action.Start,
		EndTime:   action.End,
		Attendees: action.Attendees,
		Summary:   action.Summary,
	})

	if err := s.chatClient.OpenView(ctx, payload.TriggerID, modal); err != nil {
		s.logger.Error("failed to open create modal", logging.Err(err))
		s.postText(ctx, payload.Channel.ID, modalOpenFailedReply)
	}
}

// confirmReschedule moves the event to the chosen slot and updates the
// candidate message in place.
func (s *Server) confirmReschedule(ctx context.Context, payload interactionPayload, value string) {
	channelID := payload.Channel.ID

	var action chat.SlotAction
	if err := json.Unmarshal([]byte(value), &action); err != nil {
		s.logger.Error("invalid reschedule action value", logging.Err(err))
		s.postText(ctx, channelID, invalidDataReply)
		return
	}

	svc, err := s.resolver(ctx, payload.User.ID)
	if err != nil {
		if errors.Is(err, google.ErrNotAuthorized) {
			s.postText(ctx, channelID, authExpiredReply)
			return
		}
		s.logger.Error("failed to resolve calendar service", logging.UserHash(payload.User.ID), logging.Err(err))
		s.postText(ctx, channelID, rescheduleFailReply)
		return
	}

	newStart, err1 := timeslot.ParseDateTime(action.Start)
	newEnd, err2 := timeslot.ParseDateTime(action.End)
	if err1 != nil || err2 != nil {
		s.postText(ctx, channelID, invalidDataReply)
		return
	}

	updated, err := svc.RescheduleEvent(ctx, action.EventID, newStart, newEnd)
	if err != nil {
		s.logger.Error("failed to reschedule event", logging.Err(err))
		s.postText(ctx, channelID, rescheduleFailReply)
		return
	}

	summary := action.Summary
	if summary == "" {
		summary = updated.Summary
	}

	blocks := chat.RescheduleCompletedBlocks(summary,
		timeslot.FormatRFC3339(updated.Start),
		timeslot.FormatRFC3339(updated.End),
		updated.HTMLLink)

	if err := s.chatClient.UpdateMessage(ctx, channelID, payload.Message.TS,
		fmt.Sprintf("✅ %s をリスケジュールしました", summary), blocks); err != nil {
		s.logger.Error("failed to update reschedule message", logging.Err(err))
	}

	_ = s.presenter.PostAttendeeMentions(ctx, channelID, payload.Message.TS, summary, attendeeEmails(updated))
}

// submitSlotModal creates the event from a slot confirmation modal.
func (s *Server) submitSlotModal(ctx context.Context, payload interactionPayload) {
	var meta chat.SlotModalMetadata
	if err := json.Unmarshal([]byte(payload.View.PrivateMetadata), &meta); err != nil {
		s.logger.Error("invalid slot modal metadata", logging.Err(err))
		return
	}

	summary := s.submittedSummary(payload)
	s.createFromModal(ctx, payload.User.ID, meta.ChannelID, meta.MessageTS, calendarInput{
		summary:   summary,
		start:     meta.Start,
		end:       meta.End,
		attendees: meta.Attendees,
	})
}

// submitCreateModal creates the event from a create confirmation modal.
func (s *Server) submitCreateModal(ctx context.Context, payload interactionPayload) {
	var meta chat.CreateModalMetadata
	if err := json.Unmarshal([]byte(payload.View.PrivateMetadata), &meta); err != nil {
		s.logger.Error("invalid create modal metadata", logging.Err(err))
		return
	}

	summary := s.submittedSummary(payload)
	s.createFromModal(ctx, payload.User.ID, meta.ChannelID, meta.MessageTS, calendarInput{
		summary:     summary,
		start:       meta.StartTime,
		end:         meta.EndTime,
		attendees:   meta.Attendees,
		description: meta.Description,
	})
}

func (s *Server) submittedSummary(payload interactionPayload) string {
	if block, ok := payload.View.State.Values[chat.SummaryBlockID]; ok {
		if input, ok := block[chat.SummaryInputAction]; ok {
			return input.Value
		}
	}
	return ""
}

type calendarInput struct {
	summary     string
	start       string
	end         string
	attendees   []string
	description string
}

func (s *Server) createFromModal(ctx context.Context, userID, channelID, messageTS string, input calendarInput) {
	svc, err := s.resolver(ctx, userID)
	if err != nil {
		if errors.Is(err, google.ErrNotAuthorized) {
			s.postText(ctx, channelID, authExpiredReply)
			return
		}
		s.logger.Error("failed to resolve calendar service", logging.UserHash(userID), logging.Err(err))
		s.postText(ctx, channelID, createFailedReply)
		return
	}

	start, err1 := timeslot.ParseDateTime(input.start)
	end, err2 := timeslot.ParseDateTime(input.end)
	if err1 != nil || err2 != nil {
		s.postText(ctx, channelID, invalidDataReply)
		return
	}

	event, err := svc.CreateEvent(ctx, calendar.EventInput{
		Summary:     input.summary,
		Description: input.description,
		Start:       start,
		End:         end,
		Attendees:   input.attendees,
	})
	if err != nil {
		s.logger.Error("failed to create event", logging.Err(err))
		s.postText(ctx, channelID, createFailedReply)
		return
	}

	blocks := chat.EventCreatedBlocks(event.Summary,
		timeslot.FormatRFC3339(event.Start),
		timeslot.FormatRFC3339(event.End),
		attendeeEmails(event),
		event.HTMLLink)

	if err := s.chatClient.UpdateMessage(ctx, channelID, messageTS,
		fmt.Sprintf("✅ %s を作成しました", event.Summary), blocks); err != nil {
		s.logger.Error("failed to update created message", logging.Err(err))
	}

	_ = s.presenter.PostAttendeeMentions(ctx, channelID, messageTS, event.Summary, attendeeEmails(event))
}

func attendeeEmails(event *calendar.EventSummary) []string {
	var emails []string
	for _, att := range event.Attendees {
		if att.Email != "" {
			emails = append(emails, att.Email)
		}
	}
	return emails
}
