package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kaigibot/kaigibot/internal/agent"
	"github.com/kaigibot/kaigibot/internal/tools"
)

// Canned replies for paths that never reach the model.
const (
	GreetingReply = "何かお手伝いできることはありますか？MTGのスケジュール調整などお気軽にどうぞ！"
	ErrorReply    = "申し訳ありません、処理中にエラーが発生しました。もう一度お試しください。"

	noSlotsReply = "指定の条件では空き時間が見つかりませんでした。別の日付や時間帯でお試しください。"
)

// Presenter renders agent outcomes as Slack messages. It implements
// agent.Presenter.
type Presenter struct {
	client *Client
	logger *slog.Logger
}

// NewPresenter builds a Presenter on the given Slack client.
func NewPresenter(client *Client, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Presenter{client: client, logger: logger}
}

var _ agent.Presenter = (*Presenter)(nil)

func (p *Presenter) post(ctx context.Context, turn agent.Turn, text string, blocks []Block) error {
	_, err := p.client.PostMessage(ctx, Message{
		Channel:  turn.ChannelID,
		ThreadTS: turn.ThreadTS,
		Text:     text,
		Blocks:   blocks,
	})
	return err
}

// AuthPrompt posts the Google consent button.
func (p *Presenter) AuthPrompt(ctx context.Context, turn agent.Turn, authURL string) error {
	return p.post(ctx, turn, "Google Calendarの認証が必要です。", OAuthPromptBlocks(authURL))
}

// ScheduleCandidates posts free-slot options, or the reason none exist.
func (p *Presenter) ScheduleCandidates(ctx context.Context, turn agent.Turn, result tools.Result) error {
	if result.Warning != "" {
		return p.post(ctx, turn, result.Warning, nil)
	}
	if result.TotalSlots == 0 {
		return p.post(ctx, turn, noSlotsReply, nil)
	}
	fallback := fmt.Sprintf("%s の空き時間候補: %d件", result.Date, result.TotalSlots)
	return p.post(ctx, turn, fallback, FreeSlotsBlocks(result))
}

// RescheduleCandidates posts reschedule options for an existing event.
func (p *Presenter) RescheduleCandidates(ctx context.Context, turn agent.Turn, result tools.Result) error {
	if result.NoSlotsFound {
		text := fmt.Sprintf("「%s」のリスケ候補が見つかりませんでした。別の日付をご指定ください。", result.Summary)
		return p.post(ctx, turn, text, nil)
	}
	fallback := fmt.Sprintf("「%s」のリスケ候補: %d件", result.Summary, len(result.Candidates))
	return p.post(ctx, turn, fallback, RescheduleBlocks(result))
}

// CreateConfirmation posts the pre-creation confirmation card.
func (p *Presenter) CreateConfirmation(ctx context.Context, turn agent.Turn, result tools.Result) error {
	fallback := fmt.Sprintf("「%s」を作成しますか？", result.Summary)
	return p.post(ctx, turn, fallback, CreateConfirmationBlocks(result))
}

// RescheduleCompleted announces a reschedule done directly by the model.
func (p *Presenter) RescheduleCompleted(ctx context.Context, turn agent.Turn, result tools.Result) error {
	fallback := fmt.Sprintf("✅ %s をリスケジュールしました", result.Summary)
	blocks := RescheduleCompletedBlocks(result.Summary, result.Start, result.End, result.HTMLLink)
	if err := p.post(ctx, turn, fallback, blocks); err != nil {
		return err
	}
	return p.PostAttendeeMentions(ctx, turn.ChannelID, turn.ThreadTS, result.Summary, result.Attendees)
}

// FinalText posts the model's closing reply.
func (p *Presenter) FinalText(ctx context.Context, turn agent.Turn, text string) error {
	return p.post(ctx, turn, text, nil)
}

// PostAttendeeMentions notifies attendees in-thread that an event changed.
// Failures are logged, not propagated; the event itself already succeeded.
func (p *Presenter) PostAttendeeMentions(ctx context.Context, channelID, threadTS, summary string, attendees []string) error {
	if len(attendees) == 0 {
		return nil
	}

	text := fmt.Sprintf("📣 %s さん、「%s」の予定が更新されました。カレンダーをご確認ください。",
		strings.Join(attendees, " さん、"), summary)

	if _, err := p.client.PostMessage(ctx, Message{
		Channel:  channelID,
		ThreadTS: threadTS,
		Text:     text,
	}); err != nil {
		p.logger.Warn("failed to post attendee mentions", "channel", channelID, "error", err)
	}
	return nil
}
