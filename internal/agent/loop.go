package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kaigibot/kaigibot/internal/instrumentation"
	"github.com/kaigibot/kaigibot/internal/llm"
	"github.com/kaigibot/kaigibot/internal/store"
	"github.com/kaigibot/kaigibot/internal/tools"
)

// maxIterations bounds the tool-use loop. Scheduling requests resolve in one
// or two tool rounds; anything deeper is the model looping.
const maxIterations = 5

const exhaustedReply = "申し訳ありません、処理が複雑すぎて完了できませんでした。もう一度お試しください。"

// ConversationStore is the persistence surface the agent needs: per-thread
// history plus the pending-request parking slot used across the OAuth flow.
type ConversationStore interface {
	GetHistory(ctx context.Context, userID, threadTS string) ([]llm.Message, error)
	SaveHistory(ctx context.Context, userID, threadTS string, messages []llm.Message) error
	ClearHistory(ctx context.Context, userID, threadTS string) error
	SavePendingRequest(ctx context.Context, userID string, req store.PendingRequest) error
	ConsumePendingRequest(ctx context.Context, userID string) (*store.PendingRequest, error)
}

// Agent drives the conversation: it replays thread history into the model,
// executes requested tools, and either folds results back for another round
// or intercepts them into interactive replies.
type Agent struct {
	client    llm.Client
	executor  *tools.Executor
	store     ConversationStore
	presenter Presenter
	authURL   func(userID string) string
	logger    *slog.Logger
	metrics   *instrumentation.Metrics
}

// New builds an Agent. authURL produces the per-user Google consent link.
// metrics may be nil.
func New(client llm.Client, executor *tools.Executor, conversations ConversationStore, presenter Presenter, authURL func(userID string) string, logger *slog.Logger, metrics *instrumentation.Metrics) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		client:    client,
		executor:  executor,
		store:     conversations,
		presenter: presenter,
		authURL:   authURL,
		logger:    logger,
		metrics:   metrics,
	}
}

// HandleMessage processes one user message end to end. The model is invoked
// at most maxIterations times; tool results with interactive statuses
// short-circuit the loop and render directly.
func (a *Agent) HandleMessage(ctx context.Context, turn Turn) error {
	history, err := a.store.GetHistory(ctx, turn.UserID, turn.ThreadTS)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	messages := append(history, llm.UserText(turn.Text))
	definitions := tools.Definitions()

	var resp *llm.Response
	for i := 0; i < maxIterations; i++ {
		var err error
		resp, err = a.invoke(ctx, messages, definitions)
		if err != nil {
			return fmt.Errorf("model invocation: %w", err)
		}

		if resp.StopReason != llm.StopReasonToolUse {
			return a.finish(ctx, turn, append(messages, resp.AssistantMessage()), resp)
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			// The model claimed tool_use but produced no tool blocks.
			a.logger.Warn("tool_use stop without tool blocks", "user", turn.UserID)
			return a.finish(ctx, turn, append(messages, resp.AssistantMessage()), resp)
		}

		messages = append(messages, resp.AssistantMessage())

		resultBlocks := make([]llm.ContentBlock, 0, len(uses))
		for _, use := range uses {
			result := a.executor.Execute(ctx, use.Name, use.Input, turn.UserID)

			handled, err := a.intercept(ctx, turn, result)
			if handled || err != nil {
				return err
			}

			resultBlocks = append(resultBlocks, llm.ContentBlock{
				Type:      "tool_result",
				ToolUseID: use.ID,
				Content:   result.JSON(),
			})
		}

		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: resultBlocks})
	}

	// Iteration bound hit mid-exchange. The last response and its tool
	// results are already in messages; deliver its text rather than
	// dropping the thread.
	a.logger.Warn("tool loop exhausted", "user", turn.UserID, "thread", turn.ThreadTS)
	return a.finish(ctx, turn, messages, resp)
}

// ProcessRequest replays the request a user parked before completing OAuth.
// The thread history is cleared first so the replay starts from a clean
// conversation instead of the pre-auth dead end.
func (a *Agent) ProcessRequest(ctx context.Context, userID string) error {
	req, err := a.store.ConsumePendingRequest(ctx, userID)
	if err != nil {
		return fmt.Errorf("consume pending request: %w", err)
	}
	if req == nil {
		return nil
	}

	if err := a.store.ClearHistory(ctx, userID, req.ThreadTS); err != nil {
		a.logger.Warn("failed to clear history before replay", "user", userID, "error", err)
	}

	return a.HandleMessage(ctx, Turn{
		UserID:    userID,
		ChannelID: req.ChannelID,
		ThreadTS:  req.ThreadTS,
		Text:      req.Text,
	})
}

func (a *Agent) invoke(ctx context.Context, messages []llm.Message, definitions []llm.ToolDefinition) (*llm.Response, error) {
	started := time.Now()

	resp, err := a.client.Invoke(ctx, messages, definitions)
	if err != nil {
		a.metrics.RecordLLMInvocation(ctx, "unknown", "error", 0, 0, time.Since(started))
		return nil, err
	}

	a.metrics.RecordLLMInvocation(ctx, resp.Model, "success",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, time.Since(started))
	return resp, nil
}

// finish persists the thread and posts the response's closing text, falling
// back to the canned apology when the response carries none.
func (a *Agent) finish(ctx context.Context, turn Turn, messages []llm.Message, resp *llm.Response) error {
	text := resp.Text()
	if text == "" {
		text = exhaustedReply
	}

	if err := a.store.SaveHistory(ctx, turn.UserID, turn.ThreadTS, messages); err != nil {
		a.logger.Warn("failed to save history", "user", turn.UserID, "error", err)
	}

	return a.presenter.FinalText(ctx, turn, text)
}

// intercept renders tool results that end the turn with an interactive
// payload. Results that fold back into the conversation return (false, nil).
func (a *Agent) intercept(ctx context.Context, turn Turn, result tools.Result) (bool, error) {
	switch result.Status {
	case tools.StatusOAuthRequired:
		if err := a.store.SavePendingRequest(ctx, turn.UserID, store.PendingRequest{
			ChannelID: turn.ChannelID,
			ThreadTS:  turn.ThreadTS,
			Text:      turn.Text,
		}); err != nil {
			return true, fmt.Errorf("park pending request: %w", err)
		}
		return true, a.presenter.AuthPrompt(ctx, turn, a.authURL(turn.UserID))

	case tools.StatusSuggestCreate:
		return true, a.presenter.CreateConfirmation(ctx, turn, result)

	case tools.StatusRescheduled:
		return true, a.presenter.RescheduleCompleted(ctx, turn, result)

	case tools.StatusSuggestReschedule:
		return true, a.presenter.RescheduleCandidates(ctx, turn, result)

	case tools.StatusSuggestSchedule:
		return true, a.presenter.ScheduleCandidates(ctx, turn, result)
	}

	// created and error results go back to the model.
	return false, nil
}
