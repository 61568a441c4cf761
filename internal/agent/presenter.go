package agent

import (
	"context"

	"github.com/kaigibot/kaigibot/internal/tools"
)

// Turn identifies one inbound user message and where replies belong.
type Turn struct {
	UserID    string
	ChannelID string
	ThreadTS  string
	Text      string
}

// Presenter renders agent outcomes back to the chat surface. Intercepted
// tool results get deterministic interactive payloads; everything else ends
// as plain text.
type Presenter interface {
	// AuthPrompt asks the user to complete the Google OAuth flow.
	AuthPrompt(ctx context.Context, turn Turn, authURL string) error

	// ScheduleCandidates shows free-slot options with confirm buttons, or
	// the warning when the requested day yields none.
	ScheduleCandidates(ctx context.Context, turn Turn, result tools.Result) error

	// RescheduleCandidates shows reschedule options for an existing event.
	RescheduleCandidates(ctx context.Context, turn Turn, result tools.Result) error

	// CreateConfirmation asks the user to confirm an event before creation.
	CreateConfirmation(ctx context.Context, turn Turn, result tools.Result) error

	// RescheduleCompleted announces a completed reschedule.
	RescheduleCompleted(ctx context.Context, turn Turn, result tools.Result) error

	// FinalText posts the model's closing reply.
	FinalText(ctx context.Context, turn Turn, text string) error
}
