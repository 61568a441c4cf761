// Package agent drives the scheduling conversation: it feeds thread history
// and the user's message to the model, executes the tools the model
// requests, and decides per tool result whether to continue the loop or
// intercept with an interactive reply.
//
// The loop is bounded and deterministic about interception: oauth_required,
// suggest_schedule, suggest_reschedule, suggest_create, and rescheduled end
// the turn immediately; created and error results are folded back into the
// conversation for the model to narrate.
package agent
