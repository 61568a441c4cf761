package tools

import (
	"encoding/json"
	"fmt"
)

// Status tags a tool result. The tool-use loop switches on it to decide
// between folding the result back into the conversation and intercepting
// with a deterministic user-facing payload.
type Status string

const (
	StatusCreated           Status = "created"
	StatusRescheduled       Status = "rescheduled"
	StatusSuggestCreate     Status = "suggest_create"
	StatusSuggestSchedule   Status = "suggest_schedule"
	StatusSuggestReschedule Status = "suggest_reschedule"
	StatusOAuthRequired     Status = "oauth_required"
	StatusError             Status = "error"
)

// Slot is a candidate or busy interval in wire form (RFC3339, JST offset).
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Result is the structured outcome of one tool execution. Status selects
// which payload fields are meaningful; everything else is omitted from the
// JSON handed back to the model.
type Result struct {
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`

	// suggest_schedule
	Slots           []Slot   `json:"slots,omitempty"`
	BusyPeriods     []Slot   `json:"busy_periods,omitempty"`
	TotalSlots      int      `json:"total_slots"`
	Date            string   `json:"date,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	Attendees       []string `json:"attendees,omitempty"`

	// created / rescheduled
	EventID  string `json:"event_id,omitempty"`
	HTMLLink string `json:"html_link,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`

	// suggest_reschedule
	Candidates    []Slot `json:"candidates,omitempty"`
	FallbackUsed  bool   `json:"fallback_used,omitempty"`
	NoSlotsFound  bool   `json:"no_slots_found,omitempty"`
	SearchedDate  string `json:"searched_date,omitempty"`
	OriginalStart string `json:"original_start,omitempty"`
	OriginalEnd   string `json:"original_end,omitempty"`
}

// JSON renders the result for the model's tool_result block.
func (r Result) JSON() string {
	data, err := json.Marshal(r)
	if err != nil {
		// Result contains only marshalable fields; this is unreachable in
		// practice but must not panic mid-turn.
		return fmt.Sprintf(`{"status":"error","error":%q}`, err.Error())
	}
	return string(data)
}

// Errorf builds an error-status result.
func Errorf(format string, args ...any) Result {
	return Result{Status: StatusError, Error: fmt.Sprintf(format, args...)}
}
