package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kaigibot/kaigibot/internal/calendar"
	"github.com/kaigibot/kaigibot/internal/google"
	"github.com/kaigibot/kaigibot/internal/instrumentation"
	"github.com/kaigibot/kaigibot/internal/timeslot"
)

const (
	defaultDurationMinutes = 60
	defaultSummary         = "ミーティング"
	maxRescheduleOptions   = 3
)

// ServiceResolver obtains the calendar service for a user. It returns
// google.ErrNotAuthorized when the user has not completed the OAuth flow.
type ServiceResolver func(ctx context.Context, userID string) (calendar.Service, error)

// Executor runs the scheduling tools requested by the model.
type Executor struct {
	resolve ServiceResolver
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	now     func() time.Time
}

// NewExecutor builds an Executor. metrics may be nil.
func NewExecutor(resolve ServiceResolver, logger *slog.Logger, metrics *instrumentation.Metrics) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		resolve: resolve,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Execute dispatches one tool call on behalf of userID. Failures are
// reported as error-status results rather than Go errors so they can be
// folded back into the conversation.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage, userID string) Result {
	started := time.Now()

	result := e.execute(ctx, name, input, userID)

	e.metrics.RecordToolInvocation(ctx, name, string(result.Status), time.Since(started))
	e.logger.Info("executed tool",
		"tool", name,
		"status", result.Status,
		"duration_ms", time.Since(started).Milliseconds())

	return result
}

func (e *Executor) execute(ctx context.Context, name string, input json.RawMessage, userID string) Result {
	svc, err := e.resolve(ctx, userID)
	if err != nil {
		if errors.Is(err, google.ErrNotAuthorized) {
			return Result{
				Status:  StatusOAuthRequired,
				Error:   "Google Calendarの認証が必要です。",
				Message: "ユーザーにGoogle Calendar認証リンクを案内してください。",
			}
		}
		return Errorf("%v", err)
	}

	switch name {
	case ToolSearchFreeSlots:
		return e.searchFreeSlots(ctx, svc, input)
	case ToolCreateEvent:
		return e.createEvent(ctx, svc, input)
	case ToolRescheduleEvent:
		return e.rescheduleEvent(ctx, svc, input)
	case ToolSuggestReschedule:
		return e.suggestReschedule(ctx, svc, input)
	default:
		return Errorf("Unknown tool: %s", name)
	}
}

type searchFreeSlotsInput struct {
	Attendees       []string `json:"attendees"`
	Date            string   `json:"date"`
	TimeMin         string   `json:"time_min"`
	TimeMax         string   `json:"time_max"`
	DurationMinutes int      `json:"duration_minutes"`
	Summary         string   `json:"summary"`
}

func (e *Executor) searchFreeSlots(ctx context.Context, svc calendar.Service, input json.RawMessage) Result {
	var in searchFreeSlotsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Errorf("invalid tool input: %v", err)
	}
	if len(in.Attendees) == 0 {
		return Errorf("attendees is required")
	}

	token := in.Date
	if token == "" {
		token = "今日"
	}
	rangeStart, rangeEnd, err := timeslot.ResolveDateRange(token, e.now())
	if err != nil {
		return Errorf("%v", err)
	}

	if in.DurationMinutes <= 0 {
		in.DurationMinutes = defaultDurationMinutes
	}
	if in.Summary == "" {
		in.Summary = defaultSummary
	}

	date := rangeStart.Format("2006-01-02")

	// Weekends and holidays are reported without touching the provider.
	if !timeslot.IsBusinessDay(rangeStart) {
		reason := "土日"
		if holiday := timeslot.HolidayName(rangeStart); holiday != "" {
			reason = holiday
		}
		return Result{
			Status:          StatusSuggestSchedule,
			Warning:         fmt.Sprintf("%s（%s）は営業日外のため、空き時間を提案できません。別の日付をご指定ください。", date, reason),
			TotalSlots:      0,
			Date:            date,
			DurationMinutes: in.DurationMinutes,
			Summary:         in.Summary,
			Attendees:       in.Attendees,
		}
	}

	if in.TimeMin != "" {
		clamp, err := clockOn(rangeStart, in.TimeMin)
		if err != nil {
			return Errorf("%v", err)
		}
		rangeStart = clamp
	}
	if in.TimeMax != "" {
		clamp, err := clockOn(rangeStart, in.TimeMax)
		if err != nil {
			return Errorf("%v", err)
		}
		rangeEnd = clamp
	}

	duration := time.Duration(in.DurationMinutes) * time.Minute

	slots, busy, err := svc.SearchFreeSlots(ctx, in.Attendees, rangeStart, rangeEnd, duration)
	if err != nil {
		return Errorf("%v", err)
	}

	return Result{
		Status:          StatusSuggestSchedule,
		Slots:           toSlots(slots),
		BusyPeriods:     toSlots(busy),
		TotalSlots:      len(slots),
		Date:            date,
		DurationMinutes: in.DurationMinutes,
		Summary:         in.Summary,
		Attendees:       in.Attendees,
	}
}

type createEventInput struct {
	Summary     string   `json:"summary"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Attendees   []string `json:"attendees"`
	Description string   `json:"description"`
}

func (e *Executor) createEvent(ctx context.Context, svc calendar.Service, input json.RawMessage) Result {
	var in createEventInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Errorf("invalid tool input: %v", err)
	}

	start, err := timeslot.ParseDateTime(in.StartTime)
	if err != nil {
		return Errorf("%v", err)
	}
	end, err := timeslot.ParseDateTime(in.EndTime)
	if err != nil {
		return Errorf("%v", err)
	}

	event, err := svc.CreateEvent(ctx, calendar.EventInput{
		Summary:     in.Summary,
		Description: in.Description,
		Start:       start,
		End:         end,
		Attendees:   in.Attendees,
	})
	if err != nil {
		return Errorf("%v", err)
	}

	return Result{
		Status:    StatusCreated,
		EventID:   event.ID,
		HTMLLink:  event.HTMLLink,
		Summary:   event.Summary,
		Start:     timeslot.FormatRFC3339(event.Start),
		End:       timeslot.FormatRFC3339(event.End),
		Attendees: in.Attendees,
	}
}

type rescheduleEventInput struct {
	EventID      string `json:"event_id"`
	NewStartTime string `json:"new_start_time"`
	NewEndTime   string `json:"new_end_time"`
}

func (e *Executor) rescheduleEvent(ctx context.Context, svc calendar.Service, input json.RawMessage) Result {
	var in rescheduleEventInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Errorf("invalid tool input: %v", err)
	}
	if in.EventID == "" {
		return Errorf("event_id is required")
	}

	start, err := timeslot.ParseDateTime(in.NewStartTime)
	if err != nil {
		return Errorf("%v", err)
	}
	end, err := timeslot.ParseDateTime(in.NewEndTime)
	if err != nil {
		return Errorf("%v", err)
	}

	event, err := svc.RescheduleEvent(ctx, in.EventID, start, end)
	if err != nil {
		return Errorf("%v", err)
	}

	return Result{
		Status:    StatusRescheduled,
		EventID:   event.ID,
		HTMLLink:  event.HTMLLink,
		Summary:   event.Summary,
		Start:     timeslot.FormatRFC3339(event.Start),
		End:       timeslot.FormatRFC3339(event.End),
		Attendees: attendeeEmails(event.Attendees),
	}
}

type suggestRescheduleInput struct {
	EventID         string `json:"event_id"`
	EventTitle      string `json:"event_title"`
	Date            string `json:"date"`
	DurationMinutes int    `json:"duration_minutes"`
}

// suggestReschedule resolves the target event, derives its attendees and
// duration, and proposes up to three free slots. The search prefers the
// requested date (or the event's own date) and falls over to the next
// business day when that day cannot fill three options.
func (e *Executor) suggestReschedule(ctx context.Context, svc calendar.Service, input json.RawMessage) Result {
	var in suggestRescheduleInput
	if err := json.Unmarshal(input, &in); err != nil {
		return Errorf("invalid tool input: %v", err)
	}

	event, result := e.resolveEvent(ctx, svc, in)
	if result != nil {
		return *result
	}

	attendees := attendeeEmails(event.Attendees)
	if len(attendees) == 0 {
		switch {
		case event.Organizer != "":
			attendees = []string{event.Organizer}
		case event.Creator != "":
			attendees = []string{event.Creator}
		default:
			return Errorf("イベント「%s」の参加者を特定できませんでした。", event.Summary)
		}
	}

	duration := event.End.Sub(event.Start)
	if in.DurationMinutes > 0 {
		duration = time.Duration(in.DurationMinutes) * time.Minute
	}
	if duration <= 0 {
		duration = defaultDurationMinutes * time.Minute
	}

	dayStart, err := e.resolveTargetDay(in.Date, event.Start)
	if err != nil {
		return Errorf("%v", err)
	}

	candidates, err := e.collectCandidates(ctx, svc, attendees, dayStart, duration, *event)
	if err != nil {
		return Errorf("%v", err)
	}

	if len(candidates) < maxRescheduleOptions {
		fallbackDay := timeslot.NextBusinessDay(dayStart)
		more, err := e.collectCandidates(ctx, svc, attendees, fallbackDay, duration, *event)
		if err != nil {
			return Errorf("%v", err)
		}
		candidates = append(candidates, more...)
	}

	if len(candidates) > maxRescheduleOptions {
		candidates = candidates[:maxRescheduleOptions]
	}

	base := Result{
		Status:          StatusSuggestReschedule,
		EventID:         event.ID,
		Summary:         event.Summary,
		DurationMinutes: int(duration / time.Minute),
		Attendees:       attendees,
		SearchedDate:    dayStart.Format("2006-01-02"),
		OriginalStart:   timeslot.FormatRFC3339(event.Start),
		OriginalEnd:     timeslot.FormatRFC3339(event.End),
	}

	if len(candidates) == 0 {
		base.NoSlotsFound = true
		return base
	}

	base.Candidates = toSlots(candidates)
	base.FallbackUsed = !anyOnDay(candidates, dayStart)
	return base
}

// resolveEvent looks the target event up by ID or by title. A non-nil
// second return value is the terminal result to hand back to the model.
func (e *Executor) resolveEvent(ctx context.Context, svc calendar.Service, in suggestRescheduleInput) (*calendar.EventSummary, *Result) {
	if in.EventID != "" {
		event, err := svc.GetEvent(ctx, in.EventID)
		if err != nil {
			result := Errorf("%v", err)
			return nil, &result
		}
		return event, nil
	}

	if in.EventTitle == "" {
		result := Errorf("event_id または event_title のいずれかを指定してください。")
		return nil, &result
	}

	matches, err := svc.SearchEventsByTitle(ctx, in.EventTitle)
	if err != nil {
		result := Errorf("%v", err)
		return nil, &result
	}
	if len(matches) == 0 {
		result := Errorf("「%s」に一致するイベントが見つかりませんでした。", in.EventTitle)
		return nil, &result
	}
	return &matches[0], nil
}

// resolveTargetDay picks the day to search: the explicit date token if
// given, otherwise the event's own date, advanced to the next business
// day when it lands on a weekend or holiday.
func (e *Executor) resolveTargetDay(dateToken string, eventStart time.Time) (time.Time, error) {
	var day time.Time
	if dateToken != "" {
		start, _, err := timeslot.ResolveDateRange(dateToken, e.now())
		if err != nil {
			return time.Time{}, err
		}
		day = start
	} else {
		local := eventStart.In(timeslot.JST)
		day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, timeslot.JST)
	}

	if !timeslot.IsBusinessDay(day) {
		day = timeslot.NextBusinessDay(day)
	}
	return day, nil
}

// collectCandidates searches one full day, dropping the slot identical to
// the event's current time. Elapsed slots are dropped only when the search
// day is the current day; an explicit other date keeps its full schedule.
func (e *Executor) collectCandidates(ctx context.Context, svc calendar.Service, attendees []string, dayStart time.Time, duration time.Duration, event calendar.EventSummary) ([]timeslot.Interval, error) {
	slots, _, err := svc.SearchFreeSlots(ctx, attendees, dayStart, dayStart.AddDate(0, 0, 1), duration)
	if err != nil {
		return nil, err
	}

	now := e.now()
	searchingToday := dayStart.In(timeslot.JST).Format("2006-01-02") == now.In(timeslot.JST).Format("2006-01-02")

	var kept []timeslot.Interval
	for _, slot := range slots {
		if searchingToday && slot.Start.Before(now) {
			continue
		}
		if slot.Start.Equal(event.Start) && slot.End.Equal(event.End) {
			continue
		}
		kept = append(kept, slot)
	}
	return kept, nil
}

func anyOnDay(slots []timeslot.Interval, day time.Time) bool {
	date := day.In(timeslot.JST).Format("2006-01-02")
	for _, slot := range slots {
		if slot.Start.In(timeslot.JST).Format("2006-01-02") == date {
			return true
		}
	}
	return false
}

// clockOn places an "HH:MM" wall-clock time on the given day in JST.
func clockOn(day time.Time, hhmm string) (time.Time, error) {
	parsed, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse time: %s", hhmm)
	}
	local := day.In(timeslot.JST)
	return time.Date(local.Year(), local.Month(), local.Day(), parsed.Hour(), parsed.Minute(), 0, 0, timeslot.JST), nil
}

func toSlots(intervals []timeslot.Interval) []Slot {
	slots := make([]Slot, 0, len(intervals))
	for _, iv := range intervals {
		slots = append(slots, Slot{
			Start: timeslot.FormatRFC3339(iv.Start),
			End:   timeslot.FormatRFC3339(iv.End),
		})
	}
	return slots
}

func attendeeEmails(attendees []calendar.AttendeeInfo) []string {
	var emails []string
	for _, att := range attendees {
		if att.Email != "" {
			emails = append(emails, att.Email)
		}
	}
	return emails
}
