package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kaigibot/kaigibot/internal/timeslot"
)

// Notification and search policy for assistant-managed events. Attendees
// always get invitation and reschedule emails; title search only considers
// upcoming events.
const (
	sendUpdatesAll    = "all"
	eventTimeZone     = "Asia/Tokyo"
	searchWindow      = 30 * 24 * time.Hour
	searchResultLimit = 25
)

// Service is the calendar surface consumed by the tool executor.
type Service interface {
	QueryFreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]FreeBusyInfo, error)
	SearchFreeSlots(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time, duration time.Duration) (slots, busy []timeslot.Interval, err error)
	CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error)
	RescheduleEvent(ctx context.Context, eventID string, newStart, newEnd time.Time) (*EventSummary, error)
	GetEvent(ctx context.Context, eventID string) (*EventSummary, error)
	SearchEventsByTitle(ctx context.Context, query string) ([]EventSummary, error)
}

// Client wraps the Google Calendar service for one authorized user. All
// operations run against the user's primary calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient builds a Calendar client from the user's OAuth token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: "primary",
		logger:     logger,
		now:        time.Now,
	}, nil
}

// QueryFreeBusy checks availability for the given calendars in a time range.
// Results are ordered like calendarIDs.
func (c *Client) QueryFreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]FreeBusyInfo, error) {
	items := make([]*calendar.FreeBusyRequestItem, len(calendarIDs))
	for i, id := range calendarIDs {
		items[i] = &calendar.FreeBusyRequestItem{Id: id}
	}

	query := &calendar.FreeBusyRequest{
		TimeMin:  timeMin.Format(time.RFC3339),
		TimeMax:  timeMax.Format(time.RFC3339),
		TimeZone: eventTimeZone,
		Items:    items,
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query freebusy: %w", err)
	}

	infos := make([]FreeBusyInfo, 0, len(calendarIDs))
	for _, calID := range calendarIDs {
		info := FreeBusyInfo{Calendar: calID}

		cal, ok := result.Calendars[calID]
		if !ok {
			infos = append(infos, info)
			continue
		}

		for _, busy := range cal.Busy {
			start, err := time.Parse(time.RFC3339, busy.Start)
			if err != nil {
				continue
			}
			end, err := time.Parse(time.RFC3339, busy.End)
			if err != nil {
				continue
			}
			info.Busy = append(info.Busy, timeslot.Interval{Start: start, End: end})
		}

		for _, calErr := range cal.Errors {
			info.Errors = append(info.Errors, calErr.Reason)
		}

		infos = append(infos, info)
	}

	return infos, nil
}

// SearchFreeSlots merges the busy periods of every attendee calendar and
// runs slot discovery over the range with the default work hours. The merged
// busy list is returned alongside the slots so callers can explain why a
// window is unavailable.
func (c *Client) SearchFreeSlots(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time, duration time.Duration) ([]timeslot.Interval, []timeslot.Interval, error) {
	infos, err := c.QueryFreeBusy(ctx, calendarIDs, timeMin, timeMax)
	if err != nil {
		return nil, nil, err
	}

	busy := MergeBusy(infos)
	slots := timeslot.FindFreeSlots(busy, timeMin, timeMax, duration,
		timeslot.DefaultWorkStartHour, timeslot.DefaultWorkEndHour)

	return slots, busy, nil
}

// CreateEvent creates a meeting on the user's primary calendar and emails
// invitations to all attendees.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error) {
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: eventTimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: eventTimeZone,
		},
	}

	for _, email := range input.Attendees {
		event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: email})
	}

	call := c.svc.Events.Insert(c.calendarID, event).
		SendUpdates(sendUpdatesAll).
		Context(ctx)

	if input.WithMeet {
		event.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId: uuid.NewString(),
			},
		}
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	c.logger.Info("created event", "event_id", created.Id, "summary", input.Summary)

	summary := toEventSummary(created)
	return &summary, nil
}

// RescheduleEvent moves an existing event to a new time, keeping every other
// field intact, and notifies attendees.
func (c *Client) RescheduleEvent(ctx context.Context, eventID string, newStart, newEnd time.Time) (*EventSummary, error) {
	existing, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	existing.Start = &calendar.EventDateTime{
		DateTime: newStart.Format(time.RFC3339),
		TimeZone: eventTimeZone,
	}
	existing.End = &calendar.EventDateTime{
		DateTime: newEnd.Format(time.RFC3339),
		TimeZone: eventTimeZone,
	}

	updated, err := c.svc.Events.Update(c.calendarID, eventID, existing).
		SendUpdates(sendUpdatesAll).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	c.logger.Info("rescheduled event", "event_id", eventID)

	summary := toEventSummary(updated)
	return &summary, nil
}

// GetEvent retrieves a specific event by ID.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*EventSummary, error) {
	event, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	summary := toEventSummary(event)
	return &summary, nil
}

// SearchEventsByTitle finds upcoming events whose title contains query,
// case-insensitively, within the next 30 days.
func (c *Client) SearchEventsByTitle(ctx context.Context, query string) ([]EventSummary, error) {
	now := c.now()

	events, err := c.svc.Events.List(c.calendarID).
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(searchWindow).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	needle := strings.ToLower(query)

	var matches []EventSummary
	for _, event := range events.Items {
		if !strings.Contains(strings.ToLower(event.Summary), needle) {
			continue
		}
		matches = append(matches, toEventSummary(event))
		if len(matches) == searchResultLimit {
			break
		}
	}

	return matches, nil
}
