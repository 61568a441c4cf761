package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/kaigibot/kaigibot/internal/timeslot"
)

// EventInput carries the fields needed to create a meeting.
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string

	// WithMeet requests a Google Meet conference on the event.
	WithMeet bool
}

// EventSummary is the simplified view of a calendar event returned to the
// tool layer.
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Status      string
	HTMLLink    string
	Start       time.Time
	End         time.Time
	Creator     string
	Organizer   string
	Attendees   []AttendeeInfo
	MeetLink    string
}

// AttendeeInfo describes one event attendee.
type AttendeeInfo struct {
	Email          string
	DisplayName    string
	ResponseStatus string // "needsAction", "declined", "tentative", "accepted"
	Optional       bool
	Organizer      bool
}

// FreeBusyInfo is the availability of one calendar within a query range.
type FreeBusyInfo struct {
	Calendar string
	Busy     []timeslot.Interval
	Errors   []string
}

// MergeBusy flattens per-calendar busy periods into a single list. The
// slot finder sorts its input, so no interval merging is needed here.
func MergeBusy(infos []FreeBusyInfo) []timeslot.Interval {
	var all []timeslot.Interval
	for _, info := range infos {
		all = append(all, info.Busy...)
	}
	return all
}

// toEventSummary converts a Google Calendar event resource.
func toEventSummary(event *calendar.Event) EventSummary {
	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	if event.Start != nil {
		summary.Start = parseEventTime(event.Start)
	}
	if event.End != nil {
		summary.End = parseEventTime(event.End)
	}

	if event.Creator != nil {
		summary.Creator = event.Creator.Email
	}
	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
			Optional:       att.Optional,
			Organizer:      att.Organizer,
		})
	}

	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.MeetLink = ep.Uri
				break
			}
		}
	}

	return summary
}

// parseEventTime handles both timed and all-day event boundaries. All-day
// dates are interpreted as JST midnights.
func parseEventTime(edt *calendar.EventDateTime) time.Time {
	if edt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, edt.DateTime); err == nil {
			return t
		}
	}
	if edt.Date != "" {
		if t, err := time.ParseInLocation("2006-01-02", edt.Date, timeslot.JST); err == nil {
			return t
		}
	}
	return time.Time{}
}
