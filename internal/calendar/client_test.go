package calendar

import (
	"testing"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/kaigibot/kaigibot/internal/timeslot"
)

func TestToEventSummary(t *testing.T) {
	event := &calendar.Event{
		Id:       "ev123",
		Summary:  "プロジェクト定例",
		Status:   "confirmed",
		HtmlLink: "https://calendar.google.com/event?eid=abc",
		Start:    &calendar.EventDateTime{DateTime: "2024-01-15T14:00:00+09:00"},
		End:      &calendar.EventDateTime{DateTime: "2024-01-15T15:00:00+09:00"},
		Creator:  &calendar.EventCreator{Email: "creator@example.com"},
		Organizer: &calendar.EventOrganizer{
			Email: "organizer@example.com",
		},
		Attendees: []*calendar.EventAttendee{
			{Email: "a@example.com", ResponseStatus: "accepted"},
			{Email: "b@example.com", ResponseStatus: "needsAction", Optional: true},
		},
		ConferenceData: &calendar.ConferenceData{
			EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: "phone", Uri: "tel:+81-3-0000-0000"},
				{EntryPointType: "video", Uri: "https://meet.google.com/abc-defg-hij"},
			},
		},
	}

	summary := toEventSummary(event)

	if summary.ID != "ev123" {
		t.Errorf("ID = %q, want ev123", summary.ID)
	}
	if summary.Summary != "プロジェクト定例" {
		t.Errorf("Summary = %q", summary.Summary)
	}
	if got := summary.Start.In(timeslot.JST).Hour(); got != 14 {
		t.Errorf("Start hour = %d, want 14", got)
	}
	if summary.End.Sub(summary.Start) != time.Hour {
		t.Errorf("duration = %v, want 1h", summary.End.Sub(summary.Start))
	}
	if summary.Organizer != "organizer@example.com" {
		t.Errorf("Organizer = %q", summary.Organizer)
	}
	if len(summary.Attendees) != 2 {
		t.Fatalf("attendees = %d, want 2", len(summary.Attendees))
	}
	if !summary.Attendees[1].Optional {
		t.Error("second attendee should be optional")
	}
	if summary.MeetLink != "https://meet.google.com/abc-defg-hij" {
		t.Errorf("MeetLink = %q", summary.MeetLink)
	}
}

func TestParseEventTimeAllDay(t *testing.T) {
	got := parseEventTime(&calendar.EventDateTime{Date: "2024-01-15"})

	want := time.Date(2024, 1, 15, 0, 0, 0, 0, timeslot.JST)
	if !got.Equal(want) {
		t.Errorf("parseEventTime = %v, want %v", got, want)
	}
}

func TestParseEventTimeInvalid(t *testing.T) {
	got := parseEventTime(&calendar.EventDateTime{DateTime: "not-a-time"})
	if !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}

func TestMergeBusy(t *testing.T) {
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, timeslot.JST)

	infos := []FreeBusyInfo{
		{
			Calendar: "a@example.com",
			Busy: []timeslot.Interval{
				{Start: base, End: base.Add(time.Hour)},
			},
		},
		{
			Calendar: "b@example.com",
			Busy: []timeslot.Interval{
				{Start: base.Add(2 * time.Hour), End: base.Add(3 * time.Hour)},
				{Start: base.Add(4 * time.Hour), End: base.Add(5 * time.Hour)},
			},
		},
		{Calendar: "c@example.com"},
	}

	merged := MergeBusy(infos)
	if len(merged) != 3 {
		t.Fatalf("merged = %d intervals, want 3", len(merged))
	}
}

func TestMergeBusyEmpty(t *testing.T) {
	if got := MergeBusy(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
