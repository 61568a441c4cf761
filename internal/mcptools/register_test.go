package mcptools

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaigibot/kaigibot/internal/calendar"
	"github.com/kaigibot/kaigibot/internal/google"
	"github.com/kaigibot/kaigibot/internal/timeslot"
	"github.com/kaigibot/kaigibot/internal/tools"
)

type fakeService struct {
	createdInput calendar.EventInput
	created      *calendar.EventSummary
}

func (f *fakeService) QueryFreeBusy(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time) ([]calendar.FreeBusyInfo, error) {
	return nil, nil
}

func (f *fakeService) SearchFreeSlots(ctx context.Context, calendarIDs []string, timeMin, timeMax time.Time, duration time.Duration) (slots, busy []timeslot.Interval, err error) {
	return nil, nil, nil
}

func (f *fakeService) CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.EventSummary, error) {
	f.createdInput = input
	return f.created, nil
}

func (f *fakeService) RescheduleEvent(ctx context.Context, eventID string, newStart, newEnd time.Time) (*calendar.EventSummary, error) {
	return nil, nil
}

func (f *fakeService) GetEvent(ctx context.Context, eventID string) (*calendar.EventSummary, error) {
	return nil, nil
}

func (f *fakeService) SearchEventsByTitle(ctx context.Context, query string) ([]calendar.EventSummary, error) {
	return nil, nil
}

func testExecutor(svc calendar.Service) *tools.Executor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return tools.NewExecutor(func(ctx context.Context, userID string) (calendar.Service, error) {
		if svc == nil {
			return nil, google.ErrNotAuthorized
		}
		return svc, nil
	}, logger, nil)
}

func callRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestAccountFromArgs(t *testing.T) {
	assert.Equal(t, "default", accountFromArgs(map[string]interface{}{}))
	assert.Equal(t, "default", accountFromArgs(map[string]interface{}{"account": ""}))
	assert.Equal(t, "work", accountFromArgs(map[string]interface{}{"account": "work"}))
	assert.Equal(t, "default", accountFromArgs(map[string]interface{}{"account": 42}))
}

func TestSplitEmails(t *testing.T) {
	assert.Equal(t, []string{"a@example.com", "b@example.com"},
		splitEmails("a@example.com, b@example.com"))
	assert.Equal(t, []string{"a@example.com"}, splitEmails("a@example.com,"))
	assert.Empty(t, splitEmails(""))
}

func TestHandleSearchFreeSlotsRequiresAttendees(t *testing.T) {
	executor := testExecutor(&fakeService{})

	result, err := handleSearchFreeSlots(context.Background(),
		callRequest("calendar_search_free_slots", map[string]interface{}{}), executor)

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "attendees is required")
}

func TestHandleCreateEvent(t *testing.T) {
	svc := &fakeService{
		created: &calendar.EventSummary{
			ID:       "ev-1",
			Summary:  "定例MTG",
			HTMLLink: "https://calendar.google.com/event?eid=ev-1",
			Start:    time.Date(2024, 1, 15, 14, 0, 0, 0, timeslot.JST),
			End:      time.Date(2024, 1, 15, 15, 0, 0, 0, timeslot.JST),
		},
	}
	executor := testExecutor(svc)

	result, err := handleCreateEvent(context.Background(),
		callRequest("calendar_create_event", map[string]interface{}{
			"summary":   "定例MTG",
			"startTime": "2024-01-15T14:00:00+09:00",
			"endTime":   "2024-01-15T15:00:00+09:00",
			"attendees": "tanaka@example.com, sato@example.com",
		}), executor)

	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"status":"created"`)
	assert.Equal(t, []string{"tanaka@example.com", "sato@example.com"}, svc.createdInput.Attendees)
}

func TestHandleCreateEventMissingStart(t *testing.T) {
	executor := testExecutor(&fakeService{})

	result, err := handleCreateEvent(context.Background(),
		callRequest("calendar_create_event", map[string]interface{}{
			"summary":   "定例MTG",
			"endTime":   "2024-01-15T15:00:00+09:00",
			"attendees": "tanaka@example.com",
		}), executor)

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "startTime is required")
}

func TestHandleRescheduleEventRequiresID(t *testing.T) {
	executor := testExecutor(&fakeService{})

	result, err := handleRescheduleEvent(context.Background(),
		callRequest("calendar_reschedule_event", map[string]interface{}{
			"newStartTime": "2024-01-16T10:00:00+09:00",
			"newEndTime":   "2024-01-16T11:00:00+09:00",
		}), executor)

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "eventId is required")
}

func TestHandleSuggestRescheduleRequiresIdentifier(t *testing.T) {
	executor := testExecutor(&fakeService{})

	result, err := handleSuggestReschedule(context.Background(),
		callRequest("calendar_suggest_reschedule", map[string]interface{}{}), executor)

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "eventId or eventTitle is required")
}

func TestUnauthorizedAccountBecomesToolError(t *testing.T) {
	executor := testExecutor(nil)

	result, err := handleCreateEvent(context.Background(),
		callRequest("calendar_create_event", map[string]interface{}{
			"account":   "personal",
			"summary":   "定例MTG",
			"startTime": "2024-01-15T14:00:00+09:00",
			"endTime":   "2024-01-15T15:00:00+09:00",
			"attendees": "tanaka@example.com",
		}), executor)

	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"personal"`)
}
