package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kaigibot/kaigibot/internal/tools"
)

// Register registers the scheduling tools with the MCP server. The tools
// delegate to the same executor the chat agent uses, so slot search,
// business-day handling, and reschedule suggestions behave identically on
// both surfaces. The account argument selects the stored Google credentials.
func Register(s *mcpserver.MCPServer, executor *tools.Executor) error {
	searchTool := mcp.NewTool("calendar_search_free_slots",
		mcp.WithDescription("Search free time slots for a set of attendees on a given date. "+
			"Weekends and Japanese public holidays return a warning instead of slots."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("attendees",
			mcp.Required(),
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithString("date",
			mcp.Description("Date to search (e.g., '2024-01-15', '今日', '明日'). Defaults to today."),
		),
		mcp.WithString("timeMin",
			mcp.Description("Earliest time of day to consider (e.g., '09:00'). Defaults to 09:00."),
		),
		mcp.WithString("timeMax",
			mcp.Description("Latest time of day to consider (e.g., '18:00'). Defaults to 20:00."),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Meeting duration in minutes (default: 60)"),
		),
		mcp.WithString("summary",
			mcp.Description("Meeting title used for the proposed event (default: 'ミーティング')"),
		),
	)

	s.AddTool(searchTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchFreeSlots(ctx, request, executor)
	})

	createTool := mcp.NewTool("calendar_create_event",
		mcp.WithDescription("Create a calendar event and invite the attendees"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("summary",
			mcp.Required(),
			mcp.Description("Event title"),
		),
		mcp.WithString("startTime",
			mcp.Required(),
			mcp.Description("Start time (RFC3339 format, e.g., '2024-01-15T14:00:00+09:00')"),
		),
		mcp.WithString("endTime",
			mcp.Required(),
			mcp.Description("End time (RFC3339 format, e.g., '2024-01-15T15:00:00+09:00')"),
		),
		mcp.WithString("attendees",
			mcp.Required(),
			mcp.Description("Comma-separated list of attendee email addresses"),
		),
		mcp.WithString("description",
			mcp.Description("Event description (optional)"),
		),
	)

	s.AddTool(createTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCreateEvent(ctx, request, executor)
	})

	rescheduleTool := mcp.NewTool("calendar_reschedule_event",
		mcp.WithDescription("Move an existing calendar event to a new time. Attendees are notified."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("eventId",
			mcp.Required(),
			mcp.Description("ID of the event to reschedule"),
		),
		mcp.WithString("newStartTime",
			mcp.Required(),
			mcp.Description("New start time (RFC3339 format)"),
		),
		mcp.WithString("newEndTime",
			mcp.Required(),
			mcp.Description("New end time (RFC3339 format)"),
		),
	)

	s.AddTool(rescheduleTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleRescheduleEvent(ctx, request, executor)
	})

	suggestTool := mcp.NewTool("calendar_suggest_reschedule",
		mcp.WithDescription("Suggest up to three alternative slots for an existing event based on "+
			"the attendees' availability. Identify the event by ID or by title substring."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("eventId",
			mcp.Description("ID of the event to reschedule (takes precedence over eventTitle)"),
		),
		mcp.WithString("eventTitle",
			mcp.Description("Title substring to search for when the ID is unknown"),
		),
		mcp.WithString("date",
			mcp.Description("Date to search for candidates (e.g., '2024-01-15', '明日'). Defaults to the event's own date."),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description("Desired duration in minutes. Defaults to the event's current length."),
		),
	)

	s.AddTool(suggestTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSuggestReschedule(ctx, request, executor)
	})

	return nil
}

// accountFromArgs extracts the account name, defaulting to "default".
func accountFromArgs(args map[string]interface{}) string {
	if account, ok := args["account"].(string); ok && account != "" {
		return account
	}
	return "default"
}

// splitEmails parses a comma-separated address list, trimming whitespace.
func splitEmails(s string) []string {
	parts := strings.Split(s, ",")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			emails = append(emails, p)
		}
	}
	return emails
}

// run encodes the input, executes the tool, and renders the result. Error
// and auth statuses become tool errors; everything else returns the result
// JSON so MCP clients see the same payload the chat model does.
func run(ctx context.Context, executor *tools.Executor, account, tool string, input any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode input: %v", err)), nil
	}

	result := executor.Execute(ctx, tool, raw, account)

	switch result.Status {
	case tools.StatusError:
		return mcp.NewToolResultError(result.Error), nil
	case tools.StatusOAuthRequired:
		return mcp.NewToolResultError(fmt.Sprintf("Account %q has no stored Google Calendar credentials", account)), nil
	}

	return mcp.NewToolResultText(result.JSON()), nil
}

func handleSearchFreeSlots(ctx context.Context, request mcp.CallToolRequest, executor *tools.Executor) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := accountFromArgs(args)

	attendeesStr, ok := args["attendees"].(string)
	if !ok || attendeesStr == "" {
		return mcp.NewToolResultError("attendees is required"), nil
	}

	input := map[string]any{
		"attendees": splitEmails(attendeesStr),
	}
	if date, ok := args["date"].(string); ok && date != "" {
		input["date"] = date
	}
	if timeMin, ok := args["timeMin"].(string); ok && timeMin != "" {
		input["time_min"] = timeMin
	}
	if timeMax, ok := args["timeMax"].(string); ok && timeMax != "" {
		input["time_max"] = timeMax
	}
	if duration, ok := args["durationMinutes"].(float64); ok && duration > 0 {
		input["duration_minutes"] = int(duration)
	}
	if summary, ok := args["summary"].(string); ok && summary != "" {
		input["summary"] = summary
	}

	return run(ctx, executor, account, tools.ToolSearchFreeSlots, input)
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, executor *tools.Executor) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := accountFromArgs(args)

	summary, ok := args["summary"].(string)
	if !ok || summary == "" {
		return mcp.NewToolResultError("summary is required"), nil
	}
	startTime, ok := args["startTime"].(string)
	if !ok || startTime == "" {
		return mcp.NewToolResultError("startTime is required"), nil
	}
	endTime, ok := args["endTime"].(string)
	if !ok || endTime == "" {
		return mcp.NewToolResultError("endTime is required"), nil
	}
	attendeesStr, ok := args["attendees"].(string)
	if !ok || attendeesStr == "" {
		return mcp.NewToolResultError("attendees is required"), nil
	}

	input := map[string]any{
		"summary":    summary,
		"start_time": startTime,
		"end_time":   endTime,
		"attendees":  splitEmails(attendeesStr),
	}
	if description, ok := args["description"].(string); ok && description != "" {
		input["description"] = description
	}

	return run(ctx, executor, account, tools.ToolCreateEvent, input)
}

func handleRescheduleEvent(ctx context.Context, request mcp.CallToolRequest, executor *tools.Executor) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := accountFromArgs(args)

	eventID, ok := args["eventId"].(string)
	if !ok || eventID == "" {
		return mcp.NewToolResultError("eventId is required"), nil
	}
	newStart, ok := args["newStartTime"].(string)
	if !ok || newStart == "" {
		return mcp.NewToolResultError("newStartTime is required"), nil
	}
	newEnd, ok := args["newEndTime"].(string)
	if !ok || newEnd == "" {
		return mcp.NewToolResultError("newEndTime is required"), nil
	}

	input := map[string]any{
		"event_id":       eventID,
		"new_start_time": newStart,
		"new_end_time":   newEnd,
	}

	return run(ctx, executor, account, tools.ToolRescheduleEvent, input)
}

func handleSuggestReschedule(ctx context.Context, request mcp.CallToolRequest, executor *tools.Executor) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := accountFromArgs(args)

	input := map[string]any{}
	if eventID, ok := args["eventId"].(string); ok && eventID != "" {
		input["event_id"] = eventID
	}
	if title, ok := args["eventTitle"].(string); ok && title != "" {
		input["event_title"] = title
	}
	if len(input) == 0 {
		return mcp.NewToolResultError("eventId or eventTitle is required"), nil
	}
	if date, ok := args["date"].(string); ok && date != "" {
		input["date"] = date
	}
	if duration, ok := args["durationMinutes"].(float64); ok && duration > 0 {
		input["duration_minutes"] = int(duration)
	}

	return run(ctx, executor, account, tools.ToolSuggestReschedule, input)
}
