package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaigibot/kaigibot/internal/tools"
)

func TestCleanMentionText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"leading mention", "<@U12345> 明日の空き時間を教えて", "明日の空き時間を教えて"},
		{"no mention", "明日の空き時間を教えて", "明日の空き時間を教えて"},
		{"only first mention removed", "<@U12345> <@U67890> と調整して", "<@U67890> と調整して"},
		{"mention only", "<@U12345>", ""},
		{"surrounding whitespace", "  <@U12345>  予定を確認  ", "予定を確認"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanMentionText(tt.in))
		})
	}
}

func TestFreeSlotsBlocks(t *testing.T) {
	result := tools.Result{
		Status:          tools.StatusSuggestSchedule,
		Summary:         "定例MTG",
		DurationMinutes: 60,
		Attendees:       []string{"a@example.com", "b@example.com"},
		TotalSlots:      2,
		Slots: []tools.Slot{
			{Start: "2024-01-16T09:00:00+09:00", End: "2024-01-16T10:00:00+09:00"},
			{Start: "2024-01-16T14:00:00+09:00", End: "2024-01-16T15:00:00+09:00"},
		},
	}

	blocks := FreeSlotsBlocks(result)

	// header, summary section, divider, two candidates
	require.Len(t, blocks, 5)
	assert.Equal(t, "header", blocks[0].Type)
	assert.Contains(t, blocks[0].Text.Text, "定例MTG")
	assert.Contains(t, blocks[1].Text.Text, "a@example.com, b@example.com")

	first := blocks[3]
	assert.Contains(t, first.Text.Text, "01/16 09:00 - 10:00")
	require.NotNil(t, first.Accessory)
	assert.Equal(t, "confirm_slot_0", first.Accessory.ActionID)

	var action SlotAction
	require.NoError(t, json.Unmarshal([]byte(first.Accessory.Value), &action))
	assert.Equal(t, "confirm_slot", action.Action)
	assert.Equal(t, "2024-01-16T09:00:00+09:00", action.Start)
	assert.Equal(t, "定例MTG", action.Summary)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, action.Attendees)
}

func TestFreeSlotsBlocksCapsButtons(t *testing.T) {
	slots := make([]tools.Slot, 8)
	for i := range slots {
		slots[i] = tools.Slot{Start: "2024-01-16T09:00:00+09:00", End: "2024-01-16T10:00:00+09:00"}
	}

	blocks := FreeSlotsBlocks(tools.Result{
		Summary:    "MTG",
		Slots:      slots,
		TotalSlots: len(slots),
		Attendees:  []string{"a@example.com"},
	})

	buttons := 0
	for _, b := range blocks {
		if b.Accessory != nil {
			buttons++
		}
	}
	assert.Equal(t, maxSlotButtons, buttons)

	last := blocks[len(blocks)-1]
	require.Equal(t, "context", last.Type)
	assert.Contains(t, last.Elements[0].Text, "他にも 3 件")
}

func TestRescheduleBlocks(t *testing.T) {
	result := tools.Result{
		Status:          tools.StatusSuggestReschedule,
		EventID:         "evt1",
		Summary:         "定例会議",
		DurationMinutes: 60,
		Attendees:       []string{"a@example.com"},
		SearchedDate:    "2024-01-15",
		OriginalStart:   "2024-01-15T10:00:00+09:00",
		OriginalEnd:     "2024-01-15T11:00:00+09:00",
		FallbackUsed:    true,
		Candidates: []tools.Slot{
			{Start: "2024-01-16T09:00:00+09:00", End: "2024-01-16T10:00:00+09:00"},
		},
	}

	blocks := RescheduleBlocks(result)

	assert.Contains(t, blocks[0].Text.Text, "定例会議")
	assert.Contains(t, blocks[1].Text.Text, "2024/01/15 10:00 - 11:00")

	candidate := blocks[3]
	require.NotNil(t, candidate.Accessory)
	assert.Equal(t, "confirm_reschedule_0", candidate.Accessory.ActionID)

	var action SlotAction
	require.NoError(t, json.Unmarshal([]byte(candidate.Accessory.Value), &action))
	assert.Equal(t, "confirm_reschedule", action.Action)
	assert.Equal(t, "evt1", action.EventID)

	last := blocks[len(blocks)-1]
	require.Equal(t, "context", last.Type)
	assert.Contains(t, last.Elements[0].Text, "翌営業日")
}

func TestOAuthPromptBlocks(t *testing.T) {
	blocks := OAuthPromptBlocks("https://accounts.google.com/o/oauth2/auth?state=U1")

	require.Len(t, blocks, 1)
	require.NotNil(t, blocks[0].Accessory)
	assert.Equal(t, ActionGoogleOAuth, blocks[0].Accessory.ActionID)
	assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=U1", blocks[0].Accessory.URL)
}

func TestSlotConfirmationModal(t *testing.T) {
	meta := SlotModalMetadata{
		ChannelID: "C1",
		MessageTS: "1700000000.000100",
		Start:     "2024-01-16T09:00:00+09:00",
		End:       "2024-01-16T10:00:00+09:00",
		Attendees: []string{"a@example.com"},
		Summary:   "定例MTG",
	}

	view := SlotConfirmationModal(meta)

	assert.Equal(t, "modal", view.Type)
	assert.Equal(t, CallbackSlotModal, view.CallbackID)

	var decoded SlotModalMetadata
	require.NoError(t, json.Unmarshal([]byte(view.PrivateMetadata), &decoded))
	assert.Equal(t, meta, decoded)

	require.Len(t, view.Blocks, 2)
	input := view.Blocks[1]
	assert.Equal(t, "input", input.Type)
	assert.Equal(t, SummaryBlockID, input.BlockID)
	element, ok := input.Element.(*PlainTextInput)
	require.True(t, ok)
	assert.Equal(t, SummaryInputAction, element.ActionID)
	assert.Equal(t, "定例MTG", element.InitialValue)
}

func TestEventCreatedBlocksWithoutLink(t *testing.T) {
	blocks := EventCreatedBlocks("MTG", "2024-01-16T09:00:00+09:00", "2024-01-16T10:00:00+09:00", []string{"a@example.com"}, "")
	assert.Len(t, blocks, 2)

	withLink := EventCreatedBlocks("MTG", "2024-01-16T09:00:00+09:00", "2024-01-16T10:00:00+09:00", []string{"a@example.com"}, "https://cal.example/e")
	require.Len(t, withLink, 3)
	assert.Contains(t, withLink[2].Text.Text, "Google Calendarで確認")
}
