package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaigibot/kaigibot/internal/timeslot"
	"github.com/kaigibot/kaigibot/internal/tools"
)

// Interaction identifiers shared between block builders and the interactive
// endpoint.
const (
	ActionConfirmSlotPrefix       = "confirm_slot_"
	ActionConfirmReschedulePrefix = "confirm_reschedule_"
	ActionConfirmCreate           = "confirm_create"
	ActionGoogleOAuth             = "google_oauth"

	CallbackSlotModal   = "slot_confirmation_modal"
	CallbackCreateModal = "create_confirmation_modal"

	SummaryBlockID     = "summary_block"
	SummaryInputAction = "summary_input"
)

// Button caps per message, keeping candidate lists scannable.
const (
	maxSlotButtons     = 5
	maxRescheduleSlots = 3
)

// Block Kit element types. Only the shapes the assistant renders are
// modeled.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func plainText(s string) *Text    { return &Text{Type: "plain_text", Text: s} }
func markdownText(s string) *Text { return &Text{Type: "mrkdwn", Text: s} }

type Button struct {
	Type     string `json:"type"`
	Text     *Text  `json:"text"`
	ActionID string `json:"action_id"`
	Value    string `json:"value,omitempty"`
	URL      string `json:"url,omitempty"`
	Style    string `json:"style,omitempty"`
}

type PlainTextInput struct {
	Type         string `json:"type"`
	ActionID     string `json:"action_id"`
	InitialValue string `json:"initial_value,omitempty"`
}

type Block struct {
	Type      string  `json:"type"`
	Text      *Text   `json:"text,omitempty"`
	Accessory *Button `json:"accessory,omitempty"`
	Elements  []*Text `json:"elements,omitempty"`
	BlockID   string  `json:"block_id,omitempty"`
	Label     *Text   `json:"label,omitempty"`
	Element   any     `json:"element,omitempty"`
}

type View struct {
	Type            string  `json:"type"`
	CallbackID      string  `json:"callback_id"`
	PrivateMetadata string  `json:"private_metadata,omitempty"`
	Title           *Text   `json:"title"`
	Submit          *Text   `json:"submit,omitempty"`
	Close           *Text   `json:"close,omitempty"`
	Blocks          []Block `json:"blocks"`
}

// SlotAction is the JSON payload carried in slot and reschedule buttons.
type SlotAction struct {
	Action    string   `json:"action"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	EventID   string   `json:"event_id,omitempty"`
}

// SlotModalMetadata travels through the slot confirmation modal's
// private_metadata so the submission can create the event and update the
// original message.
type SlotModalMetadata struct {
	ChannelID string   `json:"channel_id"`
	MessageTS string   `json:"message_ts"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Attendees []string `json:"attendees"`
	Summary   string   `json:"summary"`
}

// CreateModalMetadata is the create confirmation modal's private_metadata.
type CreateModalMetadata struct {
	ChannelID   string   `json:"channel_id"`
	MessageTS   string   `json:"message_ts"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	Attendees   []string `json:"attendees"`
	Description string   `json:"description,omitempty"`
	Summary     string   `json:"summary"`
}

// formatSlotRange renders "01/16 14:00 - 15:00" from two RFC3339 strings.
// Unparseable input falls back to the raw strings.
func formatSlotRange(start, end string) string {
	startT, err1 := timeslot.ParseDateTime(start)
	endT, err2 := timeslot.ParseDateTime(end)
	if err1 != nil || err2 != nil {
		return start + " - " + end
	}
	return fmt.Sprintf("%s - %s",
		startT.In(timeslot.JST).Format("01/02 15:04"),
		endT.In(timeslot.JST).Format("15:04"))
}

func formatSlotRangeWithYear(start, end string) string {
	startT, err1 := timeslot.ParseDateTime(start)
	endT, err2 := timeslot.ParseDateTime(end)
	if err1 != nil || err2 != nil {
		return start + " - " + end
	}
	return fmt.Sprintf("%s - %s",
		startT.In(timeslot.JST).Format("2006/01/02 15:04"),
		endT.In(timeslot.JST).Format("15:04"))
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// FreeSlotsBlocks renders free-slot candidates with booking buttons. At most
// five candidates get buttons; the remainder is summarized in a context line.
func FreeSlotsBlocks(result tools.Result) []Block {
	blocks := []Block{
		{
			Type: "header",
			Text: plainText(fmt.Sprintf("📅 %s - 空き時間候補", result.Summary)),
		},
		{
			Type: "section",
			Text: markdownText(fmt.Sprintf(
				"*参加者:* %s\n*所要時間:* %d分\n*候補数:* %d件",
				strings.Join(result.Attendees, ", "),
				result.DurationMinutes,
				result.TotalSlots,
			)),
		},
		{Type: "divider"},
	}

	display := result.Slots
	if len(display) > maxSlotButtons {
		display = display[:maxSlotButtons]
	}

	for i, slot := range display {
		value := mustJSON(SlotAction{
			Action:    "confirm_slot",
			Start:     slot.Start,
			End:       slot.End,
			Attendees: result.Attendees,
			Summary:   result.Summary,
		})
		blocks = append(blocks, Block{
			Type: "section",
			Text: markdownText(fmt.Sprintf("*候補 %d:* %s", i+1, formatSlotRange(slot.Start, slot.End))),
			Accessory: &Button{
				Type:     "button",
				Text:     plainText("この時間で予約"),
				ActionID: fmt.Sprintf("%s%d", ActionConfirmSlotPrefix, i),
				Value:    value,
				Style:    "primary",
			},
		})
	}

	if len(result.Slots) > maxSlotButtons {
		blocks = append(blocks, Block{
			Type: "context",
			Elements: []*Text{
				markdownText(fmt.Sprintf("他にも %d 件の候補があります。", len(result.Slots)-maxSlotButtons)),
			},
		})
	}

	return blocks
}

// RescheduleBlocks renders reschedule candidates for an existing event.
func RescheduleBlocks(result tools.Result) []Block {
	blocks := []Block{
		{
			Type: "header",
			Text: plainText(fmt.Sprintf("🔄 %s - リスケ候補", result.Summary)),
		},
		{
			Type: "section",
			Text: markdownText(fmt.Sprintf(
				"*現在の日時:* %s\n*参加者:* %s\n*所要時間:* %d分",
				formatSlotRangeWithYear(result.OriginalStart, result.OriginalEnd),
				strings.Join(result.Attendees, ", "),
				result.DurationMinutes,
			)),
		},
		{Type: "divider"},
	}

	display := result.Candidates
	if len(display) > maxRescheduleSlots {
		display = display[:maxRescheduleSlots]
	}

	for i, slot := range display {
		value := mustJSON(SlotAction{
			Action:  "confirm_reschedule",
			Start:   slot.Start,
			End:     slot.End,
			Summary: result.Summary,
			EventID: result.EventID,
		})
		blocks = append(blocks, Block{
			Type: "section",
			Text: markdownText(fmt.Sprintf("*候補 %d:* %s", i+1, formatSlotRange(slot.Start, slot.End))),
			Accessory: &Button{
				Type:     "button",
				Text:     plainText("この時間に変更"),
				ActionID: fmt.Sprintf("%s%d", ActionConfirmReschedulePrefix, i),
				Value:    value,
				Style:    "primary",
			},
		})
	}

	if result.FallbackUsed {
		blocks = append(blocks, Block{
			Type: "context",
			Elements: []*Text{
				markdownText(fmt.Sprintf("%s に空きがなかったため、翌営業日の候補を表示しています。", result.SearchedDate)),
			},
		})
	}

	return blocks
}

// CreateConfirmationBlocks asks the user to confirm an event before it is
// created on the calendar.
func CreateConfirmationBlocks(result tools.Result) []Block {
	value := mustJSON(SlotAction{
		Action:    "confirm_create",
		Start:     result.Start,
		End:       result.End,
		Attendees: result.Attendees,
		Summary:   result.Summary,
	})

	return []Block{
		{
			Type: "header",
			Text: plainText("📝 この内容で予定を作成しますか？"),
		},
		{
			Type: "section",
			Text: markdownText(fmt.Sprintf(
				"*%s*\n📅 %s\n👥 %s",
				result.Summary,
				formatSlotRangeWithYear(result.Start, result.End),
				strings.Join(result.Attendees, ", "),
			)),
			Accessory: &Button{
				Type:     "button",
				Text:     plainText("作成する"),
				ActionID: ActionConfirmCreate,
				Value:    value,
				Style:    "primary",
			},
		},
	}
}

// OAuthPromptBlocks asks the user to grant calendar access.
func OAuthPromptBlocks(authURL string) []Block {
	return []Block{
		{
			Type: "section",
			Text: markdownText("Google Calendarへのアクセス許可が必要です。下のボタンから認証してください。"),
			Accessory: &Button{
				Type:     "button",
				Text:     plainText("Google認証"),
				ActionID: ActionGoogleOAuth,
				URL:      authURL,
				Style:    "primary",
			},
		},
	}
}

// EventCreatedBlocks announces a created event.
func EventCreatedBlocks(summary, start, end string, attendees []string, htmlLink string) []Block {
	blocks := []Block{
		{
			Type: "header",
			Text: plainText("✅ イベントを作成しました"),
		},
		{
			Type: "section",
			Text: markdownText(fmt.Sprintf(
				"*%s*\n📅 %s\n👥 %s",
				summary,
				formatSlotRangeWithYear(start, end),
				strings.Join(attendees, ", "),
			)),
		},
	}

	if htmlLink != "" {
		blocks = append(blocks, Block{
			Type: "section",
			Text: markdownText(fmt.Sprintf("<%s|Google Calendarで確認>", htmlLink)),
		})
	}

	return blocks
}

// RescheduleCompletedBlocks announces a completed reschedule.
func RescheduleCompletedBlocks(summary, start, end, htmlLink string) []Block {
	body := fmt.Sprintf("*%s*\n📅 %s", summary, formatSlotRange(start, end))
	if htmlLink != "" {
		body += fmt.Sprintf("\n<%s|Google Calendarで確認>", htmlLink)
	}

	return []Block{
		{
			Type: "header",
			Text: plainText("✅ リスケジュール完了"),
		},
		{
			Type: "section",
			Text: markdownText(body),
		},
	}
}

// SlotConfirmationModal lets the user edit the event title before a slot is
// booked.
func SlotConfirmationModal(meta SlotModalMetadata) View {
	return confirmationModal(CallbackSlotModal, mustJSON(meta), meta.Summary,
		fmt.Sprintf("📅 %s\n👥 %s", formatSlotRangeWithYear(meta.Start, meta.End), strings.Join(meta.Attendees, ", ")))
}

// CreateConfirmationModal lets the user edit the event title before the
// event is created.
func CreateConfirmationModal(meta CreateModalMetadata) View {
	return confirmationModal(CallbackCreateModal, mustJSON(meta), meta.Summary,
		fmt.Sprintf("📅 %s\n👥 %s", formatSlotRangeWithYear(meta.StartTime, meta.EndTime), strings.Join(meta.Attendees, ", ")))
}

func confirmationModal(callbackID, metadata, summary, detail string) View {
	return View{
		Type:            "modal",
		CallbackID:      callbackID,
		PrivateMetadata: metadata,
		Title:           plainText("予定の確認"),
		Submit:          plainText("作成"),
		Close:           plainText("キャンセル"),
		Blocks: []Block{
			{
				Type: "section",
				Text: markdownText(detail),
			},
			{
				Type:    "input",
				BlockID: SummaryBlockID,
				Label:   plainText("予定のタイトル"),
				Element: &PlainTextInput{
					Type:         "plain_text_input",
					ActionID:     SummaryInputAction,
					InitialValue: summary,
				},
			},
		},
	}
}
