package tools

import "github.com/kaigibot/kaigibot/internal/llm"

// Tool names.
const (
	ToolSearchFreeSlots   = "search_free_slots"
	ToolCreateEvent       = "create_event"
	ToolRescheduleEvent   = "reschedule_event"
	ToolSuggestReschedule = "suggest_reschedule"
)

// Definitions returns the scheduling tool schemas offered to the model.
// Descriptions are in Japanese to match the conversation language; they
// steer the model toward the right tool for common request phrasings.
func Definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name: ToolSearchFreeSlots,
			Description: "指定された参加者のGoogle Calendarを確認します。" +
				"予定の確認、空き時間の検索、スケジュールの確認に使用してください。" +
				"「今日の予定を教えて」「空き時間を探して」などのリクエストに対して、" +
				"このツールを必ず呼び出してください。",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"attendees": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "参加者のメールアドレスのリスト（例: ['tanaka@example.com', 'sato@example.com']）",
					},
					"date": map[string]any{
						"type":        "string",
						"description": "検索対象の日付（例: '2024-01-15', '明日', '今日'）。省略時は今日の日付が使用されます。",
					},
					"time_min": map[string]any{
						"type":        "string",
						"description": "検索開始時刻（例: '09:00'）。省略時は営業時間開始（9:00）",
					},
					"time_max": map[string]any{
						"type":        "string",
						"description": "検索終了時刻（例: '18:00'）。省略時は営業時間終了（20:00）",
					},
					"duration_minutes": map[string]any{
						"type":        "integer",
						"description": "ミーティングの所要時間（分）。デフォルト60分",
						"default":     60,
					},
					"summary": map[string]any{
						"type":        "string",
						"description": "予定のタイトル（件名）。省略時は「ミーティング」",
						"default":     "ミーティング",
					},
				},
				"required": []string{"attendees"},
			},
		},
		{
			Name: ToolCreateEvent,
			Description: "Google Calendarにミーティングイベントを作成します。" +
				"参加者全員に招待メールが送信されます。",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary": map[string]any{
						"type":        "string",
						"description": "イベントのタイトル（例: '定例MTG'）",
					},
					"start_time": map[string]any{
						"type":        "string",
						"description": "開始日時（ISO 8601形式: '2024-01-15T14:00:00+09:00'）",
					},
					"end_time": map[string]any{
						"type":        "string",
						"description": "終了日時（ISO 8601形式: '2024-01-15T14:30:00+09:00'）",
					},
					"attendees": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "参加者のメールアドレスのリスト",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "イベントの説明（省略可）",
						"default":     "",
					},
				},
				"required": []string{"summary", "start_time", "end_time", "attendees"},
			},
		},
		{
			Name: ToolRescheduleEvent,
			Description: "既存のカレンダーイベントを別の時間にリスケジュールします。" +
				"参加者全員に変更通知が送信されます。",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"event_id": map[string]any{
						"type":        "string",
						"description": "リスケ対象のイベントID",
					},
					"new_start_time": map[string]any{
						"type":        "string",
						"description": "新しい開始日時（ISO 8601形式）",
					},
					"new_end_time": map[string]any{
						"type":        "string",
						"description": "新しい終了日時（ISO 8601形式）",
					},
				},
				"required": []string{"event_id", "new_start_time", "new_end_time"},
			},
		},
		{
			Name: ToolSuggestReschedule,
			Description: "既存のイベントの参加者を自動取得し、空き時間候補を最大3つ提案します。" +
				"「このMTGをリスケして」「時間を変更して」などのリクエストに使用してください。" +
				"具体的な新しい時間が指定されていない場合はこのツールを使ってください。" +
				"event_titleでイベントを検索できます。event_idが分かっている場合はevent_idを使用してください。",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"event_id": map[string]any{
						"type":        "string",
						"description": "リスケ対象のイベントID（event_titleと排他。IDが分かっている場合のみ使用）",
					},
					"event_title": map[string]any{
						"type":        "string",
						"description": "リスケ対象のイベントタイトル（部分一致で検索。例: '定例会議'）",
					},
					"date": map[string]any{
						"type":        "string",
						"description": "リスケ候補を検索する日付（例: '2024-01-15', '明日', '今日'）。省略時は元のイベントと同じ日。",
					},
					"duration_minutes": map[string]any{
						"type":        "integer",
						"description": "ミーティングの所要時間（分）。省略時は元のイベントの長さを使用。",
					},
				},
				"required": []string{},
			},
		},
	}
}
