// Package llm provides the model client used by the scheduling agent.
// Conversations are exchanged as Anthropic-style content blocks so tool-use
// turns round-trip through the conversation store without translation.
package llm

import "context"

// SystemPrompt steers the model toward scheduling work and Japanese
// responses. It is sent with every invocation.
const SystemPrompt = `あなたはSlack上で動作するMTGスケジュール調整アシスタントです。
ユーザーからの自然言語リクエストを理解し、以下のツールを使って対応してください。

役割:
- 参加者の空き時間を検索する
- 最適なミーティング時間を提案する
- カレンダーにイベントを作成する
- 既存のイベントをリスケジュールする

応答ルール:
- 日本語で応答すること
- 丁寧かつ簡潔に応答すること
- 複数の候補時間がある場合はリスト形式で提案すること
- 不明な情報がある場合はユーザーに確認すること
`

// Client invokes the model with conversation history and tool definitions.
type Client interface {
	Invoke(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error)
}
