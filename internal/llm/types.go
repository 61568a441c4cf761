package llm

import "encoding/json"

// Message roles used in conversation history. Tool results travel in user
// messages as tool_result content blocks.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stop reasons reported by the model.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonToolUse   = "tool_use"
	StopReasonMaxTokens = "max_tokens"
)

// Message is one turn of conversation history. The JSON encoding matches
// the Anthropic Messages API wire format, so stored history can be replayed
// into requests without conversion.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a single block inside a message: text, a tool_use request
// from the model, or a tool_result we send back.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// UserText builds a user message with a single text block.
func UserText(text string) Message {
	return Message{
		Role:    RoleUser,
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// AssistantText builds an assistant message with a single text block.
func AssistantText(text string) Message {
	return Message{
		Role:    RoleAssistant,
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// ToolResult builds a user message carrying one tool_result block for the
// given tool_use ID.
func ToolResult(toolUseID, content string) Message {
	return Message{
		Role: RoleUser,
		Content: []ContentBlock{{
			Type:      "tool_result",
			ToolUseID: toolUseID,
			Content:   content,
		}},
	}
}

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolUse is a tool invocation requested by the model.
type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Usage reports token counts for one model invocation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the model's reply to one invocation.
type Response struct {
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Text concatenates all text blocks in the response, newline-separated.
func (r *Response) Text() string {
	var out string
	for _, block := range r.Content {
		if block.Type != "text" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += block.Text
	}
	return out
}

// ToolUses extracts all tool_use blocks in response order.
func (r *Response) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, block := range r.Content {
		if block.Type == "tool_use" {
			uses = append(uses, ToolUse{ID: block.ID, Name: block.Name, Input: block.Input})
		}
	}
	return uses
}

// AssistantMessage converts the response content into a history message so
// the tool-use exchange can be appended to the conversation verbatim.
func (r *Response) AssistantMessage() Message {
	return Message{Role: RoleAssistant, Content: r.Content}
}
