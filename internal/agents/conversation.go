// Package agents provides the model-driven decision loop that runs trading sessions.
package agents

import "encoding/json"

// Role tags a conversation message.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool"
)

// ToolCall is a single operation request produced by the model backend.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one entry of the session transcript. Role decides which
// fields carry meaning: assistant messages may hold tool calls, tool
// result messages hold the id of the call they answer plus the payload.
type Message struct {
	Role       Role
	Text       string
	ToolCalls  []ToolCall
	ToolCallID string
}

// SystemMessage builds a system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Text: text}
}

// UserMessage builds a user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage builds an assistant message with optional tool calls.
func AssistantMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

// ToolResultMessage builds the reply to a single tool call.
func ToolResultMessage(callID, payload string) Message {
	return Message{Role: RoleToolResult, Text: payload, ToolCallID: callID}
}

// ToolSpec is one advertised catalogue entry. Parameters holds a
// JSON-schema object the backend receives verbatim.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}
