package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType is the discriminator carried by every AgentEvent.
type EventType string

const (
	EventSessionInit          EventType = "session_init"
	EventMessageStart         EventType = "message_start"
	EventTextDelta            EventType = "text_delta"
	EventThinkingDelta        EventType = "thinking_delta"
	EventToolStart            EventType = "tool_start"
	EventToolInputDelta       EventType = "tool_input_delta"
	EventToolCall             EventType = "tool_call"
	EventToolResult           EventType = "tool_result"
	EventPermissionRequest    EventType = "permission_request"
	EventPermissionResolved   EventType = "permission_resolved"
	EventUserQuestion         EventType = "user_question"
	EventUserQuestionAnswered EventType = "user_question_answered"
	EventResult               EventType = "result"
	EventError                EventType = "error"
)

// QuestionOption is one choice offered alongside a user_question event.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// PermissionBehavior is the resolution outcome of a permission_request.
type PermissionBehavior string

const (
	BehaviorAllow PermissionBehavior = "allow"
	BehaviorDeny  PermissionBehavior = "deny"
)

// AgentEvent is the tagged union of every event a session emits onto its
// output channel and that a client decodes off the SSE stream. Fields are
// grouped by the variant that populates them; only the fields relevant to
// Type are populated on any given value.
type AgentEvent struct {
	Type EventType `json:"type"`

	// session_init
	SessionID string `json:"sessionId,omitempty"`

	// message_start
	Role            string `json:"role,omitempty"`
	ParentToolUseID string `json:"parentToolUseId,omitempty"`

	// text_delta, thinking_delta
	Text string `json:"text,omitempty"`

	// tool_start, tool_input_delta, tool_call, tool_result
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	Result     any            `json:"result,omitempty"`
	IsError    bool           `json:"isError,omitempty"`

	// permission_request, permission_resolved, user_question, user_question_answered
	ID        string             `json:"id,omitempty"`
	ToolUseID string             `json:"toolUseId,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Behavior  PermissionBehavior `json:"behavior,omitempty"`
	Question  string             `json:"question,omitempty"`
	Options   []QuestionOption   `json:"options,omitempty"`
	Answer    string             `json:"answer,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// doneLiteral is the sentinel payload terminating every SSE stream.
const doneLiteral = "[DONE]"

// EncodeEvent renders an event as a single SSE frame: "data: <json>\n\n".
func EncodeEvent(e AgentEvent) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encoding event: %w", err)
	}
	return "data: " + string(b) + "\n\n", nil
}

// EncodeDone renders the terminal SSE frame.
func EncodeDone() string {
	return "data: " + doneLiteral + "\n\n"
}

// DecodeEvent parses one SSE data line (without the trailing blank line) back
// into an AgentEvent. A line whose payload is the literal "[DONE]" decodes to
// ok=false with no error, signalling end of stream.
func DecodeEvent(line string) (event AgentEvent, ok bool, err error) {
	line = strings.TrimRight(line, "\r\n")
	const prefix = "data: "
	if !strings.HasPrefix(line, prefix) {
		return AgentEvent{}, false, fmt.Errorf("decoding event: missing %q prefix", prefix)
	}
	payload := strings.TrimPrefix(line, prefix)
	if payload == doneLiteral {
		return AgentEvent{}, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return AgentEvent{}, false, fmt.Errorf("decoding event: %w", err)
	}
	return event, true, nil
}
