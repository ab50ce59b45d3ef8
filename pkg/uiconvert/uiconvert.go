// Package uiconvert projects an api.AgentState onto the ordered list of UI
// messages a chat surface renders, per spec.md §4.8. It is a pure function
// with no I/O, sitting downstream of pkg/reducer in the client pipeline:
// events fold into AgentState, AgentState projects into UI messages.
package uiconvert

import (
	"encoding/json"

	"github.com/nverse/agentrelay/pkg/api"
)

// PartType discriminates a UIPart.
type PartType string

const (
	PartReasoning PartType = "reasoning"
	PartText      PartType = "text"
	PartToolCall  PartType = "tool-call"
)

// UIPart is one fragment of a UI message's content, in the shape spec.md §6
// documents for the engine-independent wire format a frontend consumes.
type UIPart struct {
	Type PartType `json:"type"`

	// reasoning, text
	Text string `json:"text,omitempty"`

	// tool-call
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	ArgsText   string         `json:"argsText,omitempty"`
	Result     any            `json:"result,omitempty"`
	IsError    bool           `json:"isError,omitempty"`
}

// Status is the running/complete marker a UI uses to decide whether a
// message is still streaming.
type Status struct {
	Type string `json:"type"` // "running" | "complete"
}

// Metadata carries engine bookkeeping a UI does not render directly but may
// use to group subagent output under its parent tool call.
type Metadata struct {
	Custom CustomMetadata `json:"custom"`
}

// CustomMetadata is the nested payload of Metadata.
type CustomMetadata struct {
	ParentToolUseID string `json:"parentToolUseId,omitempty"`
}

// UIMessage is one assistant turn as a chat surface renders it.
type UIMessage struct {
	Role     string    `json:"role"`
	Content  []UIPart  `json:"content"`
	Status   Status    `json:"status"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

const (
	statusRunning  = "running"
	statusComplete = "complete"
)

// Convert projects state to the ordered list of UI messages a client
// renders, applying spec.md §4.8's per-message part assembly and empty-
// message drop rule.
func Convert(state *api.AgentState) []UIMessage {
	out := make([]UIMessage, 0, len(state.Messages))
	for _, msg := range state.Messages {
		parts := convertParts(msg)
		if len(parts) == 0 {
			continue
		}

		uiMsg := UIMessage{
			Role:    msg.Role,
			Content: parts,
			Status:  Status{Type: statusComplete},
		}
		if msg.ParentToolUseID != "" {
			uiMsg.Metadata = &Metadata{Custom: CustomMetadata{ParentToolUseID: msg.ParentToolUseID}}
		}
		out = append(out, uiMsg)
	}

	// The running marker belongs to the last surviving message, not the last
	// slice index: a message_start with no delta yet produces an empty,
	// dropped message, which must not leave every remaining message complete.
	if state.IsRunning && len(out) > 0 {
		out[len(out)-1].Status.Type = statusRunning
	}
	return out
}

// convertParts builds one message's parts: reasoning, then text, then tool
// calls in the order they were introduced.
func convertParts(msg *api.AgentMessage) []UIPart {
	var parts []UIPart

	if msg.CurrentThinking != "" {
		parts = append(parts, UIPart{Type: PartReasoning, Text: msg.CurrentThinking})
	}
	if msg.CurrentText != "" {
		parts = append(parts, UIPart{Type: PartText, Text: msg.CurrentText})
	}
	for _, tc := range msg.ToolCallsInOrder() {
		parts = append(parts, toolCallPart(tc))
	}
	return parts
}

// toolCallPart renders one tool call: argsText is the finalized input
// re-encoded as JSON once Input is populated, falling back to the raw
// streamed InputText while the call is still arriving.
func toolCallPart(tc *api.ToolCallInfo) UIPart {
	part := UIPart{
		Type:       PartToolCall,
		ToolCallID: tc.ToolCallID,
		ToolName:   tc.ToolName,
		Result:     tc.Result,
		IsError:    tc.IsError,
	}
	if tc.Input != nil {
		part.Args = tc.Input
		if encoded, err := json.Marshal(tc.Input); err == nil {
			part.ArgsText = string(encoded)
		}
	} else {
		part.ArgsText = tc.InputText
	}
	return part
}
