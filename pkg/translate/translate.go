// Package translate implements the stateful reducer that folds an engine's
// heterogeneous, partially-buffered message stream into the linear,
// non-redundant AgentEvent stream a Session pushes onto its output channel.
//
// Engine messages arrive as opaque key-value maps (see spec.md §9's note on
// dynamic/heterogeneous messages): every shape below is walked defensively,
// the way antwort/pkg/engine's provider event mapping does — a missing or
// mistyped field silently produces no event rather than a panic.
package translate

import (
	"encoding/json"

	"github.com/nverse/agentrelay/pkg/debug"
)

// Message is one opaque, engine-shaped message keyed by a "type"
// discriminator.
type Message = map[string]any

// Translator is a stateful, single-threaded per-session reducer. It must
// only ever be driven from one goroutine (the session's driver loop); it
// holds no internal lock.
type Translator struct {
	toolNames         map[string]string // toolCallId -> toolName, insertion order via toolOrder
	toolOrder         []string
	hadStreamThinking bool
}

// New returns an empty Translator for the start of a session.
func New() *Translator {
	return &Translator{toolNames: make(map[string]string)}
}

// Event mirrors api.AgentEvent's shape without importing pkg/api, keeping
// this package importable by anything that wants to translate engine
// messages without also pulling in the full protocol package. Session
// converts Event values to api.AgentEvent immediately, so the two types stay
// structurally identical.
type Event struct {
	Type            string
	SessionID       string
	Role            string
	ParentToolUseID string
	Text            string
	ToolCallID      string
	ToolName        string
	Input           map[string]any
	Result          any
	IsError         bool
	Message         string
}

func (t *Translator) recordTool(id, name string) {
	if _, exists := t.toolNames[id]; !exists {
		t.toolOrder = append(t.toolOrder, id)
	}
	t.toolNames[id] = name
}

func (t *Translator) lastToolID() (string, bool) {
	if len(t.toolOrder) == 0 {
		return "", false
	}
	return t.toolOrder[len(t.toolOrder)-1], true
}

// Translate folds one engine message into zero or more Events, per spec.md
// §4.3's translation table.
func (t *Translator) Translate(msg Message) []Event {
	var events []Event
	switch str(msg, "type") {
	case "stream_event":
		events = t.translateStreamEvent(asMap(msg["event"]))
	case "assistant":
		events = t.translateAssistant(asMap(msg["message"]))
	case "user":
		events = t.translateUser(asMap(msg["message"]))
	case "system":
		events = t.translateSystem(msg)
	case "result":
		events = t.translateResult(msg)
	}
	debug.Trace("translate", "folded engine message", "engine_type", str(msg, "type"), "events", len(events))
	return events
}

func (t *Translator) translateStreamEvent(event Message) []Event {
	if event == nil {
		return nil
	}
	switch str(event, "type") {
	case "message_start":
		t.hadStreamThinking = false
		return []Event{{Type: "message_start", Role: "assistant"}}
	case "content_block_start":
		block := asMap(event["content_block"])
		kind := str(block, "type")
		if kind != "tool_use" && kind != "server_tool_use" {
			return nil
		}
		id, name := str(block, "id"), str(block, "name")
		t.recordTool(id, name)
		return []Event{{Type: "tool_start", ToolCallID: id, ToolName: name}}
	case "content_block_delta":
		return t.translateContentBlockDelta(asMap(event["delta"]))
	default:
		return nil
	}
}

func (t *Translator) translateContentBlockDelta(delta Message) []Event {
	if delta == nil {
		return nil
	}
	switch str(delta, "type") {
	case "text_delta":
		return []Event{{Type: "text_delta", Text: str(delta, "text")}}
	case "thinking_delta":
		t.hadStreamThinking = true
		return []Event{{Type: "thinking_delta", Text: str(delta, "thinking")}}
	case "input_json_delta":
		id, ok := t.lastToolID()
		if !ok {
			return nil
		}
		return []Event{{Type: "tool_input_delta", ToolCallID: id, Text: str(delta, "partial_json")}}
	default:
		return nil
	}
}

func (t *Translator) translateAssistant(message Message) []Event {
	if message == nil {
		return nil
	}
	var out []Event
	for _, raw := range asSlice(message["content"]) {
		block := asMap(raw)
		switch str(block, "type") {
		case "thinking":
			if !t.hadStreamThinking {
				out = append(out, Event{Type: "thinking_delta", Text: str(block, "thinking")})
			}
		case "tool_use", "server_tool_use":
			id, name := str(block, "id"), str(block, "name")
			t.recordTool(id, name)
			input := asMap(block["input"])
			if input == nil {
				input = map[string]any{}
			}
			out = append(out, Event{Type: "tool_call", ToolCallID: id, ToolName: name, Input: input})
		}
	}
	return out
}

func (t *Translator) translateUser(message Message) []Event {
	if message == nil {
		return nil
	}
	var out []Event
	for _, raw := range asSlice(message["content"]) {
		block := asMap(raw)
		if str(block, "type") != "tool_result" {
			continue
		}
		out = append(out, Event{
			Type:       "tool_result",
			ToolCallID: str(block, "tool_use_id"),
			Result:     extractToolResultText(block["content"]),
			IsError:    boolVal(block["is_error"]),
		})
	}
	return out
}

func (t *Translator) translateSystem(msg Message) []Event {
	if str(msg, "subtype") != "init" {
		return nil
	}
	sessionID := str(msg, "session_id")
	if sessionID == "" {
		return nil
	}
	return []Event{{Type: "session_init", SessionID: sessionID}}
}

func (t *Translator) translateResult(msg Message) []Event {
	if str(msg, "subtype") == "success" {
		return []Event{{Type: "result", Result: msg["result"]}}
	}
	subtype := str(msg, "subtype")
	if subtype == "" {
		subtype = "unknown_error"
	}
	return []Event{{Type: "error", Message: subtype}}
}

// extractToolResultText implements spec.md §4.3's extractor: a string passes
// through, an array concatenates its text-typed sub-blocks' text fields,
// anything else JSON-serializes, and failing that yields the empty string.
func extractToolResultText(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var text string
		for _, raw := range v {
			block := asMap(raw)
			if str(block, "type") == "text" {
				text += str(block, "text")
			}
		}
		if text != "" {
			return text
		}
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return ""
	case nil:
		return ""
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return ""
	}
}

func str(m Message, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func boolVal(v any) bool {
	b, _ := v.(bool)
	return b
}

func asMap(v any) Message {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}
