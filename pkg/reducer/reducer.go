// Package reducer implements the client-side fold from api.AgentState plus
// one api.AgentEvent to the next api.AgentState, per spec.md §3's invariants
// and §4.7. It is the mirror image of pkg/translate: translate turns engine
// messages into events server-side, reducer turns events into UI state
// client-side. Both are pure, single-threaded, defensively-coded folds in
// the style of antwort's provider event mapping.
package reducer

import "github.com/nverse/agentrelay/pkg/api"

// Reduce folds one event into state, mutating and returning it. Callers that
// need the previous state preserved (e.g. for a snapshot comparison) must
// copy before calling.
func Reduce(state *api.AgentState, event api.AgentEvent) *api.AgentState {
	switch event.Type {
	case api.EventSessionInit:
		state = api.NewAgentState()
		state.SessionID = event.SessionID
		state.IsRunning = true
		return state

	case api.EventMessageStart:
		msg := &api.AgentMessage{Role: event.Role, ParentToolUseID: event.ParentToolUseID}
		state.Messages = append(state.Messages, msg)
		return state

	case api.EventTextDelta:
		if msg := state.LastMessage(); msg != nil {
			msg.CurrentText += event.Text
		}
		return state

	case api.EventThinkingDelta:
		if msg := state.LastMessage(); msg != nil {
			msg.CurrentThinking += event.Text
		}
		return state

	case api.EventToolStart:
		if msg := state.LastMessage(); msg != nil {
			msg.AddToolCall(&api.ToolCallInfo{ToolCallID: event.ToolCallID, ToolName: event.ToolName})
		}
		return state

	case api.EventToolInputDelta:
		if msg := state.LastMessage(); msg != nil {
			if tc, ok := msg.ToolCalls[event.ToolCallID]; ok {
				tc.InputText += event.Text
			}
		}
		return state

	case api.EventToolCall:
		if msg := state.LastMessage(); msg != nil {
			if tc, ok := msg.ToolCalls[event.ToolCallID]; ok {
				tc.ToolName = event.ToolName
				tc.Input = event.Input
			}
		}
		return state

	case api.EventToolResult:
		if tc := findToolCallBackToFront(state, event.ToolCallID); tc != nil {
			tc.Result = event.Result
			tc.IsError = event.IsError
		}
		return state

	case api.EventPermissionRequest:
		state.PendingPermissions[event.ID] = &api.PendingPermission{
			ID: event.ID, ToolName: event.ToolName, Input: event.Input,
			ToolUseID: event.ToolUseID, Reason: event.Reason,
		}
		return state

	case api.EventPermissionResolved:
		delete(state.PendingPermissions, event.ID)
		return state

	case api.EventUserQuestion:
		state.PendingQuestions[event.ID] = &api.PendingQuestion{
			ID: event.ID, Question: event.Question, Options: event.Options,
		}
		return state

	case api.EventUserQuestionAnswered:
		delete(state.PendingQuestions, event.ID)
		return state

	case api.EventResult:
		state.IsRunning = false
		state.Result = event.Result
		return state

	case api.EventError:
		state.IsRunning = false
		state.Error = event.Message
		return state

	default:
		return state
	}
}

// findToolCallBackToFront searches messages newest-first for a tool call
// matching id, since a subagent's tool_result can arrive on a later message
// than the one that introduced the call (spec.md §3's invariant).
func findToolCallBackToFront(state *api.AgentState, id string) *api.ToolCallInfo {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if tc, ok := state.Messages[i].ToolCalls[id]; ok {
			return tc
		}
	}
	return nil
}
