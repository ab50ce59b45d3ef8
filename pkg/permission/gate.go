// Package permission implements the bidirectional RPC bridge that turns an
// engine's synchronous tool-approval callback into an asynchronous
// permission_request/permission_resolved event pair, and the analogous
// question/answer round trip.
package permission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/debug"
	"github.com/nverse/agentrelay/pkg/observability"
)

// Emitter is called with every event the gate produces. A Session wires this
// to push onto its output channel.
type Emitter func(api.AgentEvent)

type pendingPermission struct {
	result      chan api.PermissionResult
	input       map[string]any
	requestedAt time.Time
}

type pendingQuestion struct {
	answer chan string
}

// Gate holds the registries of pending permission requests and questions for
// one session. All exported methods are safe for concurrent use: the
// requesting side runs on the engine's own goroutine while resolve/answer
// run on HTTP handler goroutines.
type Gate struct {
	emit Emitter
	ids  api.PendingIDGenerator

	mu          sync.Mutex
	permissions map[string]*pendingPermission
	questions   map[string]*pendingQuestion
}

// New returns a Gate that emits via emit.
func New(emit Emitter) *Gate {
	return &Gate{
		emit:        emit,
		permissions: make(map[string]*pendingPermission),
		questions:   make(map[string]*pendingQuestion),
	}
}

// RequestContext carries the optional fields the engine attaches to a tool
// approval request.
type RequestContext struct {
	ToolUseID string
	Reason    string
}

// Request registers a pending permission, emits permission_request, and
// blocks the calling engine goroutine until Resolve is called, returning
// the result, or until ctx is cancelled (session abort), returning ctx's
// error.
func (g *Gate) Request(ctx context.Context, toolName string, input map[string]any, rc RequestContext) (api.PermissionResult, error) {
	id := g.ids.NextPermissionID()
	pending := &pendingPermission{result: make(chan api.PermissionResult, 1), input: input, requestedAt: time.Now()}

	g.mu.Lock()
	g.permissions[id] = pending
	g.mu.Unlock()

	debug.Log("permission", "permission requested", "id", id, "tool", toolName)
	g.emit(api.AgentEvent{
		Type:      api.EventPermissionRequest,
		ID:        id,
		ToolName:  toolName,
		Input:     input,
		ToolUseID: rc.ToolUseID,
		Reason:    rc.Reason,
	})

	select {
	case result := <-pending.result:
		return result, nil
	case <-ctx.Done():
		g.mu.Lock()
		delete(g.permissions, id)
		g.mu.Unlock()
		return api.PermissionResult{}, ctx.Err()
	}
}

// Resolve completes a pending permission request. updatedInput, when nil,
// defaults to the original input the request carried.
func (g *Gate) Resolve(id string, behavior api.PermissionBehavior, updatedInput map[string]any) error {
	g.mu.Lock()
	pending, ok := g.permissions[id]
	if ok {
		delete(g.permissions, id)
	}
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending permission request with id %q", id)
	}

	observability.PermissionLatency.Observe(time.Since(pending.requestedAt).Seconds())
	debug.Log("permission", "permission resolved", "id", id, "behavior", behavior)
	g.emit(api.AgentEvent{Type: api.EventPermissionResolved, ID: id, Behavior: behavior})

	var result api.PermissionResult
	switch behavior {
	case api.BehaviorAllow:
		if updatedInput == nil {
			updatedInput = pending.input
		}
		result = api.AllowResult(updatedInput)
	default:
		result = api.DenyResult()
	}
	pending.result <- result
	return nil
}

// AskQuestion registers a pending question, emits user_question, and blocks
// until AnswerQuestion is called, returning the answer, or until ctx is
// cancelled, returning ctx's error.
func (g *Gate) AskQuestion(ctx context.Context, question string, options []api.QuestionOption) (string, error) {
	id := g.ids.NextQuestionID()
	pending := &pendingQuestion{answer: make(chan string, 1)}

	g.mu.Lock()
	g.questions[id] = pending
	g.mu.Unlock()

	g.emit(api.AgentEvent{Type: api.EventUserQuestion, ID: id, Question: question, Options: options})

	select {
	case answer := <-pending.answer:
		return answer, nil
	case <-ctx.Done():
		g.mu.Lock()
		delete(g.questions, id)
		g.mu.Unlock()
		return "", ctx.Err()
	}
}

// AnswerQuestion completes a pending question.
func (g *Gate) AnswerQuestion(id, answer string) error {
	g.mu.Lock()
	pending, ok := g.questions[id]
	if ok {
		delete(g.questions, id)
	}
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending question with id %q", id)
	}

	g.emit(api.AgentEvent{Type: api.EventUserQuestionAnswered, ID: id, Answer: answer})
	pending.answer <- answer
	return nil
}
