// Package session wires the Push Channel, Stream Translator, and Permission
// Gate together around one engine invocation, and tracks every running
// session for a server process.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/debug"
	"github.com/nverse/agentrelay/pkg/engine"
	"github.com/nverse/agentrelay/pkg/observability"
	"github.com/nverse/agentrelay/pkg/permission"
	"github.com/nverse/agentrelay/pkg/stream"
	"github.com/nverse/agentrelay/pkg/translate"
)

// Session owns one engine invocation and the translated event stream it
// produces. All exported methods are safe for concurrent use.
type Session struct {
	id string

	input  *stream.Channel[api.EngineUserMessage]
	output *stream.Channel[api.AgentEvent]
	gate   *permission.Gate

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	invocation   engine.Invocation
	aborted      bool
	lastActivity time.Time
}

// newSession starts the driver loop and the engine invocation for id.
func newSession(ctx context.Context, id string, query engine.QueryFn, initialPrompt string) (*Session, error) {
	sessCtx, cancel := context.WithCancel(ctx)

	s := &Session{
		id:           id,
		input:        stream.New[api.EngineUserMessage](),
		output:       stream.New[api.AgentEvent](),
		ctx:          sessCtx,
		cancel:       cancel,
		lastActivity: time.Now(),
	}
	s.gate = permission.New(s.output.Push)

	inv, err := query(sessCtx, engine.SessionConfig{
		Prompt:            s.input,
		PermissionHandler: s.gate.Request,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("starting engine invocation for session %q: %w", id, err)
	}
	s.invocation = inv

	s.input.Push(api.NewEngineUserMessage(initialPrompt))

	debug.Log("session", "session started", "session_id", id)
	go s.drive()

	return s, nil
}

// drive translates every message the engine invocation produces into
// AgentEvents and pushes them onto the output channel, until the invocation
// closes its Messages channel (completion, abort, or failure).
func (s *Session) drive() {
	defer func() {
		debug.Log("session", "driver exited", "session_id", s.id)
		s.output.Close()
	}()

	t := translate.New()
	for {
		msg, ok := s.invocation.Messages().Next()
		if !ok {
			return
		}
		s.touch()
		for _, ev := range t.Translate(msg) {
			debug.Trace("session", "emitting event", "session_id", s.id, "type", ev.Type)
			observability.TranslatorEventsTotal.WithLabelValues(string(ev.Type)).Inc()
			s.output.Push(toAgentEvent(ev))
		}
	}
}

// touch records activity, resetting the session's idle clock.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleFor returns how long the session has gone without engine or client
// activity. Used by the idle-session reaper.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// toAgentEvent converts a translate.Event to the wire AgentEvent. SessionID
// is carried through as-is: only session_init populates it, and it names the
// engine's own internal conversation id (spec.md §8's example uses "int-1"),
// not this Session's manager-assigned id — the two identify different
// things and a client already knows which Session it is subscribed to from
// the URL it opened.
func toAgentEvent(ev translate.Event) api.AgentEvent {
	return api.AgentEvent{
		Type:            api.EventType(ev.Type),
		SessionID:       ev.SessionID,
		Role:            ev.Role,
		ParentToolUseID: ev.ParentToolUseID,
		Text:            ev.Text,
		ToolCallID:      ev.ToolCallID,
		ToolName:        ev.ToolName,
		Input:           ev.Input,
		Result:          ev.Result,
		IsError:         ev.IsError,
		Message:         ev.Message,
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Events returns the channel of translated events a client subscribes to.
func (s *Session) Events() *stream.Channel[api.AgentEvent] { return s.output }

// PushMessage enqueues a new user turn for the engine to consume.
func (s *Session) PushMessage(text string) {
	s.touch()
	s.input.Push(api.NewEngineUserMessage(text))
}

// ResolvePermission resolves a pending permission_request by id.
func (s *Session) ResolvePermission(id string, behavior api.PermissionBehavior, updatedInput map[string]any) error {
	s.touch()
	if err := s.gate.Resolve(id, behavior, updatedInput); err != nil {
		return err
	}
	observability.PermissionRequestsTotal.WithLabelValues(string(behavior)).Inc()
	return nil
}

// AnswerQuestion resolves a pending user_question by id.
func (s *Session) AnswerQuestion(id, answer string) error {
	s.touch()
	return s.gate.AnswerQuestion(id, answer)
}

// Abort tears down the engine invocation and closes both channels. It is
// safe to call more than once.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return
	}
	s.aborted = true
	debug.Log("session", "session aborted", "session_id", s.id)
	s.invocation.Abort()
	s.cancel()
	s.input.Close()
}

// IsRunning reports whether the session has not yet been aborted. It does
// not distinguish "still producing" from "finished but not yet reaped" —
// callers wanting that distinction should watch Events() for closure.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.aborted
}

// Manager tracks every live session for a server process, keyed by
// UUID-generated session id. Grounded on antwort's InFlightRegistry: a
// mutex-protected map with register/get/remove, generalized here to own the
// full session lifecycle rather than just a cancel function.
type Manager struct {
	query engine.QueryFn

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager that starts every session with query.
func NewManager(query engine.QueryFn) *Manager {
	return &Manager{query: query, sessions: make(map[string]*Session)}
}

// Create starts a new session with the given initial user message and
// registers it under a freshly generated id.
func (m *Manager) Create(ctx context.Context, initialPrompt string) (*Session, error) {
	id := uuid.NewString()
	s, err := newSession(ctx, id, m.query, initialPrompt)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	observability.SessionsCreatedTotal.Inc()
	observability.SessionsActive.Set(float64(m.Count()))

	return s, nil
}

// Get returns the session for id, if it exists.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns every tracked session, in no particular order.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Delete aborts and unregisters the session for id. It is a no-op if id is
// not tracked.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Abort()
		observability.SessionsActive.Set(float64(m.Count()))
	}
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
