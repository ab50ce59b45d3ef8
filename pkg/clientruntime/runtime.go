// Package clientruntime is a Go client for agentrelay's HTTP/SSE surface: it
// owns one session's connection lifecycle, folds the event stream into
// client-side state via pkg/reducer, and exposes a snapshot/subscribe API.
// It plays the role spec.md §4.9 assigns a browser EventSource plus reducer,
// for a non-browser consumer such as a TUI or an integration test harness.
package clientruntime

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/reducer"
)

// Listener receives the latest snapshot whenever the runtime's state
// changes.
type Listener func(*api.AgentState)

// Runtime drives one chat session against an agentrelay server: it creates
// or resumes a session, streams its events, and keeps a folded AgentState
// subscribers can read without racing the stream goroutine.
type Runtime struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	sessionID string
	connected bool
	state     *api.AgentState
	snapshot  *api.AgentState
	listeners map[int]Listener
	nextID    int
	cancel    context.CancelFunc
}

// Option configures a Runtime at construction.
type Option func(*Runtime)

// WithLogger overrides the runtime's logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// New returns a Runtime with no session yet, targeting baseURL. httpClient,
// if nil, defaults to http.DefaultClient.
func New(baseURL string, httpClient *http.Client, opts ...Option) *Runtime {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	r := &Runtime{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     slog.Default(),
		state:      api.NewAgentState(),
		listeners:  make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the active session id, or "" before the first
// SendMessage.
func (r *Runtime) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// IsConnected reports whether the event stream is currently open.
func (r *Runtime) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// SendMessage sends text as a user turn. The first call on a Runtime creates
// the session and opens its event stream; later calls push onto the
// existing session.
func (r *Runtime) SendMessage(ctx context.Context, text string) error {
	r.mu.Lock()
	sessionID := r.sessionID
	r.mu.Unlock()

	if sessionID == "" {
		return r.createSession(ctx, text)
	}
	return r.pushMessage(ctx, sessionID, text)
}

// RespondToPermission resolves a pending permission_request.
func (r *Runtime) RespondToPermission(ctx context.Context, id string, behavior api.PermissionBehavior, updatedInput map[string]any) error {
	sessionID := r.SessionID()
	if sessionID == "" {
		return fmt.Errorf("clientruntime: no active session")
	}
	body := api.RespondRequest{Kind: api.RespondPermission, ID: id, Behavior: behavior, UpdatedInput: updatedInput}
	return r.post(ctx, fmt.Sprintf("/sessions/%s/respond", sessionID), body, nil)
}

// RespondToQuestion resolves a pending user_question.
func (r *Runtime) RespondToQuestion(ctx context.Context, id, answer string) error {
	sessionID := r.SessionID()
	if sessionID == "" {
		return fmt.Errorf("clientruntime: no active session")
	}
	body := api.RespondRequest{Kind: api.RespondQuestion, ID: id, Answer: answer}
	return r.post(ctx, fmt.Sprintf("/sessions/%s/respond", sessionID), body, nil)
}

// GetSnapshot returns a referentially stable view of the current state: the
// same pointer is returned across calls until the state actually changes,
// so callers may compare by identity to skip redundant re-renders.
func (r *Runtime) GetSnapshot() *api.AgentState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshot == nil {
		r.snapshot = r.state.Clone()
	}
	return r.snapshot
}

// Subscribe registers listener to be called with the latest snapshot after
// every state change, and returns a function that unregisters it.
func (r *Runtime) Subscribe(listener Listener) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = listener
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Destroy closes the event stream and clears all subscribers. The Runtime
// must not be reused afterward.
func (r *Runtime) Destroy() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.connected = false
	r.listeners = make(map[int]Listener)
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (r *Runtime) createSession(ctx context.Context, text string) error {
	var resp api.CreateSessionResponse
	if err := r.post(ctx, "/sessions", api.CreateSessionRequest{Message: text}, &resp); err != nil {
		return err
	}

	r.mu.Lock()
	r.sessionID = resp.SessionID
	r.mu.Unlock()

	r.connect(resp.SessionID)
	return nil
}

func (r *Runtime) pushMessage(ctx context.Context, sessionID, text string) error {
	return r.post(ctx, fmt.Sprintf("/sessions/%s/messages", sessionID), api.PushMessageRequest{Message: text}, nil)
}

// connect opens the SSE stream for sessionID and folds it into state on a
// background goroutine until [DONE], a transport error, or Destroy.
func (r *Runtime) connect(sessionID string) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancel = cancel
	r.connected = true
	r.mu.Unlock()

	go r.readStream(ctx, sessionID)
}

func (r *Runtime) readStream(ctx context.Context, sessionID string) {
	defer func() {
		r.mu.Lock()
		r.connected = false
		r.mu.Unlock()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/sessions/"+sessionID+"/events", nil)
	if err != nil {
		r.logger.Warn("clientruntime: building stream request failed", "error", err)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		// EventSource transport error: disconnect silently (spec.md §7).
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		event, ok, err := api.DecodeEvent(line)
		if err != nil {
			// Undecodable payload: log and drop, never propagate (spec.md §7).
			r.logger.Warn("clientruntime: dropping undecodable event", "error", err)
			continue
		}
		if !ok {
			return // [DONE]
		}

		r.applyEvent(event)
	}
	// scanner.Err() on a dropped connection is also a silent disconnect.
}

func (r *Runtime) applyEvent(event api.AgentEvent) {
	r.mu.Lock()
	r.state = reducer.Reduce(r.state, event)
	r.snapshot = nil
	listeners := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	snapshot := r.GetSnapshot()
	for _, l := range listeners {
		l(snapshot)
	}
}

// post issues a JSON POST against baseURL+path, decoding the response body
// into out when non-nil and the request succeeded.
func (r *Runtime) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("clientruntime: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("clientruntime: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("clientruntime: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("clientruntime: decoding response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == nil {
		return fmt.Errorf("clientruntime: request failed with status %d", resp.StatusCode)
	}
	return errResp.Error
}
