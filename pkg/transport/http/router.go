// Package http adapts agentrelay's session layer to the wire HTTP/SSE
// surface spec.md §6 describes, following antwort's adapter/server split:
// Router builds the Go 1.22 ServeMux pattern-routed handler, Server owns the
// http.Server lifecycle (listen, graceful shutdown on SIGINT/SIGTERM).
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/auth"
	"github.com/nverse/agentrelay/pkg/session"
	"github.com/nverse/agentrelay/pkg/transport"
)

// Router serves agentrelay's session endpoints over HTTP.
type Router struct {
	sessions      *session.Manager
	mux           *http.ServeMux
	maxBodySize   int64
	authValidator auth.Validator
}

// Config holds configuration for the router.
type Config struct {
	MaxBodySize int64

	// AuthValidator, if non-nil, requires a valid bearer token on every
	// route except /healthz and /metrics.
	AuthValidator auth.Validator

	// SessionLimiter, if non-nil, throttles POST /sessions.
	SessionLimiter *SessionRateLimiter

	// Metrics, if true, registers GET /metrics serving the Prometheus
	// default registry.
	Metrics bool
}

// DefaultConfig returns sensible router defaults.
func DefaultConfig() Config {
	return Config{MaxBodySize: 1 << 20, Metrics: true} // 1 MB: session bodies are short chat turns, not file uploads
}

// NewRouter builds a Router over the given session manager.
func NewRouter(sessions *session.Manager, cfg Config) *Router {
	rt := &Router{sessions: sessions, mux: http.NewServeMux(), maxBodySize: cfg.MaxBodySize, authValidator: cfg.AuthValidator}

	createSession := http.Handler(http.HandlerFunc(rt.handleCreateSession))
	if cfg.SessionLimiter != nil {
		createSession = cfg.SessionLimiter.Middleware(createSession)
	}
	rt.mux.Handle("POST /sessions", createSession)

	rt.mux.HandleFunc("GET /sessions", rt.handleListSessions)
	rt.mux.HandleFunc("DELETE /sessions/{id}", rt.handleDeleteSession)
	rt.mux.HandleFunc("GET /sessions/{id}/events", rt.handleEvents)
	rt.mux.HandleFunc("POST /sessions/{id}/messages", rt.handlePushMessage)
	rt.mux.HandleFunc("POST /sessions/{id}/respond", rt.handleRespond)
	rt.mux.HandleFunc("GET /healthz", rt.handleHealthz)
	if cfg.Metrics {
		rt.mux.Handle("GET /metrics", promhttp.Handler())
	}

	return rt
}

// bypassAuth wraps the auth middleware so /healthz and /metrics stay
// reachable without a token regardless of auth.type.
func bypassAuth(validator auth.Validator, next http.Handler) http.Handler {
	protected := auth.Middleware(validator)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.Bypass(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	})
}

// Handler returns the http.Handler for this router, with the default
// recovery/request-id/logging middleware chain applied.
func (rt *Router) Handler(mw ...transport.Middleware) http.Handler {
	if len(mw) == 0 {
		mw = []transport.Middleware{transport.Recovery(), transport.RequestID(), transport.Logging(nil)}
	}
	var h http.Handler = rt.mux
	if rt.authValidator != nil {
		h = bypassAuth(rt.authValidator, h)
	}
	return transport.Chain(mw...)(h)
}

func (rt *Router) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			transport.WriteErrorResponse(w, api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", rt.maxBodySize)), http.StatusRequestEntityTooLarge)
			return false
		}
		transport.WriteErrorResponse(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()), http.StatusBadRequest)
		return false
	}
	return true
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	s, ok := rt.sessions.Get(id)
	if !ok {
		transport.WriteAPIError(w, api.NewNotFoundError("session "+id+" not found"))
		return nil, false
	}
	return s, true
}

// handleCreateSession handles POST /sessions.
func (rt *Router) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	if apiErr := api.ValidateCreateSession(&req); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	s, err := rt.sessions.Create(r.Context(), req.Message)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.CreateSessionResponse{SessionID: s.ID()})
}

// sessionSummary is one entry in the GET /sessions listing. It is a
// supplemented endpoint spec.md is silent on; the shape mirrors
// CreateSessionResponse plus isRunning since that is the one fact about a
// session a listing client needs to decide whether to open its event stream.
type sessionSummary struct {
	SessionID string `json:"sessionId"`
	IsRunning bool   `json:"isRunning"`
}

// handleListSessions handles GET /sessions.
func (rt *Router) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list := rt.sessions.List()
	out := make([]sessionSummary, len(list))
	for i, s := range list {
		out[i] = sessionSummary{SessionID: s.ID(), IsRunning: s.IsRunning()}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// handleDeleteSession handles DELETE /sessions/{id}: an explicit
// cancellation endpoint spec.md's Open Questions leaves as a policy choice
// for a server deployment (see DESIGN.md).
func (rt *Router) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := rt.sessions.Get(id); !ok {
		transport.WriteAPIError(w, api.NewNotFoundError("session "+id+" not found"))
		return
	}
	rt.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents handles GET /sessions/{id}/events, streaming the session's
// translated AgentEvents as SSE until the session's output channel closes or
// the client disconnects.
func (rt *Router) handleEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.getSession(w, r)
	if !ok {
		return
	}

	sw := newSSEWriter(w)
	ctx := r.Context()
	for {
		event, ok := s.Events().NextContext(ctx)
		if !ok {
			if ctx.Err() == nil {
				sw.Close()
			}
			return
		}
		if err := sw.WriteEvent(event); err != nil {
			// client disconnected; stop without aborting the session, which
			// keeps running so a client can reconnect (spec.md §9's open
			// question on disconnect policy, resolved here in favor of
			// keeping the engine alive — see DESIGN.md).
			return
		}
	}
}

// handlePushMessage handles POST /sessions/{id}/messages.
func (rt *Router) handlePushMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.getSession(w, r)
	if !ok {
		return
	}

	var req api.PushMessageRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	if apiErr := api.ValidatePushMessage(&req); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	s.PushMessage(req.Message)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.OKResponse{OK: true})
}

// handleRespond handles POST /sessions/{id}/respond.
func (rt *Router) handleRespond(w http.ResponseWriter, r *http.Request) {
	s, ok := rt.getSession(w, r)
	if !ok {
		return
	}

	var req api.RespondRequest
	if !rt.decodeJSON(w, r, &req) {
		return
	}
	if apiErr := api.ValidateRespond(&req); apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	var err error
	switch req.Kind {
	case api.RespondPermission:
		err = s.ResolvePermission(req.ID, req.Behavior, req.UpdatedInput)
	case api.RespondQuestion:
		err = s.AnswerQuestion(req.ID, req.Answer)
	}
	if err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("id", err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.OKResponse{OK: true})
}

// handleHealthz handles GET /healthz, a supplemented liveness endpoint.
func (rt *Router) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "sessions": rt.sessions.Count()})
}
