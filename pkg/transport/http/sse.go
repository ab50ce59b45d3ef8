package http

import (
	"errors"
	"net/http"
	"sync"

	"github.com/nverse/agentrelay/pkg/api"
)

// sseWriter streams AgentEvents as the spec's SSE frames: "data: {json}\n\n"
// per event, "data: [DONE]\n\n" on close. Unlike antwort's sseResponseWriter
// it carries no "event:" line and no response-lifecycle state machine — one
// session maps to one stream and the only terminal condition is the
// session's output channel closing.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu     sync.Mutex
	closed bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

// WriteEvent sends one event frame and flushes it immediately.
func (s *sseWriter) WriteEvent(event api.AgentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("sse: write after close")
	}

	frame, err := api.EncodeEvent(event)
	if err != nil {
		return err
	}
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return err
	}
	return s.rc.Flush()
}

// Close sends the terminal [DONE] frame.
func (s *sseWriter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if _, err := s.w.Write([]byte(api.EncodeDone())); err != nil {
		return err
	}
	return s.rc.Flush()
}
