package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nverse/agentrelay/pkg/api"
)

func TestSSEWriterWritesDataFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newSSEWriter(rec)

	if err := sw.WriteEvent(api.AgentEvent{Type: api.EventTextDelta, Text: "hi"}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "data: ") || !strings.HasSuffix(body, "\n\n") {
		t.Fatalf("body = %q, want SSE data frame", body)
	}
	if !strings.Contains(body, `"text_delta"`) {
		t.Fatalf("body = %q, want encoded event type", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestSSEWriterCloseSendsDone(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newSSEWriter(rec)

	if err := sw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "data: [DONE]\n\n") {
		t.Fatalf("body = %q, want [DONE] frame", rec.Body.String())
	}
}

func TestSSEWriterWriteAfterCloseErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newSSEWriter(rec)
	sw.Close()

	if err := sw.WriteEvent(api.AgentEvent{Type: api.EventTextDelta}); err == nil {
		t.Fatal("expected error writing after close")
	}
}
