package clientruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nverse/agentrelay/pkg/api"
)

// fakeServer serves a fixed scripted event stream for one session so the
// runtime's create/stream/respond wiring can be exercised without a real
// agentrelay server.
func fakeServer(t *testing.T, events []api.AgentEvent) *httptest.Server {
	t.Helper()
	var respondCalls []api.RespondRequest

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.CreateSessionResponse{SessionID: "sess-1"})
	})
	mux.HandleFunc("POST /sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.OKResponse{OK: true})
	})
	mux.HandleFunc("POST /sessions/{id}/respond", func(w http.ResponseWriter, r *http.Request) {
		var req api.RespondRequest
		json.NewDecoder(r.Body).Decode(&req)
		respondCalls = append(respondCalls, req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(api.OKResponse{OK: true})
	})
	mux.HandleFunc("GET /sessions/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, e := range events {
			frame, err := api.EncodeEvent(e)
			if err != nil {
				t.Fatalf("EncodeEvent: %v", err)
			}
			fmt.Fprint(w, frame)
			flusher.Flush()
		}
		fmt.Fprint(w, api.EncodeDone())
		flusher.Flush()
	})

	return httptest.NewServer(mux)
}

func waitForSnapshot(t *testing.T, rt *Runtime, ready func(*api.AgentState) bool) *api.AgentState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := rt.GetSnapshot()
		if ready(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for expected snapshot")
	return nil
}

func TestSendMessageCreatesSessionAndStreamsEvents(t *testing.T) {
	server := fakeServer(t, []api.AgentEvent{
		{Type: api.EventSessionInit, SessionID: "int-1"},
		{Type: api.EventMessageStart, Role: "assistant"},
		{Type: api.EventTextDelta, Text: "Hello "},
		{Type: api.EventTextDelta, Text: "world!"},
		{Type: api.EventResult, Result: "ok"},
	})
	defer server.Close()

	rt := New(server.URL, server.Client())
	defer rt.Destroy()

	if err := rt.SendMessage(context.Background(), "hi"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if rt.SessionID() != "sess-1" {
		t.Fatalf("SessionID = %q, want sess-1", rt.SessionID())
	}

	snap := waitForSnapshot(t, rt, func(s *api.AgentState) bool {
		return !s.IsRunning && len(s.Messages) == 1
	})
	if snap.Messages[0].CurrentText != "Hello world!" {
		t.Fatalf("CurrentText = %q", snap.Messages[0].CurrentText)
	}
}

func TestGetSnapshotIsReferentiallyStableUntilChange(t *testing.T) {
	server := fakeServer(t, []api.AgentEvent{
		{Type: api.EventSessionInit, SessionID: "int-1"},
		{Type: api.EventResult, Result: "ok"},
	})
	defer server.Close()

	rt := New(server.URL, server.Client())
	defer rt.Destroy()

	rt.SendMessage(context.Background(), "hi")
	waitForSnapshot(t, rt, func(s *api.AgentState) bool { return !s.IsRunning })

	a := rt.GetSnapshot()
	b := rt.GetSnapshot()
	if a != b {
		t.Fatal("GetSnapshot returned different pointers with no intervening change")
	}
}

func TestSubscribeNotifiesOnEveryChangeAndUnsubscribeStopsIt(t *testing.T) {
	server := fakeServer(t, []api.AgentEvent{
		{Type: api.EventSessionInit, SessionID: "int-1"},
		{Type: api.EventMessageStart, Role: "assistant"},
		{Type: api.EventTextDelta, Text: "hi"},
		{Type: api.EventResult, Result: "ok"},
	})
	defer server.Close()

	rt := New(server.URL, server.Client())
	defer rt.Destroy()

	notifications := make(chan *api.AgentState, 16)
	unsubscribe := rt.Subscribe(func(s *api.AgentState) {
		notifications <- s
	})

	rt.SendMessage(context.Background(), "hi")

	deadline := time.After(2 * time.Second)
	received := 0
	for received < 4 { // one notification per streamed event
		select {
		case <-notifications:
			received++
		case <-deadline:
			t.Fatal("timed out waiting for subscriber notification")
		}
	}
	unsubscribe()

	waitForSnapshot(t, rt, func(s *api.AgentState) bool { return !s.IsRunning })

	// A further state change must not reach the unsubscribed listener;
	// applyEvent calls listeners synchronously, so none can arrive later.
	rt.applyEvent(api.AgentEvent{Type: api.EventTextDelta, Text: " more"})
	select {
	case <-notifications:
		t.Fatal("listener notified after unsubscribe")
	default:
	}
}

func TestRespondToPermissionPostsToRespondEndpoint(t *testing.T) {
	server := fakeServer(t, []api.AgentEvent{
		{Type: api.EventSessionInit, SessionID: "int-1"},
		{Type: api.EventResult, Result: "ok"},
	})
	defer server.Close()

	rt := New(server.URL, server.Client())
	defer rt.Destroy()

	rt.SendMessage(context.Background(), "hi")
	waitForSnapshot(t, rt, func(s *api.AgentState) bool { return !s.IsRunning })

	if err := rt.RespondToPermission(context.Background(), "perm_1", api.BehaviorAllow, nil); err != nil {
		t.Fatalf("RespondToPermission: %v", err)
	}
}

func TestIsConnectedReflectsStreamLifecycle(t *testing.T) {
	server := fakeServer(t, []api.AgentEvent{
		{Type: api.EventSessionInit, SessionID: "int-1"},
		{Type: api.EventResult, Result: "ok"},
	})
	defer server.Close()

	rt := New(server.URL, server.Client())
	if rt.IsConnected() {
		t.Fatal("IsConnected should be false before SendMessage")
	}

	rt.SendMessage(context.Background(), "hi")
	waitForSnapshot(t, rt, func(s *api.AgentState) bool { return !s.IsRunning })

	deadline := time.Now().Add(2 * time.Second)
	for rt.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rt.IsConnected() {
		t.Fatal("IsConnected should be false once the stream reaches [DONE]")
	}
}

func TestRespondWithoutSessionErrors(t *testing.T) {
	rt := New("http://unused.invalid", http.DefaultClient)
	if err := rt.RespondToQuestion(context.Background(), "q1", "yes"); err == nil {
		t.Fatal("expected error responding with no active session")
	}
}

func TestDestroyStopsDeliveringFurtherNotifications(t *testing.T) {
	server := fakeServer(t, []api.AgentEvent{
		{Type: api.EventSessionInit, SessionID: "int-1"},
		{Type: api.EventResult, Result: "ok"},
	})
	defer server.Close()

	rt := New(server.URL, server.Client())
	rt.SendMessage(context.Background(), "hi")
	waitForSnapshot(t, rt, func(s *api.AgentState) bool { return !s.IsRunning })

	rt.Destroy()

	notified := false
	rt.Subscribe(func(*api.AgentState) { notified = true })
	time.Sleep(20 * time.Millisecond)
	if notified {
		t.Fatal("listener notified after Destroy")
	}
}
