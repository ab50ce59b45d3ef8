package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubValidator struct {
	identity *Identity
	err      error
}

func (s *stubValidator) Validate(token string) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func TestMiddlewareNilValidatorPassesThrough(t *testing.T) {
	called := false
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("expected handler to be called when validator is nil")
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler := Middleware(&stubValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/sessions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	handler := Middleware(&stubValidator{err: ErrInvalidToken})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/sessions", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	want := &Identity{Subject: "user-1"}
	var got *Identity
	handler := Middleware(&stubValidator{identity: want})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/sessions", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got != want {
		t.Errorf("identity in context = %+v, want %+v", got, want)
	}
}

func TestBypass(t *testing.T) {
	if !Bypass("/healthz") {
		t.Error("expected /healthz to bypass auth")
	}
	if !Bypass("/metrics") {
		t.Error("expected /metrics to bypass auth")
	}
	if Bypass("/sessions") {
		t.Error("expected /sessions to require auth")
	}
}
