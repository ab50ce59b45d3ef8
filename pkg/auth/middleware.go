package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware wraps an HTTP handler with bearer-token authentication. If
// validator is nil, requests pass through unauthenticated (the router's
// default when auth.type is "none").
func Middleware(validator Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, ErrMissingToken)
				return
			}

			identity, err := validator.Validate(token)
			if err != nil {
				slog.Warn("authentication failed", "path", r.URL.Path, "error", err)
				writeUnauthorized(w, err)
				return
			}

			ctx := SetIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bypassPaths lists endpoints that never require authentication.
var bypassPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

// Bypass reports whether the given request path skips authentication.
func Bypass(path string) bool {
	return bypassPaths[path]
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":{"type":"unauthorized","message":"` + err.Error() + `"}}`))
}
