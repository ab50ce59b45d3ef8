package http

import (
	"net/http"

	"golang.org/x/time/rate"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/observability"
	"github.com/nverse/agentrelay/pkg/transport"
)

// SessionRateLimiter throttles how fast new sessions can be created
// process-wide. It is intentionally a single shared bucket rather than
// per-client: an engine invocation is expensive to start, and the adapter
// has no per-caller identity to key on unless auth is configured.
type SessionRateLimiter struct {
	limiter *rate.Limiter
}

// NewSessionRateLimiter builds a limiter allowing ratePerSecond sustained
// session creations with burst room for a short spike.
func NewSessionRateLimiter(ratePerSecond float64, burst int) *SessionRateLimiter {
	return &SessionRateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Middleware rejects requests with 429 once the bucket is exhausted.
func (l *SessionRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiter.Allow() {
			observability.SessionRateLimitRejectedTotal.Inc()
			transport.WriteAPIError(w, api.NewTooManyRequestsError("too many sessions created, slow down"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
