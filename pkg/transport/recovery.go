package transport

import (
	"fmt"
	"net/http"

	"github.com/nverse/agentrelay/pkg/api"
)

// Recovery returns middleware that catches panics in the handler and writes
// a server error response instead of crashing the connection. The server
// continues to accept new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					WriteAPIError(w, api.NewServerError(fmt.Sprintf("internal server error: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
