// Package transport holds the HTTP-adjacent concerns shared by agentrelay's
// router: request-scoped context keys, an http.Handler middleware chain
// (panic recovery, request ID propagation, structured logging), and helpers
// for writing pkg/api error types as HTTP responses.
//
// Unlike antwort's transport layer, agentrelay has no single ResponseCreator
// operation to wrap — the router exposes several session endpoints — so
// middleware here wraps http.Handler directly rather than a domain-specific
// handler interface. The individual middlewares (Recovery, RequestID,
// Logging) keep antwort's behavior and ordering, just retargeted to the
// plain net/http contract.
package transport
