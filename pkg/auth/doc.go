// Package auth provides optional bearer-JWT authentication for the router's
// HTTP surface.
//
// Authentication is a single pluggable Validator wrapped as HTTP middleware,
// keeping it decoupled from session and engine logic. When no validator is
// configured (auth.type: none), the middleware is a no-op and every caller
// is treated as anonymous.
package auth
