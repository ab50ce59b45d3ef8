// Package api defines the core protocol types for agentrelay: the AgentEvent
// sum type emitted by a session, the SSE wire codec, client-side state types,
// and structured API errors.
//
// The package has zero external dependencies beyond the standard library and
// performs no I/O. All types produce JSON compatible with the wire format
// documented for the HTTP surface.
//
// Core types:
//   - [AgentEvent]: tagged union of everything a session can emit
//   - [AgentState]: reduced client-side view of a session
//   - [APIError]: structured error with type, code, param, and message
package api
