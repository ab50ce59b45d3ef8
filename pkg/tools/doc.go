// Package tools provides the tool call/result shapes and the allow/deny
// filter a subprocess engine uses when a tool call can't be satisfied by the
// engine itself and must be dispatched through an MCP server.
package tools
