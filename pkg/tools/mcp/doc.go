// Package mcp connects to Model Context Protocol servers and executes
// tools.Call requests against them on behalf of the subprocess engine. It is
// adapted from antwort's pkg/tools/mcp client, trimmed to static-header
// authentication only — the OAuth client-credentials flow antwort supports
// has no SPEC_FULL.md component that would exercise it (see DESIGN.md).
package mcp
