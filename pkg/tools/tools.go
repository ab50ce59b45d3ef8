package tools

import "context"

// Call is a request to invoke a named tool with decoded arguments.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Result is the outcome of executing a Call.
type Result struct {
	CallID  string
	Output  string
	IsError bool
}

// Executor dispatches a Call to wherever it's actually implemented.
type Executor interface {
	// CanExecute reports whether this executor handles the named tool.
	CanExecute(name string) bool
	// Execute runs the tool and returns its result. It does not return an
	// error for a failed tool invocation — that's carried as Result.IsError;
	// the error return is reserved for infrastructure failures (the MCP
	// session dropped, context cancelled).
	Execute(ctx context.Context, call Call) (Result, error)
}

// FilterResult holds the outcome of filtering calls against an allow list.
type FilterResult struct {
	Allowed  []Call
	Rejected []Result
}

// FilterAllowed checks each call against allowedTools. An empty allow list
// permits everything — the same "absence of a list means no restriction"
// rule antwort's FilterAllowedTools uses. Filter-rejected calls never reach
// a Permission Gate at all: they're refused before the engine's tool-gate
// hook would even fire.
func FilterAllowed(calls []Call, allowedTools []string) FilterResult {
	if len(allowedTools) == 0 {
		return FilterResult{Allowed: calls}
	}
	allowed := make(map[string]bool, len(allowedTools))
	for _, name := range allowedTools {
		allowed[name] = true
	}

	var result FilterResult
	for _, call := range calls {
		if allowed[call.Name] {
			result.Allowed = append(result.Allowed, call)
		} else {
			result.Rejected = append(result.Rejected, Result{
				CallID:  call.ID,
				Output:  "tool " + call.Name + " is not in the allowed tool list",
				IsError: true,
			})
		}
	}
	return result
}
