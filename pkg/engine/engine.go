package engine

import (
	"context"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/permission"
	"github.com/nverse/agentrelay/pkg/stream"
	"github.com/nverse/agentrelay/pkg/translate"
)

// PermissionHandler is the callback an engine invokes, from its own
// goroutine, before executing a tool that requires approval. It blocks until
// the user resolves the request or ctx (the session's lifetime) ends. A
// *permission.Gate's Request method satisfies this signature.
type PermissionHandler func(ctx context.Context, toolName string, input map[string]any, rc permission.RequestContext) (api.PermissionResult, error)

// SessionConfig is what a Session hands to a QueryFn to start one engine
// invocation.
type SessionConfig struct {
	// Prompt is the input stream of user turns. The engine reads from it
	// until Abort is called or the Session closes it.
	Prompt *stream.Channel[api.EngineUserMessage]

	// PermissionHandler is wired to the session's Permission Gate.
	PermissionHandler PermissionHandler
}

// Invocation is one running engine conversation.
type Invocation interface {
	// Messages returns the channel of engine-shaped output messages
	// (translate.Message values). The channel closes when the engine
	// finishes, is aborted, or fails.
	Messages() *stream.Channel[translate.Message]

	// Interrupt asks the engine to stop its current turn. Both realizations
	// in this module (scripted and subprocess) implement it as Abort, so
	// the whole invocation ends and Messages() closes.
	Interrupt()

	// Abort tears down the invocation entirely; Messages() closes shortly
	// after.
	Abort()
}

// QueryFn starts a new engine invocation. It returns once the invocation has
// been established (e.g. a subprocess has been spawned); message production
// happens asynchronously on the returned Invocation.
type QueryFn func(ctx context.Context, cfg SessionConfig) (Invocation, error)
