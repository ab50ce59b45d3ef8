// Package scripted provides a deterministic, in-memory engine realization
// that plays back a fixed sequence of engine messages. It is the
// in-process analogue of antwort's cmd/mock-backend fixture server: instead
// of answering predictable HTTP requests, it answers predictable
// translate.Message values, used by the session/translator/gate test suites
// and by cmd/demo.
package scripted

import (
	"context"
	"fmt"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/engine"
	"github.com/nverse/agentrelay/pkg/permission"
	"github.com/nverse/agentrelay/pkg/stream"
	"github.com/nverse/agentrelay/pkg/translate"
)

// Step is one scripted action. Exactly one of Message or Permission should
// be set; Permission steps call the session's permission handler and splice
// the message PermissionStep.OnResult builds from the decision into the
// output (as if the engine had acted on the approval itself).
type Step struct {
	// Message, when non-nil, is pushed verbatim as the next engine message.
	Message translate.Message

	// Permission, when non-nil, invokes the permission handler and blocks
	// the script until it resolves.
	Permission *PermissionStep
}

// PermissionStep describes a tool call that requires approval mid-script.
type PermissionStep struct {
	ToolName  string
	Input     map[string]any
	ToolUseID string
	Reason    string
	// OnResult builds the engine message spliced in after resolution; nil
	// splices nothing.
	OnResult func(result api.PermissionResult) translate.Message
}

// Script is an ordered sequence of Steps replayed on every invocation.
type Script []Step

// New returns an engine.QueryFn that replays script once per invocation,
// ignoring the prompt content (the scripted engine doesn't model multi-turn
// branching — it advances the same script regardless of what the user sends,
// which is enough to exercise the translator/gate/session wiring a test
// needs).
func New(script Script) engine.QueryFn {
	return func(ctx context.Context, cfg engine.SessionConfig) (engine.Invocation, error) {
		inv := &invocation{
			out:    stream.New[translate.Message](),
			cancel: make(chan struct{}),
		}
		go inv.run(ctx, script, cfg)
		return inv, nil
	}
}

type invocation struct {
	out    *stream.Channel[translate.Message]
	cancel chan struct{}
}

func (i *invocation) Messages() *stream.Channel[translate.Message] { return i.out }

func (i *invocation) Interrupt() { i.Abort() }

func (i *invocation) Abort() {
	select {
	case <-i.cancel:
	default:
		close(i.cancel)
	}
}

func (i *invocation) run(ctx context.Context, script Script, cfg engine.SessionConfig) {
	defer i.out.Close()

	for _, step := range script {
		select {
		case <-i.cancel:
			return
		case <-ctx.Done():
			return
		default:
		}

		if step.Message != nil {
			i.out.Push(step.Message)
			continue
		}
		if step.Permission != nil {
			p := step.Permission
			result, err := cfg.PermissionHandler(ctx, p.ToolName, p.Input, permission.RequestContext{
				ToolUseID: p.ToolUseID,
				Reason:    p.Reason,
			})
			if err != nil {
				return
			}
			if p.OnResult != nil {
				i.out.Push(p.OnResult(result))
			}
		}
	}
}

// ConsumePrompt drains exactly one queued user message from prompt,
// blocking until one arrives or ctx ends. Nothing in this module calls it;
// the scripted engine itself never reads the prompt channel.
func ConsumePrompt(ctx context.Context, prompt *stream.Channel[api.EngineUserMessage]) (api.EngineUserMessage, error) {
	v, ok := prompt.NextContext(ctx)
	if !ok {
		return api.EngineUserMessage{}, fmt.Errorf("scripted: prompt channel closed before a message arrived")
	}
	return v, nil
}
