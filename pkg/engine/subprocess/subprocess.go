// Package subprocess drives a real upstream agent engine: a configured CLI
// command speaking newline-delimited JSON on stdin/stdout. It is grounded on
// oubliette's internal/agent/droid executor (bufio.Scanner line reader tied
// to process/context lifecycle, JSON-RPC-shaped permission requests answered
// back over stdin) generalized from Droid's specific JSON-RPC envelope to
// the engine message shapes translate.Translator already knows how to fold.
package subprocess

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/nverse/agentrelay/pkg/api"
	"github.com/nverse/agentrelay/pkg/debug"
	"github.com/nverse/agentrelay/pkg/engine"
	"github.com/nverse/agentrelay/pkg/observability"
	"github.com/nverse/agentrelay/pkg/permission"
	"github.com/nverse/agentrelay/pkg/stream"
	"github.com/nverse/agentrelay/pkg/tools"
	"github.com/nverse/agentrelay/pkg/translate"
)

// Config describes how to launch the engine subprocess.
type Config struct {
	// Command and Args spawn the engine process, e.g. "claude-agent", ["--stream-json"].
	Command string
	Args    []string

	// AllowedTools restricts which tool names the registry will dispatch;
	// empty means no restriction (see tools.FilterAllowed).
	AllowedTools []string

	// Tools executes any tool call the subprocess itself reports but cannot
	// satisfy (e.g. an MCP-backed tool). May be nil if the subprocess
	// always executes its own tools.
	Tools tools.Executor

	Logger *slog.Logger
}

// permissionRequestType is the engine message type agentrelay's
// subprocess protocol uses to ask for tool approval: a "control_request"
// envelope distinct from the stream_event/assistant/user/system/result
// vocabulary the Translator folds, since permission is out-of-band.
const permissionRequestType = "control_request"

// toolExecutionRequestType is emitted by engines that delegate a subset of
// their tools (typically MCP-backed ones) to the host process instead of
// executing them inline.
const toolExecutionRequestType = "tool_execution_request"

// New returns an engine.QueryFn that spawns cfg.Command once per invocation.
func New(cfg Config) engine.QueryFn {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, sessCfg engine.SessionConfig) (engine.Invocation, error) {
		procCtx, cancel := context.WithCancel(ctx)
		cmd := exec.CommandContext(procCtx, cfg.Command, cfg.Args...)

		stdin, err := cmd.StdinPipe()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subprocess: stdin pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("subprocess: stdout pipe: %w", err)
		}

		if err := cmd.Start(); err != nil {
			cancel()
			return nil, fmt.Errorf("subprocess: starting %q: %w", cfg.Command, err)
		}
		debug.Log("engine", "subprocess spawned", "command", cfg.Command, "pid", cmd.Process.Pid)

		inv := &invocation{
			cmd:    cmd,
			stdin:  stdin,
			out:    stream.New[translate.Message](),
			cancel: cancel,
			cfg:    cfg,
			logger: logger,
		}

		go inv.writePrompts(procCtx, sessCfg.Prompt)
		go inv.readMessages(procCtx, stdout, sessCfg.PermissionHandler)

		return inv, nil
	}
}

type invocation struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *stream.Channel[translate.Message]
	cancel context.CancelFunc
	cfg    Config
	logger *slog.Logger

	mu sync.Mutex
}

func (i *invocation) Messages() *stream.Channel[translate.Message] { return i.out }

// Interrupt asks the subprocess to stop its current turn. The wire protocol
// for this is engine-specific; agentrelay signals it the same way it signals
// a full abort, since the opaque engine contract (spec.md §6) does not
// distinguish the two at the transport level beyond "the invocation stops
// producing for this turn."
func (i *invocation) Interrupt() { i.Abort() }

func (i *invocation) Abort() { i.cancel() }

func (i *invocation) writePrompts(ctx context.Context, prompt *stream.Channel[api.EngineUserMessage]) {
	enc := json.NewEncoder(i.writer())
	for {
		msg, ok := prompt.NextContext(ctx)
		if !ok {
			return
		}
		i.mu.Lock()
		err := enc.Encode(msg)
		i.mu.Unlock()
		if err != nil {
			i.logger.Warn("subprocess: writing prompt failed", "error", err)
			return
		}
	}
}

func (i *invocation) writer() io.Writer { return i.stdin }

func (i *invocation) readMessages(ctx context.Context, stdout io.Reader, handler engine.PermissionHandler) {
	defer i.out.Close()
	defer i.stdin.Close()
	defer func() {
		err := i.cmd.Wait()
		debug.Log("engine", "subprocess exited", "command", i.cfg.Command, "error", err)
	}()

	scanner := bufio.NewScanner(stdout)
	const maxLine = 1024 * 1024
	scanner.Buffer(make([]byte, maxLine), maxLine)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg translate.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			i.logger.Warn("subprocess: skipping malformed line", "error", err)
			continue
		}

		switch str(msg, "type") {
		case permissionRequestType:
			go i.handlePermissionRequest(ctx, msg, handler)
			continue
		case toolExecutionRequestType:
			go i.handleToolExecutionRequest(ctx, msg)
			continue
		}

		i.out.Push(msg)
	}

	if err := scanner.Err(); err != nil {
		i.out.Push(translate.Message{"type": "result", "subtype": "error_stream_read"})
		i.logger.Error("subprocess: stdout scan failed", "error", err)
	}
}

func (i *invocation) handlePermissionRequest(ctx context.Context, msg translate.Message, handler engine.PermissionHandler) {
	toolName := str(msg, "tool_name")
	requestID := str(msg, "request_id")
	input, _ := msg["input"].(map[string]any)

	result, err := handler(ctx, toolName, input, permission.RequestContext{
		ToolUseID: str(msg, "tool_use_id"),
		Reason:    str(msg, "reason"),
	})
	if err != nil {
		return // session aborted while waiting; the subprocess is being torn down
	}

	reply := permissionReply(requestID, result)

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := json.NewEncoder(i.writer()).Encode(reply); err != nil {
		i.logger.Warn("subprocess: writing permission reply failed", "error", err)
	}
}

// handleToolExecutionRequest runs a tool the subprocess cannot satisfy
// itself through the host's tool registry and reports the outcome back over
// stdin. A Config with no Tools executor fails every such request.
func (i *invocation) handleToolExecutionRequest(ctx context.Context, msg translate.Message) {
	call := tools.Call{
		ID:   str(msg, "request_id"),
		Name: str(msg, "tool_name"),
	}
	call.Arguments, _ = msg["input"].(map[string]any)

	var result tools.Result
	if filtered := tools.FilterAllowed([]tools.Call{call}, i.cfg.AllowedTools); len(filtered.Rejected) > 0 {
		result = filtered.Rejected[0]
	} else if i.cfg.Tools == nil {
		result = tools.Result{CallID: call.ID, Output: fmt.Sprintf("tool %q has no executor configured", call.Name), IsError: true}
	} else {
		var err error
		result, err = i.cfg.Tools.Execute(ctx, call)
		if err != nil {
			result = tools.Result{CallID: call.ID, Output: err.Error(), IsError: true}
		}
	}

	status := "ok"
	if result.IsError {
		status = "error"
	}
	observability.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()

	reply := toolExecutionReply(str(msg, "request_id"), result)

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := json.NewEncoder(i.writer()).Encode(reply); err != nil {
		i.logger.Warn("subprocess: writing tool execution reply failed", "error", err)
	}
}

func permissionReply(requestID string, result api.PermissionResult) map[string]any {
	reply := map[string]any{
		"type":       "control_response",
		"request_id": requestID,
		"behavior":   string(result.Behavior),
	}
	if result.Behavior == api.BehaviorAllow {
		reply["updated_input"] = result.UpdatedInput
	}
	return reply
}

func toolExecutionReply(requestID string, result tools.Result) map[string]any {
	return map[string]any{
		"type":       "tool_execution_response",
		"request_id": requestID,
		"output":     result.Output,
		"is_error":   result.IsError,
	}
}

func str(m translate.Message, key string) string {
	s, _ := m[key].(string)
	return s
}
