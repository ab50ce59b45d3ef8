package mcp

import (
	"context"
	"fmt"

	"github.com/nverse/agentrelay/pkg/tools"
)

// registryClient is the subset of *Client the Registry depends on, narrowed
// to an interface so tests can dispatch across fake servers without a live
// MCP connection.
type registryClient interface {
	CanExecute(name string) bool
	Execute(ctx context.Context, call tools.Call) (tools.Result, error)
	Close() error
}

// Registry aggregates every connected MCP server and routes a tools.Call to
// whichever client's catalog claims it.
type Registry struct {
	clients []registryClient
}

// NewRegistry connects to every server in cfgs, in order, and returns a
// Registry over them. It returns the first connection error encountered;
// already-connected clients are closed before returning.
func NewRegistry(ctx context.Context, cfgs []ServerConfig) (*Registry, error) {
	r := &Registry{}
	for _, cfg := range cfgs {
		c := NewClient(cfg)
		if err := c.Connect(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("connecting MCP server %q: %w", cfg.Name, err)
		}
		if _, err := c.ToolNames(ctx); err != nil {
			c.Close()
			r.Close()
			return nil, fmt.Errorf("discovering tools on %q: %w", cfg.Name, err)
		}
		r.clients = append(r.clients, c)
	}
	return r, nil
}

var _ tools.Executor = (*Registry)(nil)

// CanExecute reports whether any connected server claims name.
func (r *Registry) CanExecute(name string) bool {
	for _, c := range r.clients {
		if c.CanExecute(name) {
			return true
		}
	}
	return false
}

// Execute dispatches call to the first client whose catalog claims it.
func (r *Registry) Execute(ctx context.Context, call tools.Call) (tools.Result, error) {
	for _, c := range r.clients {
		if c.CanExecute(call.Name) {
			return c.Execute(ctx, call)
		}
	}
	return tools.Result{CallID: call.ID, Output: fmt.Sprintf("no MCP server serves tool %q", call.Name), IsError: true}, nil
}

// Close closes every connected client.
func (r *Registry) Close() error {
	var firstErr error
	for _, c := range r.clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
