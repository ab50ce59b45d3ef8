package mcp

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nverse/agentrelay/pkg/tools"
)

// Client wraps one MCP SDK session and its tool catalog.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu            sync.Mutex
	cachedNames   []string
	toolsResolved bool
}

// NewClient returns a Client for the given server. Call Connect before use.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect performs the MCP handshake against the configured server.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport is Connect with an injectable transport, used by
// tests to bypass URL-based transport construction.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{Name: "agentrelay", Version: "1.0.0"},
		&mcp.ClientOptions{Capabilities: &mcp.ClientCapabilities{}},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) createTransport() (mcp.Transport, error) {
	var httpClient *http.Client
	if len(c.cfg.Headers) > 0 {
		httpClient = &http.Client{Transport: &headerTransport{base: http.DefaultTransport, headers: c.cfg.Headers}}
	}

	switch c.cfg.Transport {
	case "sse":
		t := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			t.HTTPClient = httpClient
		}
		return t, nil
	case "streamable-http", "":
		t := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			t.HTTPClient = httpClient
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// ToolNames returns the server's tool catalog, discovering and caching it on
// first call.
func (c *Client) ToolNames(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.toolsResolved {
		return c.cachedNames, nil
	}
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var names []string
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		names = append(names, tool.Name)
	}
	c.cachedNames = names
	c.toolsResolved = true
	return names, nil
}

// CanExecute reports whether this server's catalog includes name.
func (c *Client) CanExecute(name string) bool {
	for _, n := range c.cachedNames {
		if n == name {
			return true
		}
	}
	return false
}

// Execute runs call on the MCP server and converts the result.
func (c *Client) Execute(ctx context.Context, call tools.Call) (tools.Result, error) {
	if c.session == nil {
		return tools.Result{}, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: call.Name, Arguments: call.Arguments})
	if err != nil {
		return tools.Result{CallID: call.ID, Output: fmt.Sprintf("MCP tool call error: %v", err), IsError: true}, nil
	}
	return convertResult(call.ID, result), nil
}

// Close closes the underlying MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func convertResult(callID string, result *mcp.CallToolResult) tools.Result {
	var output string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if output != "" {
				output += "\n"
			}
			output += tc.Text
		}
	}
	return tools.Result{CallID: callID, Output: output, IsError: result.IsError}
}
