// Package config provides unified configuration for agentrelay.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (AGENTRELAY_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the agentrelay server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Debug         DebugConfig         `yaml:"debug"`
}

// DebugConfig holds pkg/debug's category/level controls, overridable by the
// AGENTRELAY_DEBUG and AGENTRELAY_LOG_LEVEL environment variables it reads
// directly (env always wins over these config values).
type DebugConfig struct {
	// Categories is a comma-separated list, e.g. "session,engine" or "all".
	Categories string `yaml:"categories"`
	Level      string `yaml:"level"` // ERROR, WARN, INFO, DEBUG, TRACE; default INFO
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"; the router always serves GET /metrics and does not read this field
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s

	// SessionRateLimit caps POST /sessions to this many creations per
	// second, bursting up to SessionRateBurst. 0 disables the limiter.
	SessionRateLimit float64 `yaml:"session_rate_limit"` // default: 5
	SessionRateBurst int     `yaml:"session_rate_burst"` // default: 10
}

// EngineConfig holds the upstream agent engine's invocation settings.
type EngineConfig struct {
	// Command is the subprocess engine's executable and arguments, e.g.
	// ["claude", "--output-format", "stream-json"]. Required unless Kind is
	// "scripted" (demo/test only).
	Command []string `yaml:"command"`

	// Kind selects the QueryFn realization: "subprocess" (default) or
	// "scripted". Scripted is for demos and is never auto-selected by a
	// real deployment.
	Kind string `yaml:"kind"`

	// WorkDir is loaded from config but cmd/server does not pass it to the
	// subprocess engine; the engine process runs in the server's working
	// directory.
	WorkDir string `yaml:"work_dir"`

	// Env is loaded from config but cmd/server does not pass it to the
	// subprocess engine; the engine process inherits the server's
	// environment unchanged.
	Env map[string]string `yaml:"env"`

	// AllowedTools restricts which tool names the adapter's MCP registry
	// will execute on the engine's behalf. Empty means unrestricted.
	AllowedTools []string `yaml:"allowed_tools"`

	// IdleTimeout aborts a session that has had no engine message and no
	// client call (new message, permission or question response) for this
	// long. 0 disables idle reaping (spec.md leaves session lifetime
	// unbounded absent an explicit abort; this is an opt-in supplement).
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// AuthConfig holds authentication settings for the HTTP surface.
type AuthConfig struct {
	Type string    `yaml:"type"` // "none" or "jwt", default: "none"
	JWT  JWTConfig `yaml:"jwt"`
}

// JWTConfig configures the optional bearer-JWT authenticator.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	Issuer     string `yaml:"issuer"`
}

// MCPConfig holds Model Context Protocol server settings the reference
// subprocess engine uses to execute tool calls it can't satisfy itself.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			SessionRateLimit: 5,
			SessionRateBurst: 10,
		},
		Engine: EngineConfig{
			Kind: "subprocess",
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
