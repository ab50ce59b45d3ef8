package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("default server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("default server.read_timeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 120*time.Second {
		t.Errorf("default server.write_timeout = %v, want 120s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.SessionRateLimit != 5 {
		t.Errorf("default server.session_rate_limit = %v, want 5", cfg.Server.SessionRateLimit)
	}
	if cfg.Engine.Kind != "subprocess" {
		t.Errorf("default engine.kind = %q, want \"subprocess\"", cfg.Engine.Kind)
	}
	if cfg.Auth.Type != "none" {
		t.Errorf("default auth.type = %q, want \"none\"", cfg.Auth.Type)
	}
	if !cfg.Observability.Metrics.Enabled {
		t.Error("default observability.metrics.enabled = false, want true")
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
server:
  port: 9090
  read_timeout: 60s
  write_timeout: 180s
engine:
  kind: subprocess
  command: ["claude", "--output-format", "stream-json"]
  work_dir: /tmp/agent
  idle_timeout: 5m
  allowed_tools: ["Read", "Bash"]
auth:
  type: jwt
  jwt:
    secret: topsecret
    issuer: agentrelay
mcp:
  servers:
    - name: my-server
      transport: streamable-http
      url: http://localhost:3000/mcp
      headers:
        Authorization: "Bearer tok-123"
`

	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("server.read_timeout = %v, want 60s", cfg.Server.ReadTimeout)
	}

	if len(cfg.Engine.Command) != 3 || cfg.Engine.Command[0] != "claude" {
		t.Errorf("engine.command = %v, want [claude --output-format stream-json]", cfg.Engine.Command)
	}
	if cfg.Engine.WorkDir != "/tmp/agent" {
		t.Errorf("engine.work_dir = %q, want \"/tmp/agent\"", cfg.Engine.WorkDir)
	}
	if cfg.Engine.IdleTimeout != 5*time.Minute {
		t.Errorf("engine.idle_timeout = %v, want 5m", cfg.Engine.IdleTimeout)
	}
	if len(cfg.Engine.AllowedTools) != 2 {
		t.Errorf("engine.allowed_tools = %v, want 2 entries", cfg.Engine.AllowedTools)
	}

	if cfg.Auth.Type != "jwt" {
		t.Errorf("auth.type = %q, want \"jwt\"", cfg.Auth.Type)
	}
	if cfg.Auth.JWT.Secret != "topsecret" {
		t.Errorf("auth.jwt.secret = %q, want \"topsecret\"", cfg.Auth.JWT.Secret)
	}

	if len(cfg.MCP.Servers) != 1 {
		t.Fatalf("mcp.servers length = %d, want 1", len(cfg.MCP.Servers))
	}
	if cfg.MCP.Servers[0].Name != "my-server" {
		t.Errorf("mcp.servers[0].name = %q, want \"my-server\"", cfg.MCP.Servers[0].Name)
	}
	if cfg.MCP.Servers[0].Headers["Authorization"] != "Bearer tok-123" {
		t.Errorf("mcp.servers[0].headers[Authorization] = %q, want \"Bearer tok-123\"", cfg.MCP.Servers[0].Headers["Authorization"])
	}
}

func TestEnvOverride(t *testing.T) {
	yamlContent := `
engine:
  kind: subprocess
  command: ["from-yaml"]
server:
  port: 9090
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	t.Setenv("AGENTRELAY_ENGINE_COMMAND", "claude --json")
	t.Setenv("AGENTRELAY_PORT", "7070")
	t.Setenv("AGENTRELAY_AUTH_TYPE", "jwt")
	t.Setenv("AGENTRELAY_JWT_SECRET", "env-secret")

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Engine.Command) != 2 || cfg.Engine.Command[0] != "claude" {
		t.Errorf("engine.command = %v, want env override", cfg.Engine.Command)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("server.port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Auth.Type != "jwt" {
		t.Errorf("auth.type = %q, want env override \"jwt\"", cfg.Auth.Type)
	}
	if cfg.Auth.JWT.Secret != "env-secret" {
		t.Errorf("auth.jwt.secret = %q, want env override", cfg.Auth.JWT.Secret)
	}
}

func TestMCPServersEnvVar(t *testing.T) {
	t.Setenv("AGENTRELAY_ENGINE_COMMAND", "claude")
	t.Setenv("AGENTRELAY_MCP_SERVERS", `[{"name":"env-mcp","transport":"sse","url":"http://mcp:3000"}]`)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.MCP.Servers) != 1 {
		t.Fatalf("mcp.servers length = %d, want 1", len(cfg.MCP.Servers))
	}
	if cfg.MCP.Servers[0].Name != "env-mcp" {
		t.Errorf("mcp.servers[0].name = %q, want \"env-mcp\"", cfg.MCP.Servers[0].Name)
	}
}

func TestFileReferenceJWTSecret(t *testing.T) {
	secretFile := writeTemp(t, "secret-*.txt", "  topsecret-from-file  \n")

	yamlContent := `
engine:
  command: ["claude"]
auth:
  type: jwt
  jwt:
    secret_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auth.JWT.Secret != "topsecret-from-file" {
		t.Errorf("auth.jwt.secret = %q, want \"topsecret-from-file\" (from file, trimmed)", cfg.Auth.JWT.Secret)
	}
}

func TestFileReferenceDoesNotOverrideExplicitValue(t *testing.T) {
	secretFile := writeTemp(t, "secret-*.txt", "secret-from-file")

	yamlContent := `
engine:
  command: ["claude"]
auth:
  type: jwt
  jwt:
    secret: explicit-secret
    secret_file: ` + secretFile + `
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Auth.JWT.Secret != "explicit-secret" {
		t.Errorf("auth.jwt.secret = %q, want \"explicit-secret\" (explicit value should win over file)", cfg.Auth.JWT.Secret)
	}
}

func TestFileDiscovery(t *testing.T) {
	yamlContent := `
engine:
  command: ["explicit-engine"]
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load(explicit) error: %v", err)
	}
	if cfg.Engine.Command[0] != "explicit-engine" {
		t.Errorf("explicit path: engine.command[0] = %q, want explicit value", cfg.Engine.Command[0])
	}

	envFile := writeTemp(t, "envconfig-*.yaml", `
engine:
  command: ["env-config-engine"]
`)
	t.Setenv("AGENTRELAY_CONFIG", envFile)

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(AGENTRELAY_CONFIG) error: %v", err)
	}
	if cfg.Engine.Command[0] != "env-config-engine" {
		t.Errorf("AGENTRELAY_CONFIG: engine.command[0] = %q, want env config value", cfg.Engine.Command[0])
	}

	t.Setenv("AGENTRELAY_CONFIG", "")
	t.Setenv("AGENTRELAY_ENGINE_COMMAND", "defaults-only-engine")

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(no file) error: %v", err)
	}
	if cfg.Engine.Command[0] != "defaults-only-engine" {
		t.Errorf("no file: engine.command[0] = %q, want env override", cfg.Engine.Command[0])
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name: "missing engine command",
			modify: func(c *Config) {
				c.Engine.Command = nil
			},
			wantErr: "engine.command is required",
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Engine.Command = []string{"claude"}
				c.Server.Port = 0
			},
			wantErr: "server.port must be > 0",
		},
		{
			name: "invalid engine kind",
			modify: func(c *Config) {
				c.Engine.Command = []string{"claude"}
				c.Engine.Kind = "remote"
			},
			wantErr: "engine.kind must be",
		},
		{
			name: "invalid auth type",
			modify: func(c *Config) {
				c.Engine.Command = []string{"claude"}
				c.Auth.Type = "apikey"
			},
			wantErr: "auth.type must be",
		},
		{
			name: "jwt without secret",
			modify: func(c *Config) {
				c.Engine.Command = []string{"claude"}
				c.Auth.Type = "jwt"
			},
			wantErr: "auth.jwt.secret",
		},
		{
			name: "mcp server missing url",
			modify: func(c *Config) {
				c.Engine.Command = []string{"claude"}
				c.MCP.Servers = []MCPServerConfig{{Name: "x"}}
			},
			wantErr: "mcp.servers[0].url",
		},
		{
			name: "valid config",
			modify: func(c *Config) {
				c.Engine.Command = []string{"claude"}
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestYAMLDefaultsMerge(t *testing.T) {
	yamlContent := `
engine:
  command: ["claude"]
`
	tmpFile := writeTemp(t, "config-*.yaml", yamlContent)

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Auth.Type != "none" {
		t.Errorf("auth.type = %q, want default \"none\"", cfg.Auth.Type)
	}
	if cfg.Engine.Kind != "subprocess" {
		t.Errorf("engine.kind = %q, want default \"subprocess\"", cfg.Engine.Kind)
	}
}

// writeTemp creates a temporary file with the given content and returns its
// path. The file is automatically cleaned up when the test finishes.
func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	dir := t.TempDir()

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	path := f.Name()

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		t.Fatalf("writing temp file: %v", err)
	}
	f.Close()

	return path
}

// contains checks if s contains substr.
func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
