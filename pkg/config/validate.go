package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Engine.Kind {
	case "subprocess", "scripted":
		// valid
	default:
		errs = append(errs, fmt.Errorf("engine.kind must be \"subprocess\" or \"scripted\", got %q", c.Engine.Kind))
	}

	if c.Engine.Kind == "subprocess" && len(c.Engine.Command) == 0 {
		errs = append(errs, fmt.Errorf("engine.command is required when engine.kind is \"subprocess\""))
	}

	switch c.Auth.Type {
	case "none", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\" or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.Type == "jwt" && c.Auth.JWT.Secret == "" && c.Auth.JWT.SecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.secret or auth.jwt.secret_file is required when auth.type is \"jwt\""))
	}

	for i, srv := range c.MCP.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
	}

	return errors.Join(errs...)
}
