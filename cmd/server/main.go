// Command server runs the agentrelay streaming adapter.
//
// Configuration can be provided via:
//   - YAML config file (--config flag, AGENTRELAY_CONFIG env, ./config.yaml,
//     /etc/agentrelay/config.yaml)
//   - Environment variables with the AGENTRELAY_ prefix (override config
//     file values)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nverse/agentrelay/pkg/auth"
	authjwt "github.com/nverse/agentrelay/pkg/auth/jwt"
	"github.com/nverse/agentrelay/pkg/config"
	"github.com/nverse/agentrelay/pkg/debug"
	"github.com/nverse/agentrelay/pkg/engine"
	"github.com/nverse/agentrelay/pkg/engine/scripted"
	"github.com/nverse/agentrelay/pkg/engine/subprocess"
	"github.com/nverse/agentrelay/pkg/observability"
	"github.com/nverse/agentrelay/pkg/session"
	"github.com/nverse/agentrelay/pkg/tools"
	"github.com/nverse/agentrelay/pkg/tools/mcp"
	transporthttp "github.com/nverse/agentrelay/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level)

	var mcpRegistry *mcp.Registry
	query, err := buildEngine(cfg, &mcpRegistry)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	if mcpRegistry != nil {
		defer mcpRegistry.Close()
	}

	manager := session.NewManager(query)

	var reaper *session.Reaper
	if cfg.Engine.IdleTimeout > 0 {
		reaper = session.NewReaper(manager, cfg.Engine.IdleTimeout, cfg.Engine.IdleTimeout/2)
		reaper.Start()
		defer reaper.Stop()
	}

	validator, err := buildAuthValidator(cfg)
	if err != nil {
		return fmt.Errorf("building auth validator: %w", err)
	}

	routerCfg := transporthttp.DefaultConfig()
	routerCfg.AuthValidator = validator
	routerCfg.Metrics = cfg.Observability.Metrics.Enabled
	if cfg.Server.SessionRateLimit > 0 {
		routerCfg.SessionLimiter = transporthttp.NewSessionRateLimiter(cfg.Server.SessionRateLimit, cfg.Server.SessionRateBurst)
	}

	router := transporthttp.NewRouter(manager, routerCfg)
	handler := observability.MetricsMiddleware(router.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "engine_kind", cfg.Engine.Kind, "auth", cfg.Auth.Type)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// buildEngine constructs the engine.QueryFn selected by cfg.Engine.Kind. If
// MCP servers are configured, *registry is set so the caller can close it on
// shutdown; the registry doubles as the tool executor the subprocess engine
// delegates to for tools it can't satisfy inline.
func buildEngine(cfg *config.Config, registry **mcp.Registry) (engine.QueryFn, error) {
	var executor tools.Executor
	if len(cfg.MCP.Servers) > 0 {
		mcpCfgs := make([]mcp.ServerConfig, len(cfg.MCP.Servers))
		for i, s := range cfg.MCP.Servers {
			mcpCfgs[i] = mcp.ServerConfig{Name: s.Name, Transport: s.Transport, URL: s.URL, Headers: s.Headers}
		}
		r, err := mcp.NewRegistry(context.Background(), mcpCfgs)
		if err != nil {
			return nil, fmt.Errorf("connecting MCP servers: %w", err)
		}
		*registry = r
		executor = r
		slog.Info("MCP registry connected", "servers", len(cfg.MCP.Servers))
	}

	switch cfg.Engine.Kind {
	case "scripted":
		slog.Warn("engine.kind=scripted: serving canned fixtures, not a real upstream engine")
		return scripted.New(nil), nil

	case "subprocess", "":
		if len(cfg.Engine.Command) == 0 {
			return nil, fmt.Errorf("engine.command is required for engine.kind=subprocess")
		}
		return subprocess.New(subprocess.Config{
			Command:      cfg.Engine.Command[0],
			Args:         cfg.Engine.Command[1:],
			AllowedTools: cfg.Engine.AllowedTools,
			Tools:        executor,
		}), nil

	default:
		return nil, fmt.Errorf("unknown engine.kind %q (supported: subprocess, scripted)", cfg.Engine.Kind)
	}
}

// buildAuthValidator returns nil when auth.type is "none".
func buildAuthValidator(cfg *config.Config) (auth.Validator, error) {
	switch cfg.Auth.Type {
	case "none", "":
		return nil, nil
	case "jwt":
		return authjwt.New(authjwt.Config{Secret: cfg.Auth.JWT.Secret, Issuer: cfg.Auth.JWT.Issuer})
	default:
		return nil, fmt.Errorf("unknown auth.type %q (supported: none, jwt)", cfg.Auth.Type)
	}
}
