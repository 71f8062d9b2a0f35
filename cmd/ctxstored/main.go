// Ctxstored is the context store daemon.
//
// It keeps one context directory per registered project and serves it over
// an HTTP API with an SSE change stream. With --mcp it serves the same
// operations over MCP stdio instead, for editors that run the daemon as a
// subprocess.
//
// Configuration is loaded from ~/.config/ctxstore/config.yaml with
// environment variable overrides. See internal/config for details.
//
// Usage:
//
//	# Start the HTTP daemon with defaults
//	ctxstored
//
//	# Custom config file
//	ctxstored --config /etc/ctxstore/config.yaml
//
//	# Serve MCP over stdio instead of HTTP
//	ctxstored --mcp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/config"
	"github.com/fyrsmithlabs/ctxstore/internal/contextfile"
	"github.com/fyrsmithlabs/ctxstore/internal/events"
	ctxhttp "github.com/fyrsmithlabs/ctxstore/internal/http"
	"github.com/fyrsmithlabs/ctxstore/internal/issues"
	"github.com/fyrsmithlabs/ctxstore/internal/logging"
	"github.com/fyrsmithlabs/ctxstore/internal/mcp"
	"github.com/fyrsmithlabs/ctxstore/internal/project"
	"github.com/fyrsmithlabs/ctxstore/internal/telemetry"
	"github.com/fyrsmithlabs/ctxstore/internal/watch"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	mcpMode := flag.Bool("mcp", false, "serve MCP over stdio instead of HTTP")
	flag.Parse()
	args := flag.Args()

	// Handle subcommands
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  ctxstored           Start the context store daemon\n")
			fmt.Fprintf(os.Stderr, "  ctxstored --mcp     Serve MCP over stdio\n")
			fmt.Fprintf(os.Stderr, "  ctxstored version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *mcpMode); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}

	log.Println("Shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("ctxstored by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the daemon and blocks until the context is cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes telemetry and the structured logger
//  3. Starts the change-event bus (embedded NATS unless disabled)
//  4. Opens the project registry and per-project stores
//  5. Creates the issue listing service
//  6. Serves HTTP (default) or MCP stdio (--mcp)
//  7. Performs graceful shutdown on context cancellation
func run(ctx context.Context, configPath string, mcpMode bool) error {
	// Load configuration
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize telemetry before the logger so the OTel log bridge can
	// attach to it.
	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	// Initialize logger
	logger, err := initLogger(cfg, tel, mcpMode)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	zlog := logger.Underlying()

	zlog.Info("Starting ctxstored",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage_root", cfg.Storage.Root),
		zap.Bool("mcp_mode", mcpMode),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	// Initialize infrastructure dependencies
	deps, err := initDependencies(ctx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	zlog.Info("Dependencies initialized",
		zap.Bool("event_bus", deps.bus != nil),
		zap.String("issues_provider", cfg.Issues.Provider))

	if mcpMode {
		return runMCP(ctx, deps, zlog)
	}
	return runHTTP(ctx, cfg, deps, zlog)
}

// runHTTP serves the HTTP API until ctx is cancelled, then shuts down
// within the configured timeout.
func runHTTP(ctx context.Context, cfg *config.Config, deps *dependencies, zlog *zap.Logger) error {
	srv, err := ctxhttp.NewServer(deps.projects, deps.issues, deps.bus, zlog, &ctxhttp.Config{
		Host:    "localhost",
		Port:    cfg.Server.Port,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	// Watch existing context directories for out-of-band edits.
	if deps.bus != nil {
		if err := deps.startWatchers(ctx); err != nil {
			zlog.Warn("Failed to start context watchers", zap.Error(err))
		}
	}

	zlog.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("api_prefix", "/api/v1"),
		zap.String("metrics_endpoint", "/metrics"))

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		zlog.Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server shutdown error", zap.Error(err))
		return err
	}

	zlog.Info("Server stopped gracefully")
	return nil
}

// runMCP serves MCP over stdio until the client disconnects or ctx is
// cancelled. deps.Close handles service shutdown.
func runMCP(ctx context.Context, deps *dependencies, zlog *zap.Logger) error {
	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "ctxstore",
		Version: version,
		Logger:  zlog,
	}, deps.projects, deps.issues)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	return srv.Run(ctx)
}

// dependencies holds all infrastructure dependencies.
type dependencies struct {
	bus      *events.Bus
	projects project.Manager
	issues   issues.Service
	watchers []*watch.Watcher
	logger   *zap.Logger
}

// Close releases all infrastructure resources.
func (d *dependencies) Close() {
	for _, w := range d.watchers {
		w.Stop()
	}
	if d.projects != nil {
		if err := d.projects.Close(); err != nil {
			d.logger.Warn("Project manager close failed", zap.Error(err))
		}
	}
	if d.issues != nil {
		if err := d.issues.Close(); err != nil {
			d.logger.Warn("Issues service close failed", zap.Error(err))
		}
	}
	if d.bus != nil {
		if err := d.bus.Close(); err != nil {
			d.logger.Warn("Event bus close failed", zap.Error(err))
		}
	}
}

// startWatchers starts one filesystem watcher per registered project.
// Projects registered while the daemon runs are picked up on restart.
func (d *dependencies) startWatchers(ctx context.Context) error {
	projects, err := d.projects.List(ctx)
	if err != nil {
		return err
	}

	for _, p := range projects {
		w, err := watch.NewWatcher(&watch.Config{
			ProjectID: p.ID,
			Dir:       p.ContextDir,
		}, d.bus, d.logger)
		if err != nil {
			d.logger.Warn("Failed to create watcher",
				zap.String("project_id", p.ID),
				zap.String("dir", p.ContextDir),
				zap.Error(err))
			continue
		}
		if err := w.Start(ctx); err != nil {
			d.logger.Warn("Failed to start watcher",
				zap.String("project_id", p.ID),
				zap.Error(err))
			continue
		}
		d.watchers = append(d.watchers, w)
	}

	d.logger.Info("Context watchers started", zap.Int("count", len(d.watchers)))
	return nil
}

// initLogger builds the structured logger from daemon configuration.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry, mcpMode bool) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()

	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format

	if mcpMode {
		// Stdout carries the MCP protocol stream; logs go to stderr.
		logCfg.Output.Stdout = false
		logCfg.Output.Stderr = true
	}

	var provider otellog.LoggerProvider
	if tel.IsEnabled() {
		logCfg.Output.OTEL = true
		provider = tel.LoggerProvider()
	}

	return logging.NewLogger(logCfg, provider)
}

// initDependencies initializes the event bus, project registry, and issue
// listing service.
func initDependencies(ctx context.Context, cfg *config.Config, zlog *zap.Logger) (*dependencies, error) {
	deps := &dependencies{logger: zlog}

	// Change-event bus. Empty URL embeds a NATS server in-process.
	if !cfg.Events.Disabled {
		bus, err := events.NewBus(&events.Config{URL: cfg.Events.URL}, zlog)
		if err != nil {
			return nil, fmt.Errorf("failed to start event bus: %w", err)
		}
		deps.bus = bus
	}

	// Project registry with per-project context stores. Stores publish
	// their changes to the bus when one is running.
	var publisherFor project.PublisherFactory
	if deps.bus != nil {
		bus := deps.bus
		publisherFor = func(projectID string) contextfile.ChangePublisher {
			return events.NewProjectPublisher(bus, projectID, zlog)
		}
	}

	manager, err := project.NewManager(&project.Config{
		Root:           cfg.Storage.Root,
		MaxContentSize: int64(cfg.Storage.MaxContentSizeKB) * 1024,
	}, publisherFor, zlog)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to open project registry: %w", err)
	}
	deps.projects = manager

	// Issue listing service
	var provider issues.Provider
	switch cfg.Issues.Provider {
	case "api":
		provider = issues.NewAPIProvider(ctx, cfg.Issues.Token)
	default:
		provider = issues.NewGHProvider(cfg.Issues.GHPath, zlog)
	}

	issuesSvc, err := issues.NewService(&issues.Config{
		OpenLimit:   cfg.Issues.OpenLimit,
		ClosedLimit: cfg.Issues.ClosedLimit,
	}, provider, zlog)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create issues service: %w", err)
	}
	deps.issues = issuesSvc

	return deps, nil
}
