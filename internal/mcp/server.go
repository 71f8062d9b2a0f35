package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/issues"
	"github.com/fyrsmithlabs/ctxstore/internal/project"
)

// Server is an MCP server that calls the internal services directly.
type Server struct {
	mcp      *mcp.Server
	projects project.Manager
	issues   issues.Service
	metrics  *Metrics
	logger   *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "ctxstore")
	Name string

	// Version is the server version (default: "1.0.0")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ctxstore",
		Version: "1.0.0",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates a new MCP server with the given services.
func NewServer(cfg *Config, projects project.Manager, issuesSvc issues.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if projects == nil {
		return nil, fmt.Errorf("project manager is required")
	}
	if issuesSvc == nil {
		return nil, fmt.Errorf("issues service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Create MCP server
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:      mcpServer,
		projects: projects,
		issues:   issuesSvc,
		metrics:  NewMetrics(logger),
		logger:   logger,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Close closes the server and all services.
func (s *Server) Close() error {
	s.logger.Info("closing MCP server and services")

	var errs []error

	if err := s.projects.Close(); err != nil {
		errs = append(errs, fmt.Errorf("project manager close: %w", err))
	}
	if err := s.issues.Close(); err != nil {
		errs = append(errs, fmt.Errorf("issues service close: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
