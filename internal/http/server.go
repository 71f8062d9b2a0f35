// Package http provides the HTTP API for ctxstored.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/contextfile"
	"github.com/fyrsmithlabs/ctxstore/internal/events"
	"github.com/fyrsmithlabs/ctxstore/internal/issues"
	"github.com/fyrsmithlabs/ctxstore/internal/project"
)

// Server provides HTTP endpoints for ctxstored.
type Server struct {
	echo     *echo.Echo
	projects project.Manager
	issues   issues.Service
	bus      *events.Bus
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host    string
	Port    int
	Version string
}

// NewServer creates a new HTTP server. The event bus may be nil, in which
// case the events endpoint reports the stream as disabled.
func NewServer(projects project.Manager, issuesSvc issues.Service, bus *events.Bus, logger *zap.Logger, cfg *Config) (*Server, error) {
	if projects == nil {
		return nil, fmt.Errorf("project manager cannot be nil")
	}
	if issuesSvc == nil {
		return nil, fmt.Errorf("issues service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9091,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())

	s := &Server{
		echo:     e,
		projects: projects,
		issues:   issuesSvc,
		bus:      bus,
		logger:   logger,
		config:   cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check and Prometheus metrics
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API v1 routes
	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)

	v1.GET("/projects", s.handleListProjects)
	v1.POST("/projects", s.handleCreateProject)
	v1.GET("/projects/:id", s.handleGetProject)
	v1.DELETE("/projects/:id", s.handleDeleteProject)

	v1.GET("/projects/:id/context", s.handleListContext)
	v1.POST("/projects/:id/context/reset", s.handleResetContext)
	v1.POST("/projects/:id/context/drop", s.handleDropContext)
	v1.GET("/projects/:id/context/events", s.handleContextEvents)

	// Context file names arrive as the trailing wildcard, URL-escaped, so
	// names with spaces and parentheses work verbatim.
	v1.GET("/projects/:id/context/*", s.handleReadContext)
	v1.PUT("/projects/:id/context/*", s.handleWriteContext)
	v1.DELETE("/projects/:id/context/*", s.handleDeleteContext)

	v1.GET("/projects/:id/issues", s.handleListIssues)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleStatus reports daemon status for the CLI statusline.
func (s *Server) handleStatus(c echo.Context) error {
	projects, err := s.projects.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{
		Status:   "ok",
		Version:  s.config.Version,
		Projects: len(projects),
	})
}

// httpError maps domain errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, project.ErrProjectNotFound), errors.Is(err, contextfile.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, project.ErrProjectExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, project.ErrInvalidProjectPath),
		errors.Is(err, contextfile.ErrInvalidName),
		errors.Is(err, contextfile.ErrInvalidDataURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, contextfile.ErrContentTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, issues.ErrNoRemote):
		return echo.NewHTTPError(http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, issues.ErrFetchFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance for registering additional routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
