package issues

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/pkg/git"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxstore/internal/issues"

// Service lists issues for project directories.
type Service interface {
	// List returns issues for the repository behind projectPath's origin
	// remote, filtered by view. When no usable remote exists it returns
	// ErrNoRemote without contacting the provider.
	List(ctx context.Context, projectPath string, view View) ([]Issue, error)

	// Close releases the service.
	Close() error
}

// Config holds service configuration.
type Config struct {
	// OpenLimit caps how many open issues a listing fetches.
	OpenLimit int

	// ClosedLimit caps how many closed issues a listing fetches.
	ClosedLimit int
}

// DefaultConfig returns the standard listing caps.
func DefaultConfig() *Config {
	return &Config{
		OpenLimit:   100,
		ClosedLimit: 50,
	}
}

type service struct {
	cfg      *Config
	provider Provider
	logger   *zap.Logger

	// Telemetry
	tracer       trace.Tracer
	meter        metric.Meter
	listCounter  metric.Int64Counter
	errorCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewService creates an issue listing service backed by provider.
func NewService(cfg *Config, provider Provider, logger *zap.Logger) (Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.OpenLimit <= 0 || cfg.ClosedLimit <= 0 {
		return nil, fmt.Errorf("issue limits must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &service{
		cfg:      cfg,
		provider: provider,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *service) initMetrics() {
	var err error

	s.listCounter, err = s.meter.Int64Counter("issues.lists",
		metric.WithDescription("Number of issue list operations"),
		metric.WithUnit("{list}"))
	if err != nil {
		s.logger.Warn("failed to create list counter", zap.Error(err))
	}

	s.errorCounter, err = s.meter.Int64Counter("issues.fetch_errors",
		metric.WithDescription("Number of failed issue fetches"),
		metric.WithUnit("{error}"))
	if err != nil {
		s.logger.Warn("failed to create error counter", zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, projectPath string, view View) ([]Issue, error) {
	ctx, span := s.tracer.Start(ctx, "issues.list")
	defer span.End()
	span.SetAttributes(
		attribute.String("project_path", projectPath),
		attribute.String("view", string(view)),
	)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, fmt.Errorf("service is closed")
	}
	s.mu.RUnlock()

	// Remote detection happens before any fetch so a misconfigured
	// project reports its real problem, never an empty issue list.
	remote, err := git.DetectRemote(projectPath)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrNoRemote, err)
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, "no remote")
		return nil, wrapped
	}
	span.SetAttributes(attribute.String("repo", remote.Slug()))

	var issues []Issue
	switch view {
	case ViewOpen:
		issues, err = s.provider.Fetch(ctx, remote, StateOpen, s.cfg.OpenLimit)
	case ViewClosed:
		issues, err = s.provider.Fetch(ctx, remote, StateClosed, s.cfg.ClosedLimit)
	case ViewAll:
		issues, err = s.fetchAll(ctx, remote)
	default:
		err = fmt.Errorf("unknown view: %q", view)
	}
	if err != nil {
		if s.errorCounter != nil {
			s.errorCounter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("repo", remote.Slug()),
			))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}

	if s.listCounter != nil {
		s.listCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("view", string(view)),
		))
	}
	s.logger.Info("issues listed",
		zap.String("repo", remote.Slug()),
		zap.String("view", string(view)),
		zap.Int("count", len(issues)))

	span.SetAttributes(attribute.Int("count", len(issues)))
	span.SetStatus(codes.Ok, "")
	return issues, nil
}

// fetchAll returns open issues first, then closed, each group in the
// provider's own order.
func (s *service) fetchAll(ctx context.Context, remote *git.Remote) ([]Issue, error) {
	open, err := s.provider.Fetch(ctx, remote, StateOpen, s.cfg.OpenLimit)
	if err != nil {
		return nil, fmt.Errorf("listing open issues: %w", err)
	}
	closed, err := s.provider.Fetch(ctx, remote, StateClosed, s.cfg.ClosedLimit)
	if err != nil {
		return nil, fmt.Errorf("listing closed issues: %w", err)
	}
	return append(open, closed...), nil
}

func (s *service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}
