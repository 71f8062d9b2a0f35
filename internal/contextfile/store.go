package contextfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxstore/internal/contextfile"

// Store provides CRUD over a single project's context directory. All
// operations are synchronous: once a call returns, the result is visible
// to every subsequent call.
type Store interface {
	// List returns the names of all context files in lexicographic order.
	List(ctx context.Context) ([]string, error)

	// Read returns the named file with its derived kind.
	// Returns ErrNotFound if the file does not exist.
	Read(ctx context.Context, name string) (*ContextFile, error)

	// Write creates or silently overwrites the named file. The last write
	// wins. An empty kind is derived from the name and content.
	Write(ctx context.Context, name, content string, kind Kind) error

	// Delete removes exactly one file.
	// Returns ErrNotFound if the file does not exist.
	Delete(ctx context.Context, name string) error

	// Reset removes every file and leaves the directory empty.
	Reset(ctx context.Context) error

	// Dir returns the absolute path of the backing directory.
	Dir() string

	// Close releases the store. Further calls return ErrStoreClosed.
	Close() error
}

// ChangePublisher receives a notification after each successful mutation.
// Implementations must not block; a nil publisher disables notifications.
type ChangePublisher interface {
	PublishChange(ctx context.Context, op, name string)
}

// Config holds store configuration.
type Config struct {
	// Dir is the project's context directory. Created if missing.
	Dir string

	// Project is the owning project's name, used in logs and metrics.
	Project string

	// MaxContentSize caps a single write in bytes. Zero means unlimited.
	MaxContentSize int64
}

// dirStore is the directory-backed Store implementation. One file per
// entry, the entry name used verbatim as the filename.
type dirStore struct {
	cfg    *Config
	pub    ChangePublisher
	logger *zap.Logger

	// Telemetry
	tracer        trace.Tracer
	meter         metric.Meter
	writeCounter  metric.Int64Counter
	deleteCounter metric.Int64Counter
	resetCounter  metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewStore creates a Store rooted at cfg.Dir, creating the directory if
// needed. pub may be nil to disable change notifications.
func NewStore(cfg *Config, pub ChangePublisher, logger *zap.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create context directory: %w", err)
	}

	s := &dirStore{
		cfg:    cfg,
		pub:    pub,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *dirStore) initMetrics() {
	var err error

	s.writeCounter, err = s.meter.Int64Counter("context.writes",
		metric.WithDescription("Number of context file writes"),
		metric.WithUnit("{write}"))
	if err != nil {
		s.logger.Warn("failed to create write counter", zap.Error(err))
	}

	s.deleteCounter, err = s.meter.Int64Counter("context.deletes",
		metric.WithDescription("Number of context file deletes"),
		metric.WithUnit("{delete}"))
	if err != nil {
		s.logger.Warn("failed to create delete counter", zap.Error(err))
	}

	s.resetCounter, err = s.meter.Int64Counter("context.resets",
		metric.WithDescription("Number of context directory resets"),
		metric.WithUnit("{reset}"))
	if err != nil {
		s.logger.Warn("failed to create reset counter", zap.Error(err))
	}
}

func (s *dirStore) List(ctx context.Context) ([]string, error) {
	_, span := s.tracer.Start(ctx, "context.list")
	defer span.End()
	span.SetAttributes(attribute.String("project", s.cfg.Project))

	if err := s.checkOpen(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store closed")
		return nil, err
	}

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fmt.Errorf("failed to read context directory: %w", err)
	}

	// os.ReadDir returns entries sorted by filename, which is the
	// lexicographic order the listing contract requires.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		names = append(names, entry.Name())
	}

	span.SetAttributes(attribute.Int("count", len(names)))
	span.SetStatus(codes.Ok, "")
	return names, nil
}

func (s *dirStore) Read(ctx context.Context, name string) (*ContextFile, error) {
	_, span := s.tracer.Start(ctx, "context.read")
	defer span.End()
	span.SetAttributes(
		attribute.String("project", s.cfg.Project),
		attribute.String("name", name),
	)

	if err := s.checkOpen(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store closed")
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid name")
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			span.SetStatus(codes.Error, "not found")
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	content := string(data)
	span.SetStatus(codes.Ok, "")
	return &ContextFile{
		Name:    name,
		Kind:    DeriveKind(name, content),
		Content: content,
	}, nil
}

func (s *dirStore) Write(ctx context.Context, name, content string, kind Kind) error {
	ctx, span := s.tracer.Start(ctx, "context.write")
	defer span.End()
	span.SetAttributes(
		attribute.String("project", s.cfg.Project),
		attribute.String("name", name),
		attribute.Int("size", len(content)),
	)

	if err := s.checkOpen(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store closed")
		return err
	}
	if err := ValidateName(name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid name")
		return err
	}
	if s.cfg.MaxContentSize > 0 && int64(len(content)) > s.cfg.MaxContentSize {
		err := fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrContentTooLarge, len(content), s.cfg.MaxContentSize)
		span.RecordError(err)
		span.SetStatus(codes.Error, "content too large")
		return err
	}

	if kind == "" {
		kind = DeriveKind(name, content)
	}
	span.SetAttributes(attribute.String("kind", string(kind)))

	if err := s.writeAtomic(name, content); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return err
	}

	if s.writeCounter != nil {
		s.writeCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("project", s.cfg.Project),
			attribute.String("kind", string(kind)),
		))
	}
	s.publish(ctx, OpWrite, name)

	s.logger.Info("context file written",
		zap.String("project", s.cfg.Project),
		zap.String("name", name),
		zap.String("kind", string(kind)),
		zap.Int("size", len(content)))

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *dirStore) Delete(ctx context.Context, name string) error {
	ctx, span := s.tracer.Start(ctx, "context.delete")
	defer span.End()
	span.SetAttributes(
		attribute.String("project", s.cfg.Project),
		attribute.String("name", name),
	)

	if err := s.checkOpen(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store closed")
		return err
	}
	if err := ValidateName(name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid name")
		return err
	}

	if err := os.Remove(filepath.Join(s.cfg.Dir, name)); err != nil {
		if os.IsNotExist(err) {
			span.SetStatus(codes.Error, "not found")
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("failed to delete context file: %w", err)
	}

	if s.deleteCounter != nil {
		s.deleteCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("project", s.cfg.Project),
		))
	}
	s.publish(ctx, OpDelete, name)

	s.logger.Info("context file deleted",
		zap.String("project", s.cfg.Project),
		zap.String("name", name))

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *dirStore) Reset(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "context.reset")
	defer span.End()
	span.SetAttributes(attribute.String("project", s.cfg.Project))

	if err := s.checkOpen(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store closed")
		return err
	}

	if err := os.RemoveAll(s.cfg.Dir); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reset failed")
		return fmt.Errorf("failed to remove context directory: %w", err)
	}
	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reset failed")
		return fmt.Errorf("failed to recreate context directory: %w", err)
	}

	if s.resetCounter != nil {
		s.resetCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("project", s.cfg.Project),
		))
	}
	s.publish(ctx, OpReset, "")

	s.logger.Info("context directory reset",
		zap.String("project", s.cfg.Project))

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *dirStore) Dir() string {
	return s.cfg.Dir
}

func (s *dirStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}

func (s *dirStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// writeAtomic writes content to a temp file in the same directory and
// renames it over the target, so readers never observe a partial write.
func (s *dirStore) writeAtomic(name, content string) error {
	tmp, err := os.CreateTemp(s.cfg.Dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.cfg.Dir, name)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace context file: %w", err)
	}
	return nil
}

func (s *dirStore) publish(ctx context.Context, op, name string) {
	if s.pub == nil {
		return
	}
	s.pub.PublishChange(ctx, op, name)
}
