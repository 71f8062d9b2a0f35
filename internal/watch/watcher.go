// Package watch observes context directories for changes made outside
// the daemon, e.g. an editor saving straight into the directory, and
// republishes them as external change events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/contextfile"
	"github.com/fyrsmithlabs/ctxstore/internal/events"
)

var (
	// ErrWatcherFailed indicates the filesystem watcher failed to initialize
	ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")
)

const (
	// defaultDebounce coalesces editor write bursts and gives the bus
	// time to deliver the daemon's own change events for suppression.
	defaultDebounce = 500 * time.Millisecond

	// selfWindow is how long after a daemon-originated change a file's
	// filesystem events are attributed to the daemon rather than an
	// external editor.
	selfWindow = 2 * time.Second
)

// Config holds watcher configuration.
type Config struct {
	// ProjectID is the project whose context directory is watched.
	ProjectID string

	// Dir is the context directory path.
	Dir string

	// Debounce delays external event publication so bursts coalesce.
	// Zero uses the default.
	Debounce time.Duration
}

// Watcher watches one context directory and publishes external change
// events for modifications the daemon did not make itself.
type Watcher struct {
	cfg     *Config
	bus     *events.Bus
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewWatcher creates a watcher for cfg.Dir. The bus both delivers the
// daemon's own change events (used for suppression) and carries the
// external events the watcher publishes.
func NewWatcher(cfg *Config, bus *events.Bus, logger *zap.Logger) (*Watcher, error) {
	if cfg == nil || cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		cfg:     cfg,
		bus:     bus,
		logger:  logger,
		watcher: fsw,
		stop:    make(chan struct{}),
	}, nil
}

// Start begins watching. Events are published until Stop is called or
// ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.cfg.Dir, err)
	}

	selfCh, cancelSelf, err := w.bus.Subscribe(w.cfg.ProjectID)
	if err != nil {
		return fmt.Errorf("subscribing to change events: %w", err)
	}

	go w.processEvents(ctx, selfCh, cancelSelf)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

// processEvents turns filesystem activity into external change events.
//
// Suppression is two-sided: a change event from the daemon marks the
// name as self-originated for selfWindow, and filesystem events wait
// one debounce interval before publishing so a self marker arriving
// just after the filesystem event still cancels it.
func (w *Watcher) processEvents(ctx context.Context, selfCh <-chan events.Event, cancelSelf func()) {
	defer cancelSelf()

	pending := make(map[string]time.Time)
	self := make(map[string]time.Time)
	var lastReset time.Time
	rewatch := false

	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name == w.cfg.Dir {
				// The directory itself went away (a reset); re-add the
				// watch once it reappears.
				if event.Op&fsnotify.Remove != 0 {
					rewatch = true
				}
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if contextfile.ValidateName(name) != nil {
				// Temp files and other non-entry names never surface.
				continue
			}
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				continue
			}
			pending[name] = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", zap.Error(err))

		case ev, ok := <-selfCh:
			if !ok {
				return
			}
			if ev.Op == events.OpExternal {
				continue
			}
			now := time.Now()
			if ev.Op == contextfile.OpReset {
				lastReset = now
				pending = make(map[string]time.Time)
				continue
			}
			self[ev.Name] = now
			delete(pending, ev.Name)

		case <-ticker.C:
			if rewatch {
				if err := w.watcher.Add(w.cfg.Dir); err == nil {
					rewatch = false
				}
			}

			now := time.Now()
			for name, at := range self {
				if now.Sub(at) > selfWindow {
					delete(self, name)
				}
			}
			for name, at := range pending {
				if now.Sub(at) < w.cfg.Debounce {
					continue
				}
				delete(pending, name)
				if markedAt, ok := self[name]; ok && now.Sub(markedAt) <= selfWindow {
					continue
				}
				if now.Sub(lastReset) <= selfWindow {
					continue
				}
				w.publishExternal(ctx, name)
			}
		}
	}
}

func (w *Watcher) publishExternal(ctx context.Context, name string) {
	err := w.bus.Publish(ctx, events.Event{
		Project: w.cfg.ProjectID,
		Op:      events.OpExternal,
		Name:    name,
	})
	if err != nil {
		w.logger.Warn("failed to publish external change event",
			zap.String("project", w.cfg.ProjectID),
			zap.String("name", name),
			zap.Error(err))
		return
	}
	w.logger.Debug("external change detected",
		zap.String("project", w.cfg.ProjectID),
		zap.String("name", name))
}
