package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/ctxstore/internal/events"

const (
	embeddedReadyTimeout = 5 * time.Second
	subscribeBuffer      = 64
)

// Config holds bus configuration.
type Config struct {
	// URL points at an external NATS server. Empty embeds one in-process.
	URL string
}

// Bus publishes and subscribes to context change events.
type Bus struct {
	nc     *nats.Conn
	srv    *natsserver.Server
	logger *zap.Logger

	// Telemetry
	tracer         trace.Tracer
	meter          metric.Meter
	publishCounter metric.Int64Counter

	mu     sync.RWMutex
	closed bool
}

// NewBus connects to NATS. With an empty URL it starts an embedded
// server on a random loopback port and connects to that; Close shuts
// the embedded server down again.
func NewBus(cfg *Config, logger *zap.Logger) (*Bus, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	url := cfg.URL
	var srv *natsserver.Server
	if url == "" {
		opts := &natsserver.Options{
			Host:   "127.0.0.1",
			Port:   -1,
			NoLog:  true,
			NoSigs: true,
		}
		var err error
		srv, err = natsserver.NewServer(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
		}
		go srv.Start()
		if !srv.ReadyForConnections(embeddedReadyTimeout) {
			srv.Shutdown()
			return nil, fmt.Errorf("embedded NATS server not ready after %v", embeddedReadyTimeout)
		}
		url = srv.ClientURL()
		logger.Info("embedded NATS server started", zap.String("url", url))
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		if srv != nil {
			srv.Shutdown()
		}
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	b := &Bus{
		nc:     nc,
		srv:    srv,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	b.initMetrics()
	return b, nil
}

func (b *Bus) initMetrics() {
	var err error
	b.publishCounter, err = b.meter.Int64Counter("events.published",
		metric.WithDescription("Number of change events published"),
		metric.WithUnit("{event}"))
	if err != nil {
		b.logger.Warn("failed to create publish counter", zap.Error(err))
	}
}

// Publish sends one event. A zero ID or timestamp is filled in.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	ctx, span := b.tracer.Start(ctx, "events.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("project", event.Project),
		attribute.String("op", event.Op),
	)

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	if event.Project == "" {
		return fmt.Errorf("event project is required")
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.nc.Publish(Subject(event.Project), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if b.publishCounter != nil {
		b.publishCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", event.Op),
		))
	}
	return nil
}

// Subscribe returns a channel of one project's events plus a cancel
// function. Cancel unsubscribes and closes the channel; callers must
// always invoke it.
func (b *Bus) Subscribe(projectID string) (<-chan Event, func(), error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, nil, fmt.Errorf("bus is closed")
	}
	b.mu.RUnlock()

	msgCh := make(chan *nats.Msg, subscribeBuffer)
	sub, err := b.nc.ChanSubscribe(Subject(projectID), msgCh)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	eventCh := make(chan Event, subscribeBuffer)
	done := make(chan struct{})

	go func() {
		defer close(eventCh)
		for {
			select {
			case msg := <-msgCh:
				var ev Event
				if err := json.Unmarshal(msg.Data, &ev); err != nil {
					b.logger.Warn("dropping malformed event",
						zap.String("subject", msg.Subject),
						zap.Error(err))
					continue
				}
				select {
				case eventCh <- ev:
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
		})
	}
	return eventCh, cancel, nil
}

// Close drops the NATS connection and stops the embedded server if one
// was started. Idempotent.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	b.nc.Close()
	if b.srv != nil {
		b.srv.Shutdown()
		b.srv.WaitForShutdown()
	}
	return nil
}
