package events

import (
	"context"

	"go.uber.org/zap"
)

// ProjectPublisher binds the bus to one project so it can serve as the
// store's change callback. Publish failures are logged, never surfaced,
// so a broken bus cannot fail a write that already hit disk.
type ProjectPublisher struct {
	bus       *Bus
	projectID string
	logger    *zap.Logger
}

// NewProjectPublisher creates a publisher for projectID. A nil bus
// yields a publisher that silently drops everything.
func NewProjectPublisher(bus *Bus, projectID string, logger *zap.Logger) *ProjectPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectPublisher{bus: bus, projectID: projectID, logger: logger}
}

// PublishChange emits one change event for the bound project.
func (p *ProjectPublisher) PublishChange(ctx context.Context, op, name string) {
	if p == nil || p.bus == nil {
		return
	}
	err := p.bus.Publish(ctx, Event{
		Project: p.projectID,
		Op:      op,
		Name:    name,
	})
	if err != nil {
		p.logger.Warn("failed to publish change event",
			zap.String("project", p.projectID),
			zap.String("op", op),
			zap.String("name", name),
			zap.Error(err))
	}
}
