// Package events distributes context change notifications over NATS.
//
// Every successful store mutation and every externally observed file
// change becomes an Event on the subject context.<project-id>.events.
// Subscribers (the SSE endpoint, mostly) receive a typed channel. The
// bus either embeds a NATS server in-process or connects to an external
// one; the store contract stays synchronous either way.
package events

import (
	"fmt"
	"time"
)

// Change operations beyond the store's own write/delete/reset.
const (
	// OpExternal marks a change made outside the daemon, observed by the
	// directory watcher.
	OpExternal = "external"
)

// Event describes one change to a project's context directory.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Project is the owning project's ID.
	Project string `json:"project"`

	// Op is one of write, delete, reset, external.
	Op string `json:"op"`

	// Name is the affected context file, empty for reset.
	Name string `json:"name,omitempty"`

	// At is when the event was published.
	At time.Time `json:"at"`
}

// Subject returns the NATS subject carrying a project's change events.
// Project IDs are UUIDs, which are always subject-safe; display names
// are not (spaces and dots break subject tokens).
func Subject(projectID string) string {
	return fmt.Sprintf("context.%s.events", projectID)
}
