package events

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startTestNATSServer starts a standalone NATS server for external-URL tests.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func newEmbeddedBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus(&Config{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { bus.Close() })
	return bus
}

// receiveEvent waits for one event with a deadline.
func receiveEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "context.abc-123.events", Subject("abc-123"))
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := newEmbeddedBus(t)
	ctx := context.Background()

	ch, cancel, err := bus.Subscribe("proj-a")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(ctx, Event{Project: "proj-a", Op: "write", Name: "notes.md"}))
	require.NoError(t, bus.Publish(ctx, Event{Project: "proj-b", Op: "write", Name: "other.md"}))
	require.NoError(t, bus.Publish(ctx, Event{Project: "proj-a", Op: "delete", Name: "notes.md"}))

	first := receiveEvent(t, ch)
	assert.Equal(t, "proj-a", first.Project)
	assert.Equal(t, "write", first.Op)
	assert.Equal(t, "notes.md", first.Name)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.At.IsZero())

	second := receiveEvent(t, ch)
	assert.Equal(t, "delete", second.Op)

	// proj-b's event never shows up on proj-a's subscription.
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_PublishValidation(t *testing.T) {
	bus := newEmbeddedBus(t)

	err := bus.Publish(context.Background(), Event{Op: "write", Name: "x.md"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project is required")
}

func TestBus_SubscribeCancel(t *testing.T) {
	bus := newEmbeddedBus(t)

	ch, cancel, err := bus.Subscribe("proj-a")
	require.NoError(t, err)

	cancel()
	cancel() // safe to call twice

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestBus_DropsMalformedEvents(t *testing.T) {
	bus := newEmbeddedBus(t)
	ctx := context.Background()

	ch, cancel, err := bus.Subscribe("proj-a")
	require.NoError(t, err)
	defer cancel()

	// Raw garbage on the subject is dropped, not delivered and not fatal.
	require.NoError(t, bus.nc.Publish(Subject("proj-a"), []byte("{not json")))
	require.NoError(t, bus.Publish(ctx, Event{Project: "proj-a", Op: "write", Name: "ok.md"}))

	ev := receiveEvent(t, ch)
	assert.Equal(t, "ok.md", ev.Name)
}

func TestBus_ExternalServer(t *testing.T) {
	server := startTestNATSServer(t)

	bus, err := NewBus(&Config{URL: server.ClientURL()}, zap.NewNop())
	require.NoError(t, err)
	defer bus.Close()

	// No embedded server in external mode.
	assert.Nil(t, bus.srv)

	ch, cancel, err := bus.Subscribe("proj-x")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, bus.Publish(context.Background(), Event{Project: "proj-x", Op: "reset"}))
	ev := receiveEvent(t, ch)
	assert.Equal(t, "reset", ev.Op)
}

func TestBus_Closed(t *testing.T) {
	bus, err := NewBus(&Config{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	err = bus.Publish(context.Background(), Event{Project: "p", Op: "write"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus is closed")

	_, _, err = bus.Subscribe("p")
	require.Error(t, err)
}
