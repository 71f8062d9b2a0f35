package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// heartbeatInterval keeps idle SSE connections alive through proxies.
const heartbeatInterval = 30 * time.Second

// handleContextEvents streams context change events via Server-Sent Events.
//
// The handler subscribes to the project's change subject and streams each
// event until the client disconnects.
//
// Example:
//
//	GET /api/v1/projects/{id}/context/events
//
//	event: write
//	data: {"id":"…","project":"…","op":"write","name":"notes.md","at":"…"}
//
//	event: external
//	data: {"id":"…","project":"…","op":"external","name":"todo.md","at":"…"}
func (s *Server) handleContextEvents(c echo.Context) error {
	projectID := c.Param("id")
	if _, err := s.projects.Get(c.Request().Context(), projectID); err != nil {
		return httpError(err)
	}

	if s.bus == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "event stream is disabled")
	}

	stream, cancel, err := s.bus.Subscribe(projectID)
	if err != nil {
		s.logger.Error("failed to subscribe to change events",
			zap.String("project_id", projectID),
			zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to subscribe to events")
	}
	defer cancel()

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Flush headers so clients see the stream before the first event.
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	// Heartbeat ticker to prevent proxy timeouts
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return nil
			}

			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("failed to encode change event", zap.Error(err))
				continue
			}

			fmt.Fprintf(c.Response(), "event: %s\n", event.Op)
			fmt.Fprintf(c.Response(), "data: %s\n\n", data)
			c.Response().Flush()

		case <-ticker.C:
			// Send heartbeat to keep connection alive
			fmt.Fprintf(c.Response(), ": heartbeat\n\n")
			c.Response().Flush()

		case <-c.Request().Context().Done():
			// Client disconnected
			return nil
		}
	}
}
