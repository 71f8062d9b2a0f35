package http

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/contextfile"
)

// storeFor resolves the context store for the :id path parameter.
func (s *Server) storeFor(c echo.Context) (contextfile.Store, error) {
	store, err := s.projects.StoreFor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, httpError(err)
	}
	return store, nil
}

// contextName extracts the context file name from the trailing wildcard.
// The segment may arrive escaped or already decoded depending on the client.
func contextName(c echo.Context) (string, error) {
	name := c.Param("*")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "context file name is required")
	}
	return name, nil
}

// handleListContext returns the project's context file names.
func (s *Server) handleListContext(c echo.Context) error {
	store, err := s.storeFor(c)
	if err != nil {
		return err
	}

	files, err := store.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ContextListResponse{Files: files})
}

// handleReadContext returns a single context file with display hints.
func (s *Server) handleReadContext(c echo.Context) error {
	name, err := contextName(c)
	if err != nil {
		return err
	}

	store, err := s.storeFor(c)
	if err != nil {
		return err
	}

	file, err := store.Read(c.Request().Context(), name)
	if err != nil {
		return httpError(err)
	}

	class := contextfile.Classify(file.Name)
	return c.JSON(http.StatusOK, ContextFileResponse{
		Name:    file.Name,
		Kind:    string(file.Kind),
		Class:   string(class),
		Display: string(contextfile.DefaultDisplayMode(class)),
		Content: file.Content,
	})
}

// handleWriteContext creates or overwrites a context file.
func (s *Server) handleWriteContext(c echo.Context) error {
	name, err := contextName(c)
	if err != nil {
		return err
	}

	var req WriteContextRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid write context request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	kind := contextfile.Kind(req.Kind)
	switch kind {
	case "", contextfile.KindText, contextfile.KindImage:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown kind %q", req.Kind))
	}

	store, err := s.storeFor(c)
	if err != nil {
		return err
	}

	if err := store.Write(c.Request().Context(), name, req.Content, kind); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleDeleteContext removes a context file.
func (s *Server) handleDeleteContext(c echo.Context) error {
	name, err := contextName(c)
	if err != nil {
		return err
	}

	store, err := s.storeFor(c)
	if err != nil {
		return err
	}

	if err := store.Delete(c.Request().Context(), name); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleResetContext removes every context file in the project.
func (s *Server) handleResetContext(c echo.Context) error {
	store, err := s.storeFor(c)
	if err != nil {
		return err
	}

	if err := store.Reset(c.Request().Context()); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// handleDropContext writes a dropped payload immediately, encoding images
// as data URLs.
func (s *Server) handleDropContext(c echo.Context) error {
	var req DropContextRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid drop context request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name field is required")
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "data field must be standard base64")
	}

	store, err := s.storeFor(c)
	if err != nil {
		return err
	}

	ingestor, err := contextfile.NewIngestor(store, s.logger)
	if err != nil {
		return httpError(err)
	}

	item := contextfile.DroppedItem{Name: req.Name, Data: data, MIME: req.MIME}
	if err := ingestor.Drop(c.Request().Context(), item); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, DropContextResponse{Name: req.Name})
}
