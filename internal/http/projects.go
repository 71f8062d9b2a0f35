package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/internal/project"
	"github.com/fyrsmithlabs/ctxstore/pkg/git"
)

// handleListProjects returns all registered projects.
func (s *Server) handleListProjects(c echo.Context) error {
	projects, err := s.projects.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ProjectListResponse{Projects: projects})
}

// handleCreateProject registers a new project.
func (s *Server) handleCreateProject(c echo.Context) error {
	var params project.CreateParams
	if err := c.Bind(&params); err != nil {
		s.logger.Warn("invalid create project request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if params.Path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path field is required")
	}

	proj, err := s.projects.Create(c.Request().Context(), params)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, proj)
}

// handleGetProject returns a single project by ID, with the workspace's
// current branch when the path is a Git repository.
func (s *Server) handleGetProject(c echo.Context) error {
	proj, err := s.projects.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	resp := ProjectResponse{Project: proj}
	if branch, err := git.DetectBranch(proj.Path); err == nil {
		resp.Branch = branch
	}
	return c.JSON(http.StatusOK, resp)
}

// handleDeleteProject removes a project and its context directory.
func (s *Server) handleDeleteProject(c echo.Context) error {
	if err := s.projects.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
