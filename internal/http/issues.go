package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/ctxstore/internal/issues"
)

// handleListIssues lists issues for the project's origin repository.
func (s *Server) handleListIssues(c echo.Context) error {
	ctx := c.Request().Context()

	proj, err := s.projects.Get(ctx, c.Param("id"))
	if err != nil {
		return httpError(err)
	}

	view, err := issues.ParseView(c.QueryParam("view"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	list, err := s.issues.List(ctx, proj.Path, view)
	if err != nil {
		return httpError(err)
	}
	if list == nil {
		list = []issues.Issue{}
	}
	return c.JSON(http.StatusOK, IssueListResponse{Issues: list})
}
