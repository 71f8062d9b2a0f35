// Package http provides the HTTP API for ctxstored.
package http

import (
	"github.com/fyrsmithlabs/ctxstore/internal/issues"
	"github.com/fyrsmithlabs/ctxstore/internal/project"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Projects int    `json:"projects"`
}

// ProjectListResponse is the response body for GET /api/v1/projects.
type ProjectListResponse struct {
	Projects []*project.Project `json:"projects"`
}

// ProjectResponse is the response body for GET /api/v1/projects/:id.
// Branch is the workspace's checked-out branch, omitted when the
// workspace is not a Git repository.
type ProjectResponse struct {
	*project.Project
	Branch string `json:"branch,omitempty"`
}

// ContextListResponse is the response body for GET /api/v1/projects/:id/context.
type ContextListResponse struct {
	Files []string `json:"files"`
}

// ContextFileResponse is the response body for reading a context file.
// Class and Display tell clients how to render the content.
type ContextFileResponse struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Class   string `json:"class"`
	Display string `json:"display"`
	Content string `json:"content"`
}

// WriteContextRequest is the request body for PUT /api/v1/projects/:id/context/*.
// Kind is optional; when empty it is derived from the name and content.
type WriteContextRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

// DropContextRequest is the request body for POST /api/v1/projects/:id/context/drop.
// Data carries the dropped payload as standard base64.
type DropContextRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
	MIME string `json:"mime"`
}

// DropContextResponse is the response body for POST /api/v1/projects/:id/context/drop.
type DropContextResponse struct {
	Name string `json:"name"`
}

// IssueListResponse is the response body for GET /api/v1/projects/:id/issues.
type IssueListResponse struct {
	Issues []issues.Issue `json:"issues"`
}
