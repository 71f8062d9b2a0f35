package project

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Registry errors.
var (
	// ErrProjectNotFound indicates the requested project does not exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectExists indicates a project is already registered for the path.
	ErrProjectExists = errors.New("project already registered")

	// ErrInvalidProjectPath indicates the workspace path failed validation.
	ErrInvalidProjectPath = errors.New("invalid project path")

	// ErrEmptyProjectID indicates an empty project ID was provided.
	ErrEmptyProjectID = errors.New("project ID cannot be empty")

	// ErrInvalidProjectID indicates the project ID is not a valid UUID.
	ErrInvalidProjectID = errors.New("project ID must be a valid UUID")

	// ErrEmptyProjectName indicates an empty project name was provided.
	ErrEmptyProjectName = errors.New("project name cannot be empty")

	// ErrEmptyProjectPath indicates an empty project path was provided.
	ErrEmptyProjectPath = errors.New("project path cannot be empty")
)

// Project is a registered workspace with its own context directory.
type Project struct {
	// ID is the project's unique identifier (UUID).
	ID string `json:"id" toml:"id"`

	// Name is the display name, defaulted from the path's base name.
	Name string `json:"name" toml:"name"`

	// Path is the absolute workspace path.
	Path string `json:"path" toml:"path"`

	// ContextDir is the absolute directory holding the project's context files.
	ContextDir string `json:"context_dir" toml:"context_dir"`

	// CreatedAt is when the project was registered.
	CreatedAt time.Time `json:"created_at" toml:"created_at"`

	// UpdatedAt is when the project was last modified.
	UpdatedAt time.Time `json:"updated_at" toml:"updated_at"`
}

// NewProject creates a project with a generated ID and timestamps.
// The context directory is assigned by the Manager on registration.
func NewProject(name, path string) (*Project, error) {
	if name == "" {
		return nil, ErrEmptyProjectName
	}
	if path == "" {
		return nil, ErrEmptyProjectPath
	}

	now := time.Now().UTC()
	return &Project{
		ID:        uuid.New().String(),
		Name:      name,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Validate checks that the project has a well-formed identity.
func (p *Project) Validate() error {
	if p.ID == "" {
		return ErrEmptyProjectID
	}
	if _, err := uuid.Parse(p.ID); err != nil {
		return ErrInvalidProjectID
	}
	if p.Name == "" {
		return ErrEmptyProjectName
	}
	if p.Path == "" {
		return ErrEmptyProjectPath
	}
	return nil
}
