package project

import (
	"fmt"

	"github.com/fyrsmithlabs/ctxstore/internal/sanitize"
)

// ContextDirName derives the directory name for a project's context files
// under the storage root.
//
// Format: {sanitized_name}_{short_id}
// Example: ContextDirName("My Project", "5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d")
//
//	-> "my_project_5f0c2f6e"
//
// The result is stable for a given project and is always a valid single
// path element, so display names with spaces or punctuation never leak
// into the filesystem layout.
func ContextDirName(name, id string) (string, error) {
	if id == "" {
		return "", ErrEmptyProjectID
	}

	dir := sanitize.DirName(name, id)
	if err := sanitize.ValidateDirName(dir); err != nil {
		return "", fmt.Errorf("derived context dir name %q: %w", dir, err)
	}
	return dir, nil
}
