// Package git inspects a project's local Git repository.
//
// The context daemon uses it for two things: showing which branch a
// registered project has checked out, and detecting the GitHub remote
// that the issue lister fetches from. Both read local repository state
// only; nothing here talks to the network.
package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrNotGitRepo indicates the directory is not a Git repository
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrNoOrigin indicates the repository has no origin remote
	ErrNoOrigin = errors.New("no origin remote")

	// ErrNotGitHub indicates the origin remote does not point at GitHub
	ErrNotGitHub = errors.New("origin remote is not a GitHub repository")
)

// DetectBranch reports the branch a project directory has checked out.
//
// Returns:
//   - Branch name (e.g., "main", "feature/issue-lister")
//   - "detached" if HEAD points at a commit instead of a branch
//   - Error if the path is not a Git repository or HEAD is unreadable
//
// Example:
//
//	branch, err := DetectBranch("/path/to/project")
//	if err != nil {
//	    // Not a repo; omit branch from the project view.
//	}
func DetectBranch(projectPath string) (string, error) {
	repo, err := gogit.PlainOpen(projectPath)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", fmt.Errorf("%w: %s", ErrNotGitRepo, projectPath)
		}
		return "", fmt.Errorf("opening repository: %w", err)
	}

	// Resolve HEAD without following it so unborn branches (a fresh
	// init with no commits) still report their name.
	ref, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("reading HEAD: %w", err)
	}

	if ref.Type() == plumbing.SymbolicReference {
		if target := ref.Target(); target.IsBranch() {
			return target.Short(), nil
		}
	}
	return "detached", nil
}
