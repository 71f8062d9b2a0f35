package git

import (
	"errors"
	"fmt"
	"regexp"

	gogit "github.com/go-git/go-git/v5"
)

// Remote identifies the GitHub repository behind a project's origin remote.
type Remote struct {
	// Owner is the GitHub user or organization.
	Owner string

	// Repo is the repository name without the .git suffix.
	Repo string

	// URL is the raw remote URL as configured.
	URL string
}

// Slug returns the owner/repo form used by the GitHub API and the gh CLI.
func (r *Remote) Slug() string {
	return r.Owner + "/" + r.Repo
}

// GitHub remote URL forms:
//
//	git@github.com:owner/repo.git
//	ssh://git@github.com/owner/repo.git
//	https://github.com/owner/repo.git
var (
	sshRemotePattern   = regexp.MustCompile(`^(?:ssh://)?git@github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`)
	httpsRemotePattern = regexp.MustCompile(`^https?://(?:[^@/]+@)?github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
)

// DetectRemote resolves a project directory to its GitHub remote.
//
// It opens the local repository, reads the origin remote, and parses the
// first configured URL. All failure modes (not a repo, no origin, origin
// not on GitHub) return a sentinel error so callers can report "no remote
// configured" without ever attempting a fetch.
func DetectRemote(projectPath string) (*Remote, error) {
	repo, err := gogit.PlainOpen(projectPath)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotGitRepo, projectPath)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoOrigin, projectPath)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoOrigin, projectPath)
	}

	owner, name, ok := ParseGitHubRemote(urls[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGitHub, urls[0])
	}
	return &Remote{Owner: owner, Repo: name, URL: urls[0]}, nil
}

// ParseGitHubRemote extracts owner and repository from a GitHub remote URL.
// Supports SSH and HTTPS forms; returns ok=false for anything else.
func ParseGitHubRemote(url string) (owner, repo string, ok bool) {
	if m := sshRemotePattern.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], true
	}
	if m := httpsRemotePattern.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], true
	}
	return "", "", false
}
