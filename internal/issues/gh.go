package issues

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxstore/pkg/git"
)

// Provider fetches issues in one state for one GitHub repository.
type Provider interface {
	Fetch(ctx context.Context, remote *git.Remote, state string, limit int) ([]Issue, error)
}

// ghIssueFields is the field list requested from gh. Keep in sync with
// the ghIssue struct below.
const ghIssueFields = "number,title,state,author,createdAt,labels,url,body"

// GHProvider shells out to the GitHub CLI. It inherits whatever
// authentication gh itself is configured with.
type GHProvider struct {
	path   string
	logger *zap.Logger
}

// NewGHProvider creates a provider using the gh executable at path.
// An empty path resolves "gh" via PATH.
func NewGHProvider(path string, logger *zap.Logger) *GHProvider {
	if path == "" {
		path = "gh"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GHProvider{path: path, logger: logger}
}

// Fetch runs gh issue list and parses its JSON output.
func (p *GHProvider) Fetch(ctx context.Context, remote *git.Remote, state string, limit int) ([]Issue, error) {
	args := ghArgs(remote, state, limit)

	cmd := exec.CommandContext(ctx, p.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	p.logger.Debug("running gh", zap.Strings("args", args))

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: gh timed out", ErrFetchFailed)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: gh: %s", ErrFetchFailed, msg)
	}

	return decodeGHIssues(stdout.Bytes())
}

func ghArgs(remote *git.Remote, state string, limit int) []string {
	return []string{
		"issue", "list",
		"--repo", remote.Slug(),
		"--state", state,
		"--limit", strconv.Itoa(limit),
		"--json", ghIssueFields,
	}
}

// ghIssue mirrors the JSON gh emits for the requested fields.
type ghIssue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Labels    []struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"labels"`
	URL  string `json:"url"`
	Body string `json:"body"`
}

func decodeGHIssues(data []byte) ([]Issue, error) {
	var raw []ghIssue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: unexpected gh output: %v", ErrFetchFailed, err)
	}

	out := make([]Issue, 0, len(raw))
	for _, gi := range raw {
		issue := Issue{
			Number: gi.Number,
			Title:  gi.Title,
			// gh reports OPEN/CLOSED; normalize to the API's casing.
			State:     strings.ToLower(gi.State),
			Author:    gi.Author.Login,
			CreatedAt: gi.CreatedAt,
			URL:       gi.URL,
			Body:      gi.Body,
		}
		for _, l := range gi.Labels {
			issue.Labels = append(issue.Labels, Label{Name: l.Name, Color: l.Color})
		}
		out = append(out, issue)
	}
	return out, nil
}
