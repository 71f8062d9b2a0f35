package issues

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/ctxstore/internal/config"
	"github.com/fyrsmithlabs/ctxstore/pkg/git"
)

const (
	// GitHub's secondary limits trip on bursts, not sustained volume.
	apiRateLimit = 1.0
	apiBurst     = 5

	apiPageSize = 100
)

// APIProvider fetches issues through the GitHub REST API.
type APIProvider struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewAPIProvider creates a provider backed by go-github. The token is
// optional; an unauthenticated client works for public repositories
// within GitHub's tighter anonymous limits.
func NewAPIProvider(ctx context.Context, token config.Secret) *APIProvider {
	var client *github.Client
	if token.IsSet() {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.Value()})
		client = github.NewClient(oauth2.NewClient(ctx, ts))
	} else {
		client = github.NewClient(nil)
	}
	return &APIProvider{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(apiRateLimit), apiBurst),
	}
}

// Fetch lists issues via Issues.ListByRepo, following pagination until
// limit items are collected. GitHub's issues endpoint interleaves pull
// requests; those are skipped and do not count against the limit.
func (p *APIProvider) Fetch(ctx context.Context, remote *git.Remote, state string, limit int) ([]Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State: state,
		ListOptions: github.ListOptions{
			PerPage: min(limit, apiPageSize),
		},
	}

	var out []Issue
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		ghIssues, resp, err := p.client.Issues.ListByRepo(ctx, remote.Owner, remote.Repo, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
		}

		for _, gi := range ghIssues {
			if gi.IsPullRequest() {
				continue
			}
			out = append(out, convertAPIIssue(gi))
			if len(out) >= limit {
				return out, nil
			}
		}

		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func convertAPIIssue(gi *github.Issue) Issue {
	issue := Issue{
		Number:    gi.GetNumber(),
		Title:     gi.GetTitle(),
		State:     gi.GetState(),
		Author:    gi.GetUser().GetLogin(),
		CreatedAt: gi.GetCreatedAt().Time,
		URL:       gi.GetHTMLURL(),
		Body:      gi.GetBody(),
	}
	for _, l := range gi.Labels {
		issue.Labels = append(issue.Labels, Label{Name: l.GetName(), Color: l.GetColor()})
	}
	return issue
}
