// Package issues lists GitHub issues for registered projects.
//
// A project maps to a repository through its origin remote. Listing
// resolves the remote first and reports a missing or non-GitHub remote
// as ErrNoRemote without ever contacting a provider. Fetched issues are
// read-only; nothing here creates, edits, or closes anything.
package issues

import (
	"errors"
	"fmt"
	"time"
)

// Issue states as reported by providers.
const (
	StateOpen   = "open"
	StateClosed = "closed"
)

var (
	// ErrNoRemote indicates the project has no usable GitHub remote.
	ErrNoRemote = errors.New("no remote configured")

	// ErrFetchFailed indicates the provider call or its output was bad.
	ErrFetchFailed = errors.New("failed to fetch issues")
)

// Issue is one tracker item in list form.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Labels    []Label   `json:"labels,omitempty"`
	URL       string    `json:"url"`
	Body      string    `json:"body,omitempty"`
}

// Label is a repository label attached to an issue.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// View selects which issues a listing returns.
type View string

const (
	// ViewOpen lists open issues only.
	ViewOpen View = "open"
	// ViewClosed lists closed issues only.
	ViewClosed View = "closed"
	// ViewAll lists open issues first, then closed.
	ViewAll View = "all"
)

// ParseView maps a request parameter to a View. The empty string selects
// the combined view.
func ParseView(s string) (View, error) {
	switch s {
	case "open":
		return ViewOpen, nil
	case "closed":
		return ViewClosed, nil
	case "", "all":
		return ViewAll, nil
	default:
		return "", fmt.Errorf("unknown view: %q (must be open, closed, or all)", s)
	}
}
