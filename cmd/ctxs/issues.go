package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	// issues command flags
	issProjectID  string
	issView       string
	issOutputJSON bool
)

func init() {
	rootCmd.AddCommand(issuesCmd)
	issuesCmd.AddCommand(issuesListCmd)

	issuesCmd.PersistentFlags().StringVar(&issProjectID, "project", "", "Project ID (required)")
	issuesCmd.PersistentFlags().BoolVar(&issOutputJSON, "json", false, "Output results as JSON")

	// List-specific flags
	issuesListCmd.Flags().StringVar(&issView, "view", "all", "Issue view: open, closed, or all")
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List tracker issues for a project",
	Long: `List GitHub issues for the repository behind a project's origin
remote.

The listing is read-only and capped: up to 100 open and 50 closed issues.
A project without a usable GitHub remote reports "no remote configured".

Examples:
  # Open and closed issues together
  ctxs issues list --project <id>

  # Open issues only
  ctxs issues list --project <id> --view open`,
}

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Long: `List issues in the selected view. The combined view shows open
issues first, then closed.

Examples:
  # Combined view
  ctxs issues list --project <id>

  # Closed issues only
  ctxs issues list --project <id> --view closed

  # Output as JSON
  ctxs issues list --project <id> --json`,
	RunE: runIssuesList,
}

// Issue matches internal/issues.Issue's JSON shape.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	URL       string    `json:"url"`
}

// IssueListResponse matches internal/http/types.go IssueListResponse
type IssueListResponse struct {
	Issues []Issue `json:"issues"`
}

func runIssuesList(cmd *cobra.Command, args []string) error {
	if issProjectID == "" {
		return fmt.Errorf("--project is required")
	}

	requestURL := projectURL(issProjectID) + "/issues?view=" + url.QueryEscape(issView)

	var listResp IssueListResponse
	if err := apiRequest(http.MethodGet, requestURL, nil, &listResp); err != nil {
		return err
	}

	if issOutputJSON {
		return outputJSON(listResp.Issues)
	}

	if len(listResp.Issues) == 0 {
		fmt.Println("No issues found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tSTATE\tTITLE\tAUTHOR\tCREATED")
	for _, issue := range listResp.Issues {
		fmt.Fprintf(w, "#%d\t%s\t%s\t%s\t%s\n",
			issue.Number,
			issue.State,
			truncate(issue.Title, 60),
			truncate(issue.Author, 20),
			issue.CreatedAt.Format("2006-01-02"),
		)
	}
	w.Flush()

	return nil
}
