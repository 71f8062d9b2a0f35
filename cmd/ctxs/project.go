package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	// project command flags
	projName       string
	projOutputJSON bool
)

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRemoveCmd)

	projectCmd.PersistentFlags().BoolVar(&projOutputJSON, "json", false, "Output results as JSON")

	// Add-specific flags
	projectAddCmd.Flags().StringVar(&projName, "name", "", "Project name (defaults to the path basename)")
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage registered projects",
	Long: `Manage the projects the daemon keeps context directories for.

Each registered project gets its own context directory under the daemon's
storage root; the project ID selects it in every other command.

Examples:
  # Register the current directory
  ctxs project add

  # Register another directory under a custom name
  ctxs project add /home/user/projects/webapp --name webapp

  # List registered projects
  ctxs project list

  # Remove a project and its context directory
  ctxs project remove 5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d`,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Long: `List all registered projects.

Examples:
  # List projects
  ctxs project list

  # Output as JSON
  ctxs project list --json`,
	RunE: runProjectList,
}

var projectAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a project directory",
	Long: `Register a project directory so it gets a context store.

The path defaults to the current directory.

Examples:
  # Register the current directory
  ctxs project add

  # Register a specific directory
  ctxs project add /home/user/projects/webapp

  # Register under a custom name
  ctxs project add /home/user/projects/webapp --name webapp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProjectAdd,
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show project details",
	Long: `Show a registered project's details, including the branch its
workspace has checked out when it is a Git repository.

Examples:
  # Show a project
  ctxs project show 5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectShow,
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <project-id>",
	Short: "Remove a project",
	Long: `Remove a project from the registry. The daemon deletes the
project's context directory when it created it.

Examples:
  # Remove a project
  ctxs project remove 5f0c2f6e-9d1a-4c3b-8a7e-2b1d0c9f8e7d`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectRemove,
}

// Project matches internal/project.Project's JSON shape. Branch is only
// present in the single-project response.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	ContextDir string    `json:"context_dir"`
	CreatedAt  time.Time `json:"created_at"`
	Branch     string    `json:"branch,omitempty"`
}

// ProjectListResponse matches internal/http/types.go ProjectListResponse
type ProjectListResponse struct {
	Projects []Project `json:"projects"`
}

// CreateProjectRequest matches internal/project.CreateParams
type CreateProjectRequest struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path"`
}

func runProjectList(cmd *cobra.Command, args []string) error {
	var listResp ProjectListResponse
	if err := apiRequest(http.MethodGet, projectsURL(), nil, &listResp); err != nil {
		return err
	}

	if projOutputJSON {
		return outputJSON(listResp.Projects)
	}

	if len(listResp.Projects) == 0 {
		fmt.Println("No projects registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPATH")
	for _, p := range listResp.Projects {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			p.ID,
			truncate(p.Name, 30),
			truncate(p.Path, 50),
		)
	}
	w.Flush()

	return nil
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		var err error
		path, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	req := CreateProjectRequest{
		Name: projName,
		Path: path,
	}

	var proj Project
	if err := apiRequest(http.MethodPost, projectsURL(), req, &proj); err != nil {
		return err
	}

	if projOutputJSON {
		return outputJSON(proj)
	}

	fmt.Printf("Project registered\n")
	fmt.Printf("ID: %s\n", proj.ID)
	fmt.Printf("Name: %s\n", proj.Name)
	fmt.Printf("Path: %s\n", proj.Path)
	fmt.Printf("Context Dir: %s\n", proj.ContextDir)

	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	var proj Project
	if err := apiRequest(http.MethodGet, projectURL(args[0]), nil, &proj); err != nil {
		return err
	}

	if projOutputJSON {
		return outputJSON(proj)
	}

	fmt.Printf("ID: %s\n", proj.ID)
	fmt.Printf("Name: %s\n", proj.Name)
	fmt.Printf("Path: %s\n", proj.Path)
	fmt.Printf("Context Dir: %s\n", proj.ContextDir)
	if proj.Branch != "" {
		fmt.Printf("Branch: %s\n", proj.Branch)
	}
	fmt.Printf("Created: %s\n", proj.CreatedAt.Format(time.RFC3339))

	return nil
}

func runProjectRemove(cmd *cobra.Command, args []string) error {
	if err := apiRequest(http.MethodDelete, projectURL(args[0]), nil, nil); err != nil {
		return err
	}

	fmt.Printf("Project %s removed\n", args[0])

	return nil
}
