package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/ctxstore/internal/contextfile"
	"github.com/fyrsmithlabs/ctxstore/internal/issues"
	"github.com/fyrsmithlabs/ctxstore/internal/project"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() error {
	// Context file tools
	s.registerContextTools()

	// Project registry tools
	s.registerProjectTools()

	// Issue listing tools
	s.registerIssueTools()

	return nil
}

// ===== CONTEXT FILE TOOLS =====

type contextListInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project ID"`
}

type contextListOutput struct {
	Files []string `json:"files" jsonschema:"Context file names in lexicographic order"`
	Count int      `json:"count" jsonschema:"Number of files"`
}

type contextReadInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project ID"`
	Name      string `json:"name" jsonschema:"required,Context file name"`
}

type contextReadOutput struct {
	Name    string `json:"name" jsonschema:"Context file name"`
	Kind    string `json:"kind" jsonschema:"Content kind (text or image)"`
	Class   string `json:"class" jsonschema:"Render class (markdown, image, or plaintext)"`
	Display string `json:"display" jsonschema:"Default display mode (preview or edit)"`
	Content string `json:"content" jsonschema:"File content; images are data URLs"`
}

type contextWriteInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project ID"`
	Name      string `json:"name" jsonschema:"required,Context file name"`
	Content   string `json:"content" jsonschema:"File content; images as data URLs"`
	Kind      string `json:"kind,omitempty" jsonschema:"Content kind (text or image); derived from the content when empty"`
}

type contextWriteOutput struct {
	Name string `json:"name" jsonschema:"Context file name"`
}

type contextDeleteInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project ID"`
	Name      string `json:"name" jsonschema:"required,Context file name"`
}

type contextDeleteOutput struct {
	Name string `json:"name" jsonschema:"Deleted file name"`
}

type contextResetInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project ID"`
}

type contextResetOutput struct {
	Removed int `json:"removed" jsonschema:"Number of files removed"`
}

func (s *Server) registerContextTools() {
	// context_list
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_list",
		Description: "List context file names for a project",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contextListInput) (*mcp.CallToolResult, contextListOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "context_list")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "context_list")
			s.metrics.RecordInvocation(ctx, "context_list", time.Since(start), toolErr)
		}()

		store, err := s.projects.StoreFor(ctx, args.ProjectID)
		if err != nil {
			toolErr = err
			return nil, contextListOutput{}, err
		}

		files, err := store.List(ctx)
		if err != nil {
			toolErr = fmt.Errorf("context list failed: %w", err)
			return nil, contextListOutput{}, toolErr
		}
		if files == nil {
			files = []string{}
		}

		output := contextListOutput{
			Files: files,
			Count: len(files),
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d context files", output.Count)},
			},
		}, output, nil
	})

	// context_read
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_read",
		Description: "Read a context file with its render class and default display mode",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contextReadInput) (*mcp.CallToolResult, contextReadOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "context_read")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "context_read")
			s.metrics.RecordInvocation(ctx, "context_read", time.Since(start), toolErr)
		}()

		store, err := s.projects.StoreFor(ctx, args.ProjectID)
		if err != nil {
			toolErr = err
			return nil, contextReadOutput{}, err
		}

		file, err := store.Read(ctx, args.Name)
		if err != nil {
			toolErr = fmt.Errorf("context read failed: %w", err)
			return nil, contextReadOutput{}, toolErr
		}

		class := contextfile.Classify(file.Name)
		output := contextReadOutput{
			Name:    file.Name,
			Kind:    string(file.Kind),
			Class:   string(class),
			Display: string(contextfile.DefaultDisplayMode(class)),
			Content: file.Content,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Read %s (%d bytes)", file.Name, len(file.Content))},
			},
		}, output, nil
	})

	// context_write
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_write",
		Description: "Write a context file, overwriting any existing file with the same name",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contextWriteInput) (*mcp.CallToolResult, contextWriteOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "context_write")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "context_write")
			s.metrics.RecordInvocation(ctx, "context_write", time.Since(start), toolErr)
		}()

		kind := contextfile.Kind(args.Kind)
		switch kind {
		case "", contextfile.KindText, contextfile.KindImage:
		default:
			toolErr = fmt.Errorf("unknown kind %q", args.Kind)
			return nil, contextWriteOutput{}, toolErr
		}

		store, err := s.projects.StoreFor(ctx, args.ProjectID)
		if err != nil {
			toolErr = err
			return nil, contextWriteOutput{}, err
		}

		if err := store.Write(ctx, args.Name, args.Content, kind); err != nil {
			toolErr = fmt.Errorf("context write failed: %w", err)
			return nil, contextWriteOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Wrote %s", args.Name)},
			},
		}, contextWriteOutput{Name: args.Name}, nil
	})

	// context_delete
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_delete",
		Description: "Delete a context file",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contextDeleteInput) (*mcp.CallToolResult, contextDeleteOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "context_delete")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "context_delete")
			s.metrics.RecordInvocation(ctx, "context_delete", time.Since(start), toolErr)
		}()

		store, err := s.projects.StoreFor(ctx, args.ProjectID)
		if err != nil {
			toolErr = err
			return nil, contextDeleteOutput{}, err
		}

		if err := store.Delete(ctx, args.Name); err != nil {
			toolErr = fmt.Errorf("context delete failed: %w", err)
			return nil, contextDeleteOutput{}, toolErr
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Deleted %s", args.Name)},
			},
		}, contextDeleteOutput{Name: args.Name}, nil
	})

	// context_reset
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "context_reset",
		Description: "Remove every context file for a project",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args contextResetInput) (*mcp.CallToolResult, contextResetOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "context_reset")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "context_reset")
			s.metrics.RecordInvocation(ctx, "context_reset", time.Since(start), toolErr)
		}()

		store, err := s.projects.StoreFor(ctx, args.ProjectID)
		if err != nil {
			toolErr = err
			return nil, contextResetOutput{}, err
		}

		files, err := store.List(ctx)
		if err != nil {
			toolErr = fmt.Errorf("context reset failed: %w", err)
			return nil, contextResetOutput{}, toolErr
		}

		if err := store.Reset(ctx); err != nil {
			toolErr = fmt.Errorf("context reset failed: %w", err)
			return nil, contextResetOutput{}, toolErr
		}

		output := contextResetOutput{Removed: len(files)}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Removed %d context files", output.Removed)},
			},
		}, output, nil
	})
}

// ===== PROJECT REGISTRY TOOLS =====

type projectListInput struct{}

type projectListOutput struct {
	Projects []map[string]interface{} `json:"projects" jsonschema:"Registered projects"`
	Count    int                      `json:"count" jsonschema:"Number of projects"`
}

type projectCreateInput struct {
	Name string `json:"name,omitempty" jsonschema:"Project name; defaults to the path basename"`
	Path string `json:"path" jsonschema:"required,Absolute project directory path"`
}

type projectCreateOutput struct {
	ID         string `json:"id" jsonschema:"Project ID"`
	Name       string `json:"name" jsonschema:"Project name"`
	Path       string `json:"path" jsonschema:"Project directory path"`
	ContextDir string `json:"context_dir" jsonschema:"Context storage directory"`
}

func (s *Server) registerProjectTools() {
	// project_list
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_list",
		Description: "List registered projects",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args projectListInput) (*mcp.CallToolResult, projectListOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "project_list")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "project_list")
			s.metrics.RecordInvocation(ctx, "project_list", time.Since(start), toolErr)
		}()

		projects, err := s.projects.List(ctx)
		if err != nil {
			toolErr = fmt.Errorf("project list failed: %w", err)
			return nil, projectListOutput{}, toolErr
		}

		results := make([]map[string]interface{}, 0, len(projects))
		for _, p := range projects {
			results = append(results, map[string]interface{}{
				"id":          p.ID,
				"name":        p.Name,
				"path":        p.Path,
				"context_dir": p.ContextDir,
				"created_at":  p.CreatedAt,
			})
		}

		output := projectListOutput{
			Projects: results,
			Count:    len(results),
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d projects", output.Count)},
			},
		}, output, nil
	})

	// project_create
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project_create",
		Description: "Register a project directory so it gets a context store",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args projectCreateInput) (*mcp.CallToolResult, projectCreateOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "project_create")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "project_create")
			s.metrics.RecordInvocation(ctx, "project_create", time.Since(start), toolErr)
		}()

		proj, err := s.projects.Create(ctx, project.CreateParams{
			Name: args.Name,
			Path: args.Path,
		})
		if err != nil {
			toolErr = fmt.Errorf("project create failed: %w", err)
			return nil, projectCreateOutput{}, toolErr
		}

		output := projectCreateOutput{
			ID:         proj.ID,
			Name:       proj.Name,
			Path:       proj.Path,
			ContextDir: proj.ContextDir,
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Registered project %s: %s", output.Name, output.ID)},
			},
		}, output, nil
	})
}

// ===== ISSUE TOOLS =====

type issuesListInput struct {
	ProjectID string `json:"project_id" jsonschema:"required,Project ID"`
	View      string `json:"view,omitempty" jsonschema:"Issue view (open, closed, or all); defaults to all"`
}

type issuesListOutput struct {
	Issues []map[string]interface{} `json:"issues" jsonschema:"Issues in view order"`
	Count  int                      `json:"count" jsonschema:"Number of issues returned"`
}

func (s *Server) registerIssueTools() {
	// issues_list
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "issues_list",
		Description: "List GitHub issues for the repository behind a project's origin remote",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args issuesListInput) (*mcp.CallToolResult, issuesListOutput, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, "issues_list")
		var toolErr error
		defer func() {
			s.metrics.DecrementActive(ctx, "issues_list")
			s.metrics.RecordInvocation(ctx, "issues_list", time.Since(start), toolErr)
		}()

		view, err := issues.ParseView(args.View)
		if err != nil {
			toolErr = err
			return nil, issuesListOutput{}, err
		}

		proj, err := s.projects.Get(ctx, args.ProjectID)
		if err != nil {
			toolErr = err
			return nil, issuesListOutput{}, err
		}

		list, err := s.issues.List(ctx, proj.Path, view)
		if err != nil {
			toolErr = fmt.Errorf("issue list failed: %w", err)
			return nil, issuesListOutput{}, toolErr
		}

		results := make([]map[string]interface{}, 0, len(list))
		for _, issue := range list {
			results = append(results, map[string]interface{}{
				"number":     issue.Number,
				"title":      issue.Title,
				"state":      issue.State,
				"author":     issue.Author,
				"created_at": issue.CreatedAt,
				"url":        issue.URL,
			})
		}

		output := issuesListOutput{
			Issues: results,
			Count:  len(results),
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Found %d issues", output.Count)},
			},
		}, output, nil
	})
}
