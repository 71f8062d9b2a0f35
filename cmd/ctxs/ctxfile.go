package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var (
	// context command flags
	ctxProjectID  string
	ctxKind       string
	ctxDropName   string
	ctxOutputJSON bool
)

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.AddCommand(contextListCmd)
	contextCmd.AddCommand(contextReadCmd)
	contextCmd.AddCommand(contextWriteCmd)
	contextCmd.AddCommand(contextDeleteCmd)
	contextCmd.AddCommand(contextResetCmd)
	contextCmd.AddCommand(contextDropCmd)

	// Common flags for all context commands
	contextCmd.PersistentFlags().StringVar(&ctxProjectID, "project", "", "Project ID (required)")
	contextCmd.PersistentFlags().BoolVar(&ctxOutputJSON, "json", false, "Output results as JSON")

	// Write-specific flags
	contextWriteCmd.Flags().StringVar(&ctxKind, "kind", "", "Content kind: text or image (derived from content if empty)")

	// Drop-specific flags
	contextDropCmd.Flags().StringVar(&ctxDropName, "name", "", "Context file name (defaults to the file's basename)")
}

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage a project's context files",
	Long: `Manage the context files stored for a project.

Context files are opaque named entries; names may contain spaces and
parentheses. Text content round-trips verbatim and images are stored as
data URLs.

Examples:
  # List context files
  ctxs context list --project <id>

  # Read a file
  ctxs context read notes.md --project <id>

  # Write a file from stdin
  echo "remember this" | ctxs context write notes.md - --project <id>

  # Drop a local file in
  ctxs context drop ./diagram.png --project <id>

  # Remove everything
  ctxs context reset --project <id>`,
}

var contextListCmd = &cobra.Command{
	Use:   "list",
	Short: "List context file names",
	Long: `List a project's context file names in stable lexicographic order.

Examples:
  # List names
  ctxs context list --project <id>

  # Output as JSON
  ctxs context list --project <id> --json`,
	RunE: runContextList,
}

var contextReadCmd = &cobra.Command{
	Use:   "read <name>",
	Short: "Read a context file",
	Long: `Read a context file and print its content to stdout.

With --json the full record (name, kind, render class, default display
mode, content) is printed instead.

Examples:
  # Print content
  ctxs context read notes.md --project <id>

  # Names with spaces work quoted
  ctxs context read "meeting notes (1).md" --project <id>

  # Full record as JSON
  ctxs context read notes.md --project <id> --json`,
	Args: cobra.ExactArgs(1),
	RunE: runContextRead,
}

var contextWriteCmd = &cobra.Command{
	Use:   "write <name> [file]",
	Short: "Write a context file",
	Long: `Write a context file from a local file or stdin, overwriting any
existing file with the same name.

Examples:
  # Write from a file
  ctxs context write notes.md ./notes.md --project <id>

  # Write from stdin
  cat notes.md | ctxs context write notes.md - --project <id>

  # Store an image data URL as an image
  ctxs context write shot.png ./shot.dataurl --kind image --project <id>`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runContextWrite,
}

var contextDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context file",
	Long: `Delete one context file by name.

Examples:
  # Delete a file
  ctxs context delete notes.md --project <id>`,
	Args: cobra.ExactArgs(1),
	RunE: runContextDelete,
}

var contextResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every context file",
	Long: `Remove every context file for the project, leaving an empty
context directory.

Examples:
  # Clear the project's context
  ctxs context reset --project <id>`,
	RunE: runContextReset,
}

var contextDropCmd = &cobra.Command{
	Use:   "drop <file>",
	Short: "Drop a local file into the context",
	Long: `Drop a local file into the project's context. Images are stored
as data URLs; everything else is stored as text.

Examples:
  # Drop an image
  ctxs context drop ./diagram.png --project <id>

  # Drop under a different name
  ctxs context drop ./scratch.txt --name "meeting notes.txt" --project <id>`,
	Args: cobra.ExactArgs(1),
	RunE: runContextDrop,
}

// ContextListResponse matches internal/http/types.go ContextListResponse
type ContextListResponse struct {
	Files []string `json:"files"`
}

// ContextFileResponse matches internal/http/types.go ContextFileResponse
type ContextFileResponse struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Class   string `json:"class"`
	Display string `json:"display"`
	Content string `json:"content"`
}

// WriteContextRequest matches internal/http/types.go WriteContextRequest
type WriteContextRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
}

// DropContextRequest matches internal/http/types.go DropContextRequest
type DropContextRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
	MIME string `json:"mime,omitempty"`
}

// DropContextResponse matches internal/http/types.go DropContextResponse
type DropContextResponse struct {
	Name string `json:"name"`
}

func runContextList(cmd *cobra.Command, args []string) error {
	if ctxProjectID == "" {
		return fmt.Errorf("--project is required")
	}

	var listResp ContextListResponse
	if err := apiRequest(http.MethodGet, contextURL(ctxProjectID), nil, &listResp); err != nil {
		return err
	}

	if ctxOutputJSON {
		return outputJSON(listResp.Files)
	}

	if len(listResp.Files) == 0 {
		fmt.Println("No context files")
		return nil
	}

	for _, name := range listResp.Files {
		fmt.Println(name)
	}

	return nil
}

func runContextRead(cmd *cobra.Command, args []string) error {
	if ctxProjectID == "" {
		return fmt.Errorf("--project is required")
	}

	var fileResp ContextFileResponse
	if err := apiRequest(http.MethodGet, contextFileURL(ctxProjectID, args[0]), nil, &fileResp); err != nil {
		return err
	}

	if ctxOutputJSON {
		return outputJSON(fileResp)
	}

	// Content only, so output can be piped or redirected.
	fmt.Print(fileResp.Content)

	return nil
}

func runContextWrite(cmd *cobra.Command, args []string) error {
	if ctxProjectID == "" {
		return fmt.Errorf("--project is required")
	}

	name := args[0]

	var content []byte
	var err error
	if len(args) < 2 || args[1] == "-" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[1], err)
		}
	}

	req := WriteContextRequest{
		Content: string(content),
		Kind:    ctxKind,
	}

	if err := apiRequest(http.MethodPut, contextFileURL(ctxProjectID, name), req, nil); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", name)

	return nil
}

func runContextDelete(cmd *cobra.Command, args []string) error {
	if ctxProjectID == "" {
		return fmt.Errorf("--project is required")
	}

	if err := apiRequest(http.MethodDelete, contextFileURL(ctxProjectID, args[0]), nil, nil); err != nil {
		return err
	}

	fmt.Printf("Deleted %s\n", args[0])

	return nil
}

func runContextReset(cmd *cobra.Command, args []string) error {
	if ctxProjectID == "" {
		return fmt.Errorf("--project is required")
	}

	if err := apiRequest(http.MethodPost, contextURL(ctxProjectID)+"/reset", nil, nil); err != nil {
		return err
	}

	fmt.Println("Context cleared")

	return nil
}

func runContextDrop(cmd *cobra.Command, args []string) error {
	if ctxProjectID == "" {
		return fmt.Errorf("--project is required")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", args[0], err)
	}

	name := ctxDropName
	if name == "" {
		name = filepath.Base(args[0])
	}

	req := DropContextRequest{
		Name: name,
		Data: base64.StdEncoding.EncodeToString(data),
		MIME: detectMIME(args[0]),
	}

	var dropResp DropContextResponse
	if err := apiRequest(http.MethodPost, contextURL(ctxProjectID)+"/drop", req, &dropResp); err != nil {
		return err
	}

	fmt.Printf("Dropped %s\n", dropResp.Name)

	return nil
}

// detectMIME maps a file's extension to its media type without parameters.
// Unknown extensions return "".
func detectMIME(path string) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		return ""
	}
	if base, _, found := strings.Cut(mt, ";"); found {
		return strings.TrimSpace(base)
	}
	return mt
}
