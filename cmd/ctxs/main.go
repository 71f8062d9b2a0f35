// Package main implements the ctxs CLI for operations against the ctxstored HTTP server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the ctxstored HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ctxs",
	Short: "CLI for ctxstored server operations",
	Long: `ctxs is a command-line interface for the ctxstored daemon.
It manages registered projects, their context files, and issue listings
over the daemon's HTTP API.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9091", "ctxstored server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(statusCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check ctxstored server health",
	Long: `Check the health status of the ctxstored HTTP server.

Examples:
  # Check health
  ctxs health

  # Check health on a different server
  ctxs health --server http://localhost:8080`,
	RunE: runHealth,
}

// statusCmd shows daemon status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Show the daemon's version and how many projects it manages.

Examples:
  # Show status
  ctxs status`,
	RunE: runStatus,
}

// HealthResponse matches internal/http/types.go HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse matches internal/http/types.go StatusResponse
type StatusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version,omitempty"`
	Projects int    `json:"projects"`
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	var healthResp HealthResponse
	if err := apiRequest(http.MethodGet, serverURL+"/health", nil, &healthResp); err != nil {
		return err
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)

	return nil
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	var statusResp StatusResponse
	if err := apiRequest(http.MethodGet, serverURL+"/api/v1/status", nil, &statusResp); err != nil {
		return err
	}

	fmt.Printf("Status:   %s\n", statusResp.Status)
	if statusResp.Version != "" {
		fmt.Printf("Version:  %s\n", statusResp.Version)
	}
	fmt.Printf("Projects: %d\n", statusResp.Projects)

	return nil
}

// Helper functions

// httpClient is shared by all commands.
var httpClient = &http.Client{
	Timeout: 30 * time.Second,
}

// apiRequest sends a JSON request to the daemon and decodes the response
// into out when it is non-nil. Non-2xx responses come back as errors with
// the server's message folded in.
func apiRequest(method, requestURL string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		reqJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	httpReq, err := http.NewRequest(method, requestURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", requestURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func projectsURL() string {
	return serverURL + "/api/v1/projects"
}

func projectURL(id string) string {
	return projectsURL() + "/" + url.PathEscape(id)
}

func contextURL(id string) string {
	return projectURL(id) + "/context"
}

// contextFileURL escapes the file name so names with spaces and
// parentheses survive the trip as a single path segment.
func contextFileURL(id, name string) string {
	return contextURL(id) + "/" + url.PathEscape(name)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
