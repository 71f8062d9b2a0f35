// Package config provides configuration loading for ctxstored.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and sensible defaults for a local, single-user daemon.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete ctxstore configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Events    EventsConfig    `koanf:"events"`
	Issues    IssuesConfig    `koanf:"issues"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageConfig holds context store configuration.
type StorageConfig struct {
	// Root is the directory under which per-project context directories live.
	Root string `koanf:"root"`
	// MaxContentSizeKB caps a single context file's content (0 = unlimited).
	MaxContentSizeKB int `koanf:"max_content_size_kb"`
}

// LoggingConfig holds the daemon-facing logging knobs. The logging package
// owns the full config; these map onto it at startup.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enable      bool   `koanf:"enable"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"` // "grpc" or "http"
	Insecure    bool   `koanf:"insecure"`
}

// EventsConfig holds change-event bus configuration.
//
// With an empty URL the daemon embeds a NATS server in-process and connects
// to it; a non-empty URL points at an external NATS instance.
type EventsConfig struct {
	Disabled bool   `koanf:"disabled"`
	URL      string `koanf:"url"`
}

// IssuesConfig holds issue lister configuration.
type IssuesConfig struct {
	Provider    string `koanf:"provider"` // "gh" or "api"
	GHPath      string `koanf:"gh_path"`  // gh executable, resolved via PATH when bare
	Token       Secret `koanf:"token"`    // API provider token, optional for public repos
	OpenLimit   int    `koanf:"open_limit"`
	ClosedLimit int    `koanf:"closed_limit"`
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Storage root is empty
//   - Issues provider is not "gh" or "api"
//   - Issue limits are not positive
//   - Service name is empty (when telemetry is enabled)
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Storage.Root == "" {
		return errors.New("storage root must not be empty")
	}
	if c.Storage.MaxContentSizeKB < 0 {
		return fmt.Errorf("max content size must be >= 0, got %d", c.Storage.MaxContentSizeKB)
	}

	if c.Issues.Provider != "gh" && c.Issues.Provider != "api" {
		return fmt.Errorf("invalid issues provider: %q (must be \"gh\" or \"api\")", c.Issues.Provider)
	}
	if c.Issues.OpenLimit <= 0 || c.Issues.ClosedLimit <= 0 {
		return fmt.Errorf("issue limits must be positive, got open=%d closed=%d",
			c.Issues.OpenLimit, c.Issues.ClosedLimit)
	}

	if c.Telemetry.Enable {
		if c.Telemetry.ServiceName == "" {
			return errors.New("service name required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
			return fmt.Errorf("invalid telemetry protocol: %q (must be \"grpc\" or \"http\")", c.Telemetry.Protocol)
		}
	}

	return nil
}
