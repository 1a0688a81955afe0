// Package mcp provides the Model Context Protocol server for rulecov.
package mcp

import (
	"context"

	"github.com/rulecov/rulecov/internal/application"
	"github.com/rulecov/rulecov/internal/domain"
)

// Service defines the application operations needed by MCP.
// This interface allows for easy mocking in tests.
type Service interface {
	// Tools (run the suite)
	CheckResult(ctx context.Context, opts application.CheckOptions) (application.CheckOutcome, error)
	ReportResult(ctx context.Context, opts application.ReportOptions) (application.RunResult, error)
	RecordResult(ctx context.Context, opts application.RecordOptions) (domain.HistoryEntry, error)

	// Resources (read-only queries)
	CatalogResult(ctx context.Context, opts application.ListOptions) ([]application.CatalogFile, []string, error)
	TrendResult(ctx context.Context, opts application.TrendOptions) (application.TrendReport, error)
	Detect(ctx context.Context, opts application.DetectOptions) (application.Config, error)
}

// Config holds MCP server configuration.
type Config struct {
	ConfigPath  string // Path to .rulecov.yaml (default: ".rulecov.yaml")
	HistoryPath string // Path to history file (empty defers to the config file)
}

// DefaultConfig returns configuration with default values. HistoryPath
// stays empty so the path resolution in the service applies: an
// explicit override wins, then the config file, then the built-in
// default.
func DefaultConfig() Config {
	return Config{
		ConfigPath: ".rulecov.yaml",
	}
}

// CheckInput defines the input parameters for the check tool.
type CheckInput struct {
	ConfigPath string `json:"configPath,omitempty" jsonschema:"description=Path to .rulecov.yaml config file"`
}

// ReportInput defines the input parameters for the report tool.
type ReportInput struct {
	ConfigPath string `json:"configPath,omitempty" jsonschema:"description=Path to .rulecov.yaml config file"`
}

// RecordInput defines the input parameters for the record tool.
type RecordInput struct {
	ConfigPath  string `json:"configPath,omitempty" jsonschema:"description=Path to .rulecov.yaml config file"`
	HistoryPath string `json:"historyPath,omitempty" jsonschema:"description=Path to history file"`
	Commit      string `json:"commit,omitempty" jsonschema:"description=Git commit SHA"`
	Branch      string `json:"branch,omitempty" jsonschema:"description=Git branch name"`
}

// ToolOutput represents the common output structure for tools.
type ToolOutput struct {
	Passed    bool                    `json:"passed"`
	Summary   string                  `json:"summary,omitempty"`
	Decisions []domain.DecisionResult `json:"decisions,omitempty"`
	Files     []domain.FileCoverage   `json:"files,omitempty"`
	Failures  []string                `json:"failures,omitempty"`
	Warnings  []string                `json:"warnings,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

// coalesce returns value if non-empty, otherwise fallback.
func coalesce(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
