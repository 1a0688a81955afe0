package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is set at build time.
var Version = "dev"

// Server wraps the application service with MCP protocol handling.
type Server struct {
	svc    Service
	config Config
}

// New creates a new MCP server wrapping the given service.
func New(svc Service, cfg Config) *Server {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfig().ConfigPath
	}

	return &Server{
		svc:    svc,
		config: cfg,
	}
}

// Run starts the MCP server on stdio and blocks until the context is
// canceled or the client disconnects. Nothing else may write to stdout
// while the server runs; run diagnostics go to stderr.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "rulecov",
			Version: Version,
		},
		&mcp.ServerOptions{
			HasTools:     true,
			HasResources: true,
		},
	)

	s.registerTools(server)
	s.registerResources(server)

	transport := &mcp.StdioTransport{}
	if err := server.Run(ctx, transport); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}

	return nil
}

// registerTools adds all tool handlers to the server.
func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "check",
		Description: "Run the declarative test suite and enforce rule coverage policy. Returns per-decision verdicts against the configured minimums.",
	}, s.handleCheck)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "report",
		Description: "Run the declarative test suite and return the rule coverage report without enforcing policy.",
	}, s.handleReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record",
		Description: "Run the declarative test suite and record the resulting coverage to history for trend tracking.",
	}, s.handleRecord)
}

// registerResources adds all resource handlers to the server.
func (s *Server) registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         "rulecov://catalog",
		Name:        "Rule Catalog",
		Description: "Lists every decision table with its decisions and rules",
		MIMEType:    "application/json",
	}, s.handleCatalogResource)

	server.AddResource(&mcp.Resource{
		URI:         "rulecov://trend",
		Name:        "Coverage Trend",
		Description: "Shows rule coverage movement across recorded runs",
		MIMEType:    "application/json",
	}, s.handleTrendResource)

	server.AddResource(&mcp.Resource{
		URI:         "rulecov://config",
		Name:        "Current Configuration",
		Description: "Returns current or auto-detected rulecov configuration",
		MIMEType:    "application/json",
	}, s.handleConfigResource)
}
