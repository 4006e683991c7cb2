// Package mcpserver exposes the unused-symbol analysis as MCP tools over
// stdio.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/panbanda/dormant/internal/frontend/csharp"
	"github.com/panbanda/dormant/pkg/config"
)

// Server wraps the MCP server and registers the dormant tools.
type Server struct {
	server *mcp.Server
	config *config.Config
	logger *slog.Logger
	cache  csharp.Cache
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration the tools analyze with.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// WithLogger sets the logger. Stdout carries the protocol, so the logger
// must write elsewhere.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithCache sets the extracted-facts cache shared by tool calls.
func WithCache(c csharp.Cache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// NewServer creates a new MCP server with all tools and prompts registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "dormant",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.DefaultConfig()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Tool names.
const (
	toolFindUnused   = "find_unused_symbols"
	toolExplainRules = "explain_exclusion_rules"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolFindUnused,
		Description: describeFindUnused(),
	}, s.handleFindUnused)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolExplainRules,
		Description: describeExplainRules(),
	}, s.handleExplainRules)
}
