package mcp

import (
	"context"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/dshills/vecsearch/internal/config"
	"github.com/dshills/vecsearch/internal/searcher"
)

// ServerName is the MCP server name
const ServerName = "vecsearch"

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	searcher *searcher.Searcher
	cfg      *config.Config
	logger   *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(srch *searcher.Searcher, cfg *config.Config, version string, logger *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(false),
		),
		searcher: srch,
		cfg:      cfg,
		logger:   logger,
	}

	s.registerTools()
	return s
}

// Serve runs the MCP protocol on stdio until ctx is cancelled or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	return s.Listen(ctx, os.Stdin, os.Stdout)
}

// Listen runs the MCP protocol over the given streams
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchVectorsTool(s.cfg), s.handleSearchVectors)
	s.mcp.AddTool(relatedFilesTool(s.cfg), s.handleRelatedFiles)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
