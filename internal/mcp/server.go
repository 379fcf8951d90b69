package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/auto-report/internal/report"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes report rendering tools.
type Server struct {
	root     string
	include  []string
	exclude  []string
	renderer report.ElementRenderer
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server. Definition paths given to tools are
// resolved against root and may not leave it. include and exclude are the
// glob patterns list_reports uses.
func NewServer(root string, include, exclude []string, renderer report.ElementRenderer) *Server {
	if renderer == nil {
		renderer = report.BasicRenderer{}
	}
	s := &Server{
		root:     root,
		include:  include,
		exclude:  exclude,
		renderer: renderer,
	}

	s.mcp = server.NewMCPServer(
		"autoreport",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(renderReportTool, s.handleRenderReport)
	s.mcp.AddTool(outlineReportTool, s.handleOutlineReport)
	s.mcp.AddTool(listReportsTool, s.handleListReports)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
