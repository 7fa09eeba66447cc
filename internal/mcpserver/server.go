// Package mcpserver implements an MCP (Model Context Protocol) server that
// exposes branch selection and ref parsing as typed tools over stdio
// JSON-RPC.
package mcpserver

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/branches"
	"github.com/joestump/refselect/internal/config"
	"github.com/joestump/refselect/internal/plugin"
)

// ServerName is the MCP implementation name reported to clients.
const ServerName = "refselect"

// Selector runs branch selections. *plugin.Processor implements it.
type Selector interface {
	Select(ctx context.Context, req plugin.SelectBranchesRequest) ([]branches.BranchContext, error)
}

// Server holds the MCP server state.
type Server struct {
	selector Selector
	logger   *zap.Logger
}

// NewServer creates an MCP server backed by the given selector.
func NewServer(selector Selector, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{selector: selector, logger: logger}
}

// MCPServer builds the protocol server with every tool registered.
func (s *Server) MCPServer() *server.MCPServer {
	mcpServer := server.NewMCPServer(
		ServerName,
		config.Version,
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTools(
		server.ServerTool{Tool: selectBranchesTool(), Handler: s.handleSelectBranches},
		server.ServerTool{Tool: parseRefsTool(), Handler: s.handleParseRefs},
	)
	return mcpServer
}

// Run serves MCP over the given streams. It blocks until ctx is cancelled
// or in is closed.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.MCPServer())
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("mcp")))

	return stdio.Listen(ctx, in, out)
}
