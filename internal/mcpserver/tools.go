package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/joestump/refselect/internal/gitref"
	"github.com/joestump/refselect/internal/plugin"
)

// --- Tool Definitions ---

func selectBranchesTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"select_branches",
		"List the references of a remote git repository, keep those whose full name matches a regular expression, and return one branch context per match.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"url": {
					"type": "string",
					"description": "Clone URL of the repository"
				},
				"pattern": {
					"type": "string",
					"description": "Go regular expression searched in each full ref name, e.g. ^refs/pull/\\d+/head$"
				},
				"username": {
					"type": "string",
					"description": "User name for the remote (optional)"
				},
				"password": {
					"type": "string",
					"description": "Password or token for the remote (optional)"
				},
				"backend": {
					"type": "string",
					"enum": ["git", "gogit", "github", "gitea"],
					"description": "Force a listing backend (optional)"
				}
			},
			"required": ["url", "pattern"]
		}`),
	)
}

func parseRefsTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"parse_refs",
		"Parse git ls-remote output into named references. Lines that are not '<sha> refs/...' are skipped.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"advertisement": {
					"type": "string",
					"description": "Raw ls-remote output, one reference per line"
				}
			},
			"required": ["advertisement"]
		}`),
	)
}

// --- Tool Handlers ---

type selectBranchesArgs struct {
	URL      string `json:"url"`
	Pattern  string `json:"pattern"`
	Username string `json:"username"`
	Password string `json:"password"`
	Backend  string `json:"backend"`
}

func (s *Server) handleSelectBranches(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args selectBranchesArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	if strings.TrimSpace(args.URL) == "" {
		return mcp.NewToolResultError("url is required"), nil
	}

	contexts, err := s.selector.Select(ctx, plugin.SelectBranchesRequest{
		URL:      args.URL,
		Pattern:  args.Pattern,
		Username: args.Username,
		Password: args.Password,
		Backend:  args.Backend,
	})
	if err != nil {
		s.logger.Warn("select_branches failed", zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("select branches: %v", err)), nil
	}

	return resultJSON(contexts)
}

type parseRefsArgs struct {
	Advertisement string `json:"advertisement"`
}

func (s *Server) handleParseRefs(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args parseRefsArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	return resultJSON(gitref.ParseText(args.Advertisement))
}

// resultJSON marshals v to JSON and returns it as a tool result.
func resultJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
