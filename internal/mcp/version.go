package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/theflapjack/fa-report/internal/config"
)

// versionInfo holds version fields for the service.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// VersionTool returns the mcp.Tool definition for get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get fa-report version. Use this to verify connectivity."),
	)
}

// VersionToolHandler returns a handler reporting the running build.
func VersionToolHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := json.Marshal(map[string]versionInfo{
			"fa_report": {
				Version: config.GetVersion(),
				Build:   config.GetBuild(),
				Commit:  config.GetGitCommit(),
			},
		})
		if err != nil {
			return errorResult("failed to marshal version info"), nil
		}
		return textResult(string(out)), nil
	}
}
