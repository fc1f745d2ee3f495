package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/theflapjack/fa-report/internal/common"
	"github.com/theflapjack/fa-report/internal/config"
	"github.com/theflapjack/fa-report/internal/report"
)

// ReportService is the part of report.Service the MCP tools use.
type ReportService interface {
	Generate(ctx context.Context, req report.Request, pretty bool) (string, error)
	InvalidatePortfolio(portfolioID int64) int
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates an MCP handler exposing the report tools.
func NewHandler(reports ReportService, logger *common.Logger) *Handler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	mcpSrv := mcpserver.NewMCPServer(
		"fa-report",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(ReportTool(), ReportToolHandler(reports, logger))
	mcpSrv.AddTool(VersionTool(), VersionToolHandler())

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", 2).Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
