package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/theflapjack/fa-report/internal/common"
	"github.com/theflapjack/fa-report/internal/report"
)

// ReportTool returns the mcp.Tool definition for generate_report.
func ReportTool() mcp.Tool {
	return mcp.NewTool("generate_report",
		mcp.WithDescription("Generate a CSV transaction report for a portfolio. "+
			"Returns the raw CSV by default, or the sorted report with a USD cash-flow summary when pretty is true."),
		mcp.WithNumber("portfolio_id",
			mcp.Required(),
			mcp.Description("Numeric portfolio id"),
		),
		mcp.WithString("start_date",
			mcp.Description("First transaction date to include (YYYY-MM-DD)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Last transaction date to include (YYYY-MM-DD)"),
		),
		mcp.WithString("target_currency",
			mcp.Description("Currency for the target notional column: "+strings.Join(report.ValidCurrencies, ", ")+" (default USD)"),
		),
		mcp.WithBoolean("pretty",
			mcp.Description("Return the human-readable report with summary"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Ignore cached transactions for this portfolio"),
		),
	)
}

// ReportToolHandler returns the handler for generate_report.
func ReportToolHandler(reports ReportService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetInt("portfolio_id", 0)
		if id <= 0 {
			return errorResult("Error: portfolio_id parameter is required"), nil
		}

		req, err := report.NewRequest(
			strconv.Itoa(id),
			request.GetString("start_date", ""),
			request.GetString("end_date", ""),
			request.GetString("target_currency", ""),
		)
		if err != nil {
			var vErr *report.ValidationError
			if errors.As(err, &vErr) {
				return errorResult("Error: " + vErr.Message), nil
			}
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		if request.GetBool("refresh", false) {
			reports.InvalidatePortfolio(req.PortfolioID)
		}

		pretty := request.GetBool("pretty", false)
		csv, err := reports.Generate(ctx, req, pretty)
		if err != nil {
			logger.Error().Err(err).Int64("portfolio_id", req.PortfolioID).Msg("generate_report tool failed")
			return errorResult(fmt.Sprintf("Error generating report: %v", err)), nil
		}
		return textResult(csv), nil
	}
}
