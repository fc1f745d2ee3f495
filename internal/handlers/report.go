package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/theflapjack/fa-report/internal/common"
	"github.com/theflapjack/fa-report/internal/report"
)

// ReportGenerator renders a CSV report.
type ReportGenerator interface {
	Generate(ctx context.Context, req report.Request, pretty bool) (string, error)
}

// ReportHandler serves portfolio transaction reports as CSV attachments.
type ReportHandler struct {
	logger    *common.Logger
	generator ReportGenerator
}

// NewReportHandler creates a new report handler.
func NewReportHandler(logger *common.Logger, generator ReportGenerator) *ReportHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ReportHandler{logger: logger, generator: generator}
}

// ServeHTTP handles GET /report?portfolioId=&startDate=&endDate=&pretty=&targetCurrency=.
// Parameters are validated before any upstream call is made.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	logger := h.logger.ForRequest(r.Context())
	q := r.URL.Query()

	pretty := false
	if v := q.Get("pretty"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			WriteText(w, http.StatusBadRequest, "pretty must be true or false.")
			return
		}
		pretty = b
	}

	req, err := report.NewRequest(q.Get("portfolioId"), q.Get("startDate"), q.Get("endDate"), q.Get("targetCurrency"))
	if err != nil {
		var vErr *report.ValidationError
		if errors.As(err, &vErr) {
			logger.Warn().Str("field", vErr.Field).Str("reason", vErr.Message).Msg("invalid report request")
			WriteText(w, http.StatusBadRequest, vErr.Message)
			return
		}
		WriteText(w, http.StatusBadRequest, "Invalid request.")
		return
	}

	csv, err := h.generator.Generate(r.Context(), req, pretty)
	if err != nil {
		logger.Error().
			Err(err).
			Int64("portfolio_id", req.PortfolioID).
			Bool("pretty", pretty).
			Msg("failed to generate report")
		WriteText(w, http.StatusInternalServerError, "Error generating report")
		return
	}

	WriteCSV(w, req.Filename(pretty), csv)
}
