package handlers

import (
	"net/http"
	"strconv"

	"github.com/theflapjack/fa-report/internal/common"
)

// CacheInvalidator drops cached transaction sets for a portfolio.
type CacheInvalidator interface {
	InvalidatePortfolio(portfolioID int64) int
}

// CacheHandler lets operators force a fresh upstream fetch for a portfolio.
type CacheHandler struct {
	logger      *common.Logger
	invalidator CacheInvalidator
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(logger *common.Logger, invalidator CacheInvalidator) *CacheHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &CacheHandler{logger: logger, invalidator: invalidator}
}

// ServeHTTP handles DELETE /api/cache/{portfolioId}.
func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "DELETE") {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("portfolioId"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "portfolioId must be an integer")
		return
	}

	removed := h.invalidator.InvalidatePortfolio(id)
	h.logger.ForRequest(r.Context()).Info().Int64("portfolio_id", id).Int("removed", removed).Msg("report cache invalidated")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"portfolio_id": id,
		"removed":      removed,
	})
}
