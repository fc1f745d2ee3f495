package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/theflapjack/fa-report/internal/common"
)

// ReadyCheck reports whether an upstream dependency is usable.
type ReadyCheck func(ctx context.Context) error

// ReadyHandler reports whether the service can obtain a data API token.
type ReadyHandler struct {
	logger  *common.Logger
	check   ReadyCheck
	timeout time.Duration
}

// NewReadyHandler creates a readiness handler around check.
func NewReadyHandler(logger *common.Logger, check ReadyCheck) *ReadyHandler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &ReadyHandler{logger: logger, check: check, timeout: 5 * time.Second}
}

// ServeHTTP handles GET /api/ready.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.check(ctx); err != nil {
		h.logger.ForRequest(r.Context()).Warn().Err(err).Msg("readiness check failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
