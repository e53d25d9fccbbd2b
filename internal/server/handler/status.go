package handler

import (
	"context"
	"net/http"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// StatusReporter reports upstream venue reachability.
type StatusReporter interface {
	Status(ctx context.Context) domain.StatusReport
}

// StatusHandler serves venue status for the dashboard.
type StatusHandler struct {
	status StatusReporter
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(status StatusReporter) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with the (possibly cached) venue status report.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status(r.Context()))
}
