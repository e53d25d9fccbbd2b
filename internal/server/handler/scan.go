package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/service"
)

// Scanner runs (or serves cached) detection passes.
type Scanner interface {
	Arbitrage(ctx context.Context) (domain.ScanResult, error)
	Sports(ctx context.Context) (domain.ScanResult, error)
	Value(ctx context.Context) (domain.ValueScan, error)
}

// scanFailure is the body served when a scan cannot be produced. It keeps
// the result shape so clients can render an empty board.
type scanFailure struct {
	Error string `json:"error"`
	domain.ScanResult
}

type valueFailureMeta struct {
	domain.ValueMetadata
	Error string `json:"error"`
}

type valueFailure struct {
	Picks    []domain.ValuePick `json:"picks"`
	Metadata valueFailureMeta   `json:"metadata"`
}

// ScanHandler serves the arbitrage, sports and value endpoints.
type ScanHandler struct {
	scans  Scanner
	logger *slog.Logger
}

// NewScanHandler creates a ScanHandler.
func NewScanHandler(scans Scanner, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{scans: scans, logger: logger.With(slog.String("handler", "scan"))}
}

// Arbitrage returns the general cross-venue scan.
// GET /api/arbitrage
func (h *ScanHandler) Arbitrage(w http.ResponseWriter, r *http.Request) {
	h.serveScan(w, r, "arbitrage", h.scans.Arbitrage)
}

// Sports returns the sports-only scan.
// GET /api/sports
func (h *ScanHandler) Sports(w http.ResponseWriter, r *http.Request) {
	h.serveScan(w, r, "sports", h.scans.Sports)
}

func (h *ScanHandler) serveScan(w http.ResponseWriter, r *http.Request, kind string, scan func(context.Context) (domain.ScanResult, error)) {
	res, err := scan(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "scan failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, scanFailure{
			Error:      "Scan failed",
			ScanResult: service.EmptyScanResult(time.Now()),
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Value returns single-market value picks.
// GET /api/value
func (h *ScanHandler) Value(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	res, err := h.scans.Value(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "value scan failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, valueFailure{
			Picks: []domain.ValuePick{},
			Metadata: valueFailureMeta{
				ValueMetadata: domain.ValueMetadata{
					ScanTimeMs: time.Since(start).Milliseconds(),
					Timestamp:  time.Now().UTC(),
				},
				Error: "Scan failed",
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, res)
}
