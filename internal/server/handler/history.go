package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const defaultHistoryHours = 24

// HistoryReader exposes logged scans and their aggregates.
type HistoryReader interface {
	History(ctx context.Context, hours int) ([]domain.HistoryEntry, error)
	Leaderboard(ctx context.Context) (domain.Leaderboard, error)
	Archives(ctx context.Context) ([]domain.BlobInfo, error)
}

// HistoryHandler serves scan history, the leaderboard and archive listing.
type HistoryHandler struct {
	history HistoryReader
	logger  *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(history HistoryReader, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger.With(slog.String("handler", "history"))}
}

type historyResponse struct {
	Hours   int                   `json:"hours"`
	Entries int                   `json:"entries"`
	History []domain.HistoryEntry `json:"history"`
}

// GetHistory returns entries from the last ?hours (default 24), or the
// leaderboard when ?leaderboard=true.
// GET /api/history
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("leaderboard") == "true" {
		lb, err := h.history.Leaderboard(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "leaderboard failed", slog.String("error", err.Error()))
			writeError(w, statusFor(err), "failed to build leaderboard")
			return
		}
		writeJSON(w, http.StatusOK, lb)
		return
	}

	hours, ok := queryInt(r, "hours", defaultHistoryHours)
	if !ok {
		writeError(w, http.StatusBadRequest, "hours must be a positive integer")
		return
	}
	entries, err := h.history.History(r.Context(), hours)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "history failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "failed to load history")
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Hours: hours, Entries: len(entries), History: entries})
}

// ListArchives lists archived history months in object storage.
// GET /api/history/archives
func (h *HistoryHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	blobs, err := h.history.Archives(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list archives failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "failed to list archives")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": blobs})
}
