package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/server/middleware"
	"github.com/alanyoungcy/arbscanner/internal/service"
)

// WebhookManager manages an owner's webhook subscriptions.
type WebhookManager interface {
	Register(ctx context.Context, owner string, req service.WebhookRequest) (domain.WebhookSubscription, error)
	List(ctx context.Context, owner string) ([]domain.WebhookSubscription, error)
	Delete(ctx context.Context, owner, id string) error
}

// WebhookHandler serves webhook CRUD scoped to the caller's API key.
type WebhookHandler struct {
	hooks  WebhookManager
	logger *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(hooks WebhookManager, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{hooks: hooks, logger: logger.With(slog.String("handler", "webhooks"))}
}

// List returns the caller's subscriptions.
// GET /api/webhooks
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.hooks.List(r.Context(), middleware.Owner(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list webhooks failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list webhooks")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": subs})
}

// Register creates a subscription.
// POST /api/webhooks
func (h *WebhookHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.hooks.Register(r.Context(), middleware.Owner(r.Context()), req)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		if req.URL == "" || req.MinSpreadPct == nil {
			writeError(w, http.StatusBadRequest, "url and min_spread_pct required")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "register webhook failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to register webhook")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"webhook": sub})
}

// Delete removes a subscription by ?id.
// DELETE /api/webhooks?id=...
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id query param required")
		return
	}

	err := h.hooks.Delete(r.Context(), middleware.Owner(r.Context()), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Webhook not found")
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "delete webhook failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "failed to delete webhook")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
