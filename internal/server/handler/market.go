package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// maxQueryValueLen bounds each forwarded query value.
const maxQueryValueLen = 200

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// MarketBrowser lists Polymarket markets as raw Gamma JSON.
type MarketBrowser interface {
	BrowseMarkets(ctx context.Context, params url.Values) (json.RawMessage, error)
	MarketsByCondition(ctx context.Context, conditionID string) (json.RawMessage, error)
}

// MarketHandler proxies market discovery to the Gamma API.
type MarketHandler struct {
	markets MarketBrowser
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketBrowser, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger.With(slog.String("handler", "market")),
	}
}

// List forwards the sanitized query string. An upstream failure yields an
// empty list rather than an error status.
// GET /api/markets
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	raw, err := h.markets.BrowseMarkets(r.Context(), sanitizeQuery(r.URL.Query()))
	if err != nil {
		h.logger.WarnContext(r.Context(), "market listing failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// Get returns the markets sharing a condition id.
// GET /api/markets/{id}
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "market id required")
		return
	}
	raw, err := h.markets.MarketsByCondition(r.Context(), id)
	if err != nil {
		h.logger.WarnContext(r.Context(), "market lookup failed",
			slog.String("condition_id", id),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusBadGateway, []any{})
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

// sanitizeQuery strips HTML tags from every value and truncates it. Only the
// last value of a repeated key is kept.
func sanitizeQuery(in url.Values) url.Values {
	out := url.Values{}
	for k, vs := range in {
		if len(vs) == 0 {
			continue
		}
		v := htmlTag.ReplaceAllString(vs[len(vs)-1], "")
		if len(v) > maxQueryValueLen {
			v = v[:maxQueryValueLen]
		}
		out.Set(k, v)
	}
	return out
}

func writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
