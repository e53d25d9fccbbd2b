package server_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/server"
	"github.com/alanyoungcy/arbscanner/internal/server/handler"
	"github.com/alanyoungcy/arbscanner/internal/service"
	"github.com/alanyoungcy/arbscanner/internal/store/sqlite"
)

type stubScanner struct{}

func (stubScanner) Arbitrage(context.Context) (domain.ScanResult, error) {
	return service.EmptyScanResult(time.Now()), nil
}
func (stubScanner) Sports(context.Context) (domain.ScanResult, error) {
	return service.EmptyScanResult(time.Now()), nil
}
func (stubScanner) Value(context.Context) (domain.ValueScan, error) {
	return domain.ValueScan{Picks: []domain.ValuePick{}}, nil
}

type stubStatus struct{}

func (stubStatus) Status(context.Context) domain.StatusReport { return domain.StatusReport{} }

type stubMarkets struct{}

func (stubMarkets) BrowseMarkets(context.Context, url.Values) (json.RawMessage, error) {
	return json.RawMessage(`[]`), nil
}

func (stubMarkets) MarketsByCondition(_ context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(`[{"conditionId":"` + id + `"}]`), nil
}

// keyTable charges known keys against a fixed allowance.
type keyTable struct {
	allowance map[string]int
}

func (k *keyTable) Charge(_ context.Context, raw string) (service.Quota, error) {
	left, ok := k.allowance[raw]
	if !ok {
		return service.Quota{}, domain.ErrUnauthorized
	}
	if left <= 0 {
		return service.Quota{Limit: 1, Remaining: 0}, nil
	}
	k.allowance[raw] = left - 1
	return service.Quota{Key: domain.APIKey{Digest: "d-" + raw}, Allowed: true, Limit: 1, Remaining: left - 1}, nil
}

func newTestServer(t *testing.T, cfg server.Config, keys *keyTable) (http.Handler, *metrics.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	reg := metrics.New()
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler("server"),
		Scans:    handler.NewScanHandler(stubScanner{}, logger),
		History:  handler.NewHistoryHandler(service.NewHistoryService(sqlite.NewHistoryStore(db), nil, "archive/history/"), logger),
		Status:   handler.NewStatusHandler(stubStatus{}),
		Webhooks: handler.NewWebhookHandler(service.NewWebhookService(sqlite.NewWebhookStore(db)), logger),
		Markets:  handler.NewMarketHandler(stubMarkets{}, logger),
	}
	deps := server.Deps{Keys: keys, Metrics: reg}
	return server.NewServer(cfg, handlers, deps, logger).Handler(), reg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Routes(t *testing.T) {
	h, _ := newTestServer(t, server.Config{}, &keyTable{allowance: map[string]int{}})

	for _, path := range []string{"/api/health", "/api/arbitrage", "/api/sports", "/api/value", "/api/history", "/api/history/archives", "/api/status", "/api/webhooks", "/api/markets", "/api/markets/0xabc"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_APIKeyTiers(t *testing.T) {
	keys := &keyTable{allowance: map[string]int{"sb_free_good": 1}}
	h, _ := newTestServer(t, server.Config{}, keys)

	bad := httptest.NewRequest(http.MethodGet, "/api/arbitrage", nil)
	bad.Header.Set("X-API-Key", "sb_free_bogus")
	rec := serve(h, bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid API key"}`, rec.Body.String())

	good := func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/arbitrage", nil)
		r.Header.Set("X-API-Key", "sb_free_good")
		return r
	}
	rec = serve(h, good())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(h, good())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"Rate limit exceeded","remaining":0}`, rec.Body.String())

	// Health stays unmetered.
	health := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	health.Header.Set("X-API-Key", "sb_free_bogus")
	assert.Equal(t, http.StatusOK, serve(h, health).Code)
}

func TestServer_MarketsAreMetered(t *testing.T) {
	h, _ := newTestServer(t, server.Config{}, &keyTable{allowance: map[string]int{}})

	req := httptest.NewRequest(http.MethodGet, "/api/markets/0xabc", nil)
	req.Header.Set("X-API-Key", "sb_free_bogus")
	assert.Equal(t, http.StatusUnauthorized, serve(h, req).Code)

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/markets/0xabc", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"conditionId":"0xabc"}]`, rec.Body.String())
}

func TestServer_WebhooksScopedByKey(t *testing.T) {
	keys := &keyTable{allowance: map[string]int{"k1": 10, "k2": 10}}
	h, _ := newTestServer(t, server.Config{}, keys)

	post := httptest.NewRequest(http.MethodPost, "/api/webhooks",
		strings.NewReader(`{"url":"https://hooks.example.com/a","min_spread_pct":1}`))
	post.Header.Set("X-API-Key", "k1")
	require.Equal(t, http.StatusCreated, serve(h, post).Code)

	list := func(key string) string {
		r := httptest.NewRequest(http.MethodGet, "/api/webhooks", nil)
		if key != "" {
			r.Header.Set("X-API-Key", key)
		}
		return serve(h, r).Body.String()
	}
	assert.Contains(t, list("k1"), "hooks.example.com")
	assert.NotContains(t, list("k2"), "hooks.example.com")
	assert.NotContains(t, list(""), "hooks.example.com")
}

func TestServer_AdminTokenGuardsMutation(t *testing.T) {
	h, _ := newTestServer(t, server.Config{AdminToken: "s3cret"}, &keyTable{allowance: map[string]int{}})

	body := `{"url":"https://hooks.example.com/a","min_spread_pct":1}`
	rec := serve(h, httptest.NewRequest(http.MethodPost, "/api/webhooks", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusCreated, serve(h, req).Code)

	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/api/webhooks", nil)).Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, server.Config{CORSOrigins: []string{"https://app.example.com"}}, &keyTable{})

	req := httptest.NewRequest(http.MethodOptions, "/api/arbitrage", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := serve(h, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, server.Config{}, &keyTable{})

	serve(h, httptest.NewRequest(http.MethodGet, "/api/arbitrage", nil))
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `arbscan_http_requests_total{code="2xx",route="GET /api/arbitrage"} 1`)
}
