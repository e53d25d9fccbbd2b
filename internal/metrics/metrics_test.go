package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveScan(t *testing.T) {
	r := New()

	r.ObserveScan("arbitrage", 200*time.Millisecond, 7, nil)
	r.ObserveScan("arbitrage", time.Second, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Scans.WithLabelValues("arbitrage", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Scans.WithLabelValues("arbitrage", "error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.Opportunities.WithLabelValues("arbitrage")), "failed scans keep the last gauge")
}

func TestObserveVenue(t *testing.T) {
	r := New()

	r.ObserveVenue("Kalshi", 120, nil)
	r.ObserveVenue("Kalshi", 0, errors.New("timeout"))

	assert.Equal(t, 120.0, testutil.ToFloat64(r.VenueMarkets.WithLabelValues("Kalshi")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.VenueErrors.WithLabelValues("Kalshi")))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveScan("value", time.Second, 1, nil)
		r.ObserveVenue("Polymarket", 1, nil)
		r.ObserveCache("value", true)
		r.ObserveWebhooks("arb.detected", 2)
		r.ObserveRequest("/api/value", 200)
	})
}

func TestHandler(t *testing.T) {
	r := New()
	r.ObserveRequest("/api/arbitrage", 429)
	r.ObserveCache("sports", false)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `arbscan_http_requests_total{code="4xx",route="/api/arbitrage"} 1`))
	assert.True(t, strings.Contains(body, `arbscan_scan_cache_requests_total{kind="sports",outcome="hit"} 1`))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
