package polymarket_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/platform/polymarket"
)

const marketsBody = `[
  {"id":"501","question":"Will the Fed cut rates in March 2026?","conditionId":"0xabc","slug":"fed-cut-march-2026",
   "category":"Economics","active":"true","closed":false,"outcomePrices":"[\"0.42\",\"0.56\"]","volume":"50000.5"},
  {"id":"502","question":"Broken prices","outcomePrices":"not json","volume":1200}
]`

func TestListMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "false", q.Get("closed"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "volume", q.Get("order"))
		assert.Equal(t, "false", q.Get("ascending"))
		_, _ = w.Write([]byte(marketsBody))
	}))
	defer srv.Close()

	g := polymarket.NewGammaClient(polymarket.GammaConfig{BaseURL: srv.URL, RatePerSecond: 100, Burst: 5})
	markets, err := g.ListMarkets(context.Background(), polymarket.DefaultMarketQuery())
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "0xabc", markets[0].ConditionID)
	assert.True(t, bool(markets[0].Active))

	recs := polymarket.ToRecords(markets)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.VenuePolymarket, recs[0].Venue)
	assert.Equal(t, "0xabc", recs[0].ID)
	assert.InDelta(t, 0.42, recs[0].YesPrice, 1e-12)
	assert.InDelta(t, 0.56, recs[0].NoPrice, 1e-12)
	assert.InDelta(t, 50000.5, recs[0].Volume, 1e-9)
	assert.Equal(t, "https://polymarket.com/event/fed-cut-march-2026", recs[0].DeepLink)

	assert.Equal(t, "502", recs[1].ID)
	assert.Equal(t, 0.0, recs[1].YesPrice)
	assert.Equal(t, 1200.0, recs[1].Volume)
	assert.Equal(t, "https://polymarket.com", recs[1].DeepLink)
}

func TestBrowseMarkets_DefaultsAndPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "false", q.Get("closed"))
		assert.Equal(t, "liquidity", q.Get("order"))
		assert.Equal(t, "false", q.Get("ascending"))
		assert.Equal(t, "politics", q.Get("tag"))
		_, _ = w.Write([]byte(marketsBody))
	}))
	defer srv.Close()

	g := polymarket.NewGammaClient(polymarket.GammaConfig{BaseURL: srv.URL})
	params := url.Values{"order": {"liquidity"}, "tag": {"politics"}}
	raw, err := g.BrowseMarkets(context.Background(), params)
	require.NoError(t, err)
	assert.JSONEq(t, marketsBody, string(raw))
	assert.False(t, params.Has("closed"), "caller params are not mutated")
}

func TestBrowseMarkets_RejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	g := polymarket.NewGammaClient(polymarket.GammaConfig{BaseURL: srv.URL})
	_, err := g.BrowseMarkets(context.Background(), nil)
	assert.ErrorContains(t, err, "not JSON")
}

func TestMarketsByCondition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xabc", r.URL.Query().Get("condition_id"))
		_, _ = w.Write([]byte(`[{"conditionId":"0xabc"}]`))
	}))
	defer srv.Close()

	g := polymarket.NewGammaClient(polymarket.GammaConfig{BaseURL: srv.URL})
	raw, err := g.MarketsByCondition(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"conditionId":"0xabc"}]`, string(raw))
}

func TestPing_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := polymarket.NewGammaClient(polymarket.GammaConfig{BaseURL: srv.URL})
	err := g.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}

func TestParseOutcomePrices(t *testing.T) {
	yes, no := polymarket.ParseOutcomePrices(`["0.3", "0.65"]`)
	assert.InDelta(t, 0.3, yes, 1e-12)
	assert.InDelta(t, 0.65, no, 1e-12)

	yes, no = polymarket.ParseOutcomePrices(`[0.25]`)
	assert.InDelta(t, 0.25, yes, 1e-12)
	assert.Equal(t, 0.0, no)

	yes, no = polymarket.ParseOutcomePrices(`["abc", "0.5"]`)
	assert.Equal(t, 0.0, yes)
	assert.InDelta(t, 0.5, no, 1e-12)

	yes, no = polymarket.ParseOutcomePrices("")
	assert.Equal(t, 0.0, yes)
	assert.Equal(t, 0.0, no)
}

func TestMarketLink(t *testing.T) {
	assert.Equal(t, "https://polymarket.com/event/s", polymarket.MarketLink("s", "0x1"))
	assert.Equal(t, "https://polymarket.com/event/0x1", polymarket.MarketLink("", "0x1"))
	assert.Equal(t, "https://polymarket.com", polymarket.MarketLink("", ""))
}

func TestFormatVolume(t *testing.T) {
	assert.Equal(t, "$1.2M", polymarket.FormatVolume(1_234_567))
	assert.Equal(t, "$35K", polymarket.FormatVolume(35_200))
	assert.Equal(t, "$800", polymarket.FormatVolume(800))
}
