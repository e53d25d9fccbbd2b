package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
	"github.com/alanyoungcy/arbscanner/internal/store/sqlite"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSource struct {
	venue   domain.Venue
	records []domain.MarketRecord
	err     error
	pingErr error
	calls   atomic.Int32
}

func (f *fakeSource) Venue() domain.Venue { return f.venue }

func (f *fakeSource) Fetch(context.Context) ([]domain.MarketRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) Ping(context.Context) error { return f.pingErr }

// ctxSource serves records unless the fetch context is already done.
type ctxSource struct {
	fakeSource
}

func (c *ctxSource) Fetch(ctx context.Context) ([]domain.MarketRecord, error) {
	c.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.records, nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) GetOrCompute(ctx context.Context, key string, _ time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	v, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = v
	return v, nil
}

func (m *memCache) Invalidate(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type brokenCache struct{}

func (brokenCache) GetOrCompute(context.Context, string, time.Duration, func(context.Context) ([]byte, error)) ([]byte, error) {
	return nil, errors.New("redis: connection refused")
}

func (brokenCache) Invalidate(context.Context, string) error { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]domain.ScanEvent
}

func (p *recordingPublisher) PublishScan(_ context.Context, channel string, ev domain.ScanEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]domain.ScanEvent{}
	}
	p.events[channel] = append(p.events[channel], ev)
	return nil
}

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func fedRecords() (poly, kal []domain.MarketRecord) {
	title := "Will the Fed cut rates in March 2026?"
	poly = []domain.MarketRecord{{
		Venue: domain.VenuePolymarket, ID: "0xfed", Title: title,
		YesPrice: 0.40, Volume: 20000, Category: "Economics",
		DeepLink: "https://polymarket.com/event/fed-march",
	}}
	kal = []domain.MarketRecord{{
		Venue: domain.VenueKalshi, ID: "FED-26MAR", Title: title,
		YesPrice: 0.45, Volume: 5000, Category: "Economics",
		DeepLink: "https://kalshi.com/browse/fed",
	}}
	return poly, kal
}

func scanConfig() ScanConfig {
	return ScanConfig{
		General:      matching.DefaultOptions(),
		Sports:       matching.SportsOptions(),
		Value:        matching.DefaultValueOptions(),
		CacheTTL:     30 * time.Second,
		VenueTimeout: time.Second,
		Breaker:      BreakerConfig{Failures: 3, Timeout: time.Minute},
		HistoryMax:   2,
	}
}

func TestScanService_Arbitrage(t *testing.T) {
	ctx := context.Background()
	p, k := fedRecords()
	poly := &fakeSource{venue: domain.VenuePolymarket, records: p}
	kal := &fakeSource{venue: domain.VenueKalshi, records: k}
	history := sqlite.NewHistoryStore(openDB(t))
	pub := &recordingPublisher{}

	svc := NewScanService(ScanDeps{Polymarket: poly, Kalshi: kal, History: history, Publisher: pub}, scanConfig(), quietLogger())

	res, err := svc.Arbitrage(ctx)
	require.NoError(t, err)
	require.Len(t, res.Opportunities, 1)
	opp := res.Opportunities[0]
	assert.Equal(t, "Polymarket", opp.PlatformA)
	assert.Equal(t, 0.40, opp.PlatformAPrice)
	assert.InDelta(t, 12.5, opp.SpreadPercent, 1e-9)
	assert.Equal(t, 2, res.Metadata.MarketsScanned)
	assert.Equal(t, 1, res.Metadata.MatchesFound)

	entries, err := history.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Opportunities, 1)

	require.Len(t, pub.events[domain.ChannelArb], 1)
	assert.Equal(t, "arbitrage", pub.events[domain.ChannelArb][0].Kind)
}

func TestScanService_HistoryTrimmed(t *testing.T) {
	ctx := context.Background()
	p, k := fedRecords()
	history := sqlite.NewHistoryStore(openDB(t))
	svc := NewScanService(ScanDeps{
		Polymarket: &fakeSource{venue: domain.VenuePolymarket, records: p},
		Kalshi:     &fakeSource{venue: domain.VenueKalshi, records: k},
		History:    history,
	}, scanConfig(), quietLogger())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 4 {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		_, err := svc.Arbitrage(ctx)
		require.NoError(t, err)
	}

	entries, err := history.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Timestamp.Equal(base.Add(3*time.Minute)))
}

func TestScanService_VenueFailureDegrades(t *testing.T) {
	p, _ := fedRecords()
	poly := &fakeSource{venue: domain.VenuePolymarket, records: p}
	kal := &fakeSource{venue: domain.VenueKalshi, err: errors.New("kalshi: 503")}

	svc := NewScanService(ScanDeps{Polymarket: poly, Kalshi: kal}, scanConfig(), quietLogger())

	res, err := svc.Arbitrage(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Opportunities)
	assert.NotNil(t, res.Opportunities, "serialises as [] rather than null")
	assert.Equal(t, 1, res.Metadata.MarketsScanned)
}

func TestScanService_BreakerOpens(t *testing.T) {
	p, _ := fedRecords()
	poly := &fakeSource{venue: domain.VenuePolymarket, records: p}
	kal := &fakeSource{venue: domain.VenueKalshi, err: errors.New("timeout")}

	svc := NewScanService(ScanDeps{Polymarket: poly, Kalshi: kal}, scanConfig(), quietLogger())
	for range 5 {
		_, err := svc.Arbitrage(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), kal.calls.Load(), "open breaker short-circuits further fetches")
	assert.Equal(t, int32(5), poly.calls.Load())
}

func TestScanService_CallerCancelDoesNotTripBreaker(t *testing.T) {
	p, k := fedRecords()
	poly := &ctxSource{fakeSource{venue: domain.VenuePolymarket, records: p}}
	kal := &ctxSource{fakeSource{venue: domain.VenueKalshi, records: k}}
	history := sqlite.NewHistoryStore(openDB(t))
	pub := &recordingPublisher{}

	svc := NewScanService(ScanDeps{Polymarket: poly, Kalshi: kal, History: history, Publisher: pub}, scanConfig(), quietLogger())

	for range 5 {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Arbitrage(ctx)
		require.ErrorIs(t, err, context.Canceled)
	}

	entries, err := history.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "abandoned scans record nothing")
	assert.Empty(t, pub.events[domain.ChannelArb])

	res, err := svc.Arbitrage(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Opportunities, 1)
	assert.Equal(t, 2, res.Metadata.MarketsScanned)
	assert.Equal(t, int32(6), kal.calls.Load(), "breaker stayed closed")
}

func TestScanService_CachedAndRefresh(t *testing.T) {
	ctx := context.Background()
	p, k := fedRecords()
	poly := &fakeSource{venue: domain.VenuePolymarket, records: p}
	kal := &fakeSource{venue: domain.VenueKalshi, records: k}
	pub := &recordingPublisher{}

	svc := NewScanService(ScanDeps{Polymarket: poly, Kalshi: kal, Cache: &memCache{}, Publisher: pub}, scanConfig(), quietLogger())

	first, err := svc.Arbitrage(ctx)
	require.NoError(t, err)
	second, err := svc.Arbitrage(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), poly.calls.Load())
	assert.Len(t, pub.events[domain.ChannelArb], 1, "cache hits do not republish")

	require.NoError(t, svc.Refresh(ctx, KindArbitrage))
	assert.Equal(t, int32(2), poly.calls.Load())
}

func TestScanService_CacheFailureFallsBack(t *testing.T) {
	p, k := fedRecords()
	svc := NewScanService(ScanDeps{
		Polymarket: &fakeSource{venue: domain.VenuePolymarket, records: p},
		Kalshi:     &fakeSource{venue: domain.VenueKalshi, records: k},
		Cache:      brokenCache{},
	}, scanConfig(), quietLogger())

	res, err := svc.Arbitrage(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Opportunities, 1)
}

func TestScanService_Sports(t *testing.T) {
	ctx := context.Background()
	p, k := fedRecords()
	p = append(p, domain.MarketRecord{
		Venue: domain.VenuePolymarket, ID: "0xnba", Title: "Lakers vs Celtics",
		YesPrice: 0.40, Volume: 1000, Category: "NBA",
	})
	k = append(k, domain.MarketRecord{
		Venue: domain.VenueKalshi, ID: "NBA-LALBOS", Title: "Lakers vs Celtics",
		YesPrice: 0.46, Volume: 1000, Category: "Sports",
	})
	pub := &recordingPublisher{}
	svc := NewScanService(ScanDeps{
		Polymarket: &fakeSource{venue: domain.VenuePolymarket, records: p},
		Kalshi:     &fakeSource{venue: domain.VenueKalshi, records: k},
		Publisher:  pub,
	}, scanConfig(), quietLogger())

	res, err := svc.Sports(ctx)
	require.NoError(t, err)
	require.Len(t, res.Opportunities, 1)
	assert.Equal(t, "sports-1", res.Opportunities[0].ID)
	assert.Equal(t, 2, res.Metadata.MarketsScanned, "only sports records are scanned")
	assert.Len(t, pub.events[domain.ChannelSports], 1)
}

func TestScanService_Value(t *testing.T) {
	p, k := fedRecords()
	pub := &recordingPublisher{}
	svc := NewScanService(ScanDeps{
		Polymarket: &fakeSource{venue: domain.VenuePolymarket, records: p},
		Kalshi:     &fakeSource{venue: domain.VenueKalshi, records: k},
		Publisher:  pub,
	}, scanConfig(), quietLogger())

	res, err := svc.Value(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Picks, 1, "both sides share one market text")
	pick := res.Picks[0]
	assert.Equal(t, "Polymarket", pick.Platform)
	assert.Equal(t, domain.DirectionBuyYes, pick.Direction)
	assert.InDelta(t, 12.5, pick.EVPercent, 1e-9)
	assert.Equal(t, 2, res.Metadata.MarketsAnalyzed)
	assert.Equal(t, 1, res.Metadata.PicksFound)
	assert.Len(t, pub.events[domain.ChannelValue], 1)
}

func TestParseScanKind(t *testing.T) {
	k, err := ParseScanKind("sports")
	require.NoError(t, err)
	assert.Equal(t, KindSports, k)

	_, err = ParseScanKind("crypto")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStatusService(t *testing.T) {
	poly := &fakeSource{venue: domain.VenuePolymarket}
	kal := &fakeSource{venue: domain.VenueKalshi, pingErr: errors.New("dial tcp: refused")}
	svc := NewStatusService(poly, kal, 30*time.Second, quietLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	first := svc.Status(context.Background())
	assert.Equal(t, "up", first.Polymarket.Status)
	assert.Equal(t, "down", first.Kalshi.Status)
	assert.Equal(t, now, first.LastCheck)

	kal.pingErr = nil
	now = now.Add(10 * time.Second)
	assert.Equal(t, first, svc.Status(context.Background()), "served from cache within ttl")

	now = now.Add(30 * time.Second)
	assert.Equal(t, "up", svc.Status(context.Background()).Kalshi.Status)
}
