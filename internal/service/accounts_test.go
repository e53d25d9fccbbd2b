package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/store/sqlite"
)

// countingLimiter is an in-memory fixed counter keyed like the Redis limiter.
type countingLimiter struct {
	mu   sync.Mutex
	used map[string]int
}

func (c *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.used == nil {
		c.used = map[string]int{}
	}
	if c.used[key] >= limit {
		return false, 0, nil
	}
	c.used[key]++
	return true, limit - c.used[key], nil
}

type listOnlyReader struct {
	prefix string
	infos  []domain.BlobInfo
}

func (l *listOnlyReader) Get(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (l *listOnlyReader) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	l.prefix = prefix
	return l.infos, nil
}

func (l *listOnlyReader) Exists(context.Context, string) (bool, error) { return false, nil }

func TestAPIKeyService_CreateAndCharge(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	audit := sqlite.NewAuditStore(db)
	svc := NewAPIKeyService(sqlite.NewAPIKeyStore(db), &countingLimiter{}, audit, "pepper", map[string]int{"free": 2}, quietLogger())

	raw, err := svc.Create(ctx, domain.TierFree, "ops")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "sb_free_"))

	q, err := svc.Charge(ctx, raw)
	require.NoError(t, err)
	assert.True(t, q.Allowed)
	assert.Equal(t, 1, q.Remaining)
	assert.Equal(t, 2, q.Limit)

	q, err = svc.Charge(ctx, raw)
	require.NoError(t, err)
	assert.True(t, q.Allowed)
	assert.Equal(t, 0, q.Remaining)

	q, err = svc.Charge(ctx, raw)
	require.NoError(t, err)
	assert.False(t, q.Allowed)
	assert.Equal(t, 0, q.Remaining)

	logged, err := audit.List(ctx, domain.ListOpts{Limit: 10})
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, "apikey.create", logged[0].Event)
}

func TestAPIKeyService_UnlimitedTier(t *testing.T) {
	ctx := context.Background()
	limiter := &countingLimiter{}
	svc := NewAPIKeyService(sqlite.NewAPIKeyStore(openDB(t)), limiter, nil, "pepper", nil, quietLogger())

	raw, err := svc.Create(ctx, domain.TierAPI, "")
	require.NoError(t, err)
	for range 5 {
		q, err := svc.Charge(ctx, raw)
		require.NoError(t, err)
		assert.True(t, q.Allowed)
		assert.Zero(t, q.Limit)
	}
	assert.Empty(t, limiter.used, "unlimited keys never touch the limiter")
}

func TestAPIKeyService_Rejects(t *testing.T) {
	ctx := context.Background()
	svc := NewAPIKeyService(sqlite.NewAPIKeyStore(openDB(t)), nil, nil, "pepper", nil, quietLogger())

	_, err := svc.Charge(ctx, "not-a-key")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Charge(ctx, "sb_pro_00000000000000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrUnauthorized, "well-formed but unknown")

	raw, err := svc.Create(ctx, domain.TierPro, "")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, raw))
	_, err = svc.Authenticate(ctx, raw)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Create(ctx, domain.Tier("gold"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWebhookService(t *testing.T) {
	ctx := context.Background()
	svc := NewWebhookService(sqlite.NewWebhookStore(openDB(t)))
	ids := []string{"hook-1", "hook-2"}
	svc.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	_, err := svc.Register(ctx, "", WebhookRequest{URL: "https://example.com/hook"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "min_spread_pct is required")

	floor := 3.5
	_, err = svc.Register(ctx, "", WebhookRequest{URL: "ftp://example.com", MinSpreadPct: &floor})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	sub, err := svc.Register(ctx, "", WebhookRequest{URL: "https://example.com/hook", MinSpreadPct: &floor})
	require.NoError(t, err)
	assert.Equal(t, "hook-1", sub.ID)
	assert.Equal(t, domain.AnonymousOwner, sub.Owner)
	assert.Equal(t, []string{}, sub.Categories)

	_, err = svc.Register(ctx, "digest-abc", WebhookRequest{URL: "https://example.com/other", MinSpreadPct: &floor})
	require.NoError(t, err)

	subs, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "hook-1", subs[0].ID)

	assert.ErrorIs(t, svc.Delete(ctx, "", "hook-2"), domain.ErrNotFound, "scoped by owner")
	assert.ErrorIs(t, svc.Delete(ctx, "", ""), domain.ErrInvalidInput)
	require.NoError(t, svc.Delete(ctx, "digest-abc", "hook-2"))
}

func TestBuildLeaderboard(t *testing.T) {
	entries := []domain.HistoryEntry{
		{Opportunities: []domain.Opportunity{
			{Event: "A", SpreadPercent: 1.5, PlatformA: "Kalshi", PlatformB: "Polymarket"},
			{Event: "B", SpreadPercent: 10.123, PlatformA: "Polymarket", PlatformB: "Kalshi", Confidence: domain.ConfidenceHigh},
		}},
		{},
		{Opportunities: []domain.Opportunity{{Event: "C", SpreadPercent: 3}}},
	}

	lb := BuildLeaderboard(entries)
	assert.Equal(t, 3, lb.TotalScans)
	assert.Equal(t, 3, lb.HistoryEntries)
	assert.Equal(t, 3, lb.TotalArbsDetected)
	assert.Equal(t, 2, lb.ProfitableCount)
	assert.InDelta(t, 4.87, lb.AvgSpreadPct, 1e-9)
	assert.InDelta(t, 66.67, lb.ProfitablePct, 1e-9)
	require.NotNil(t, lb.BestArb)
	assert.Equal(t, domain.BestArb{Event: "B", SpreadPct: 10.12, Platforms: "Polymarket vs Kalshi", Confidence: domain.ConfidenceHigh}, *lb.BestArb)

	empty := BuildLeaderboard(nil)
	assert.Nil(t, empty.BestArb)
	assert.Zero(t, empty.AvgSpreadPct)
}

func TestHistoryService(t *testing.T) {
	ctx := context.Background()
	store := sqlite.NewHistoryStore(openDB(t))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, domain.HistoryEntry{Timestamp: now.Add(-30 * time.Hour)}))
	require.NoError(t, store.Append(ctx, domain.HistoryEntry{Timestamp: now.Add(-time.Hour)}))

	reader := &listOnlyReader{infos: []domain.BlobInfo{{Path: "archive/history/2026-01.jsonl", Size: 42}}}
	svc := NewHistoryService(store, reader, "archive/history/")
	svc.now = func() time.Time { return now }

	recent, err := svc.History(ctx, 24)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	_, err = svc.History(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	archives, err := svc.Archives(ctx)
	require.NoError(t, err)
	assert.Len(t, archives, 1)
	assert.Equal(t, "archive/history/", reader.prefix)

	none, err := NewHistoryService(store, nil, "").Archives(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}
