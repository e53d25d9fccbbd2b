package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/notify"
)

// ScanKind names one of the three scans the service runs.
type ScanKind string

const (
	KindArbitrage ScanKind = "arbitrage"
	KindSports    ScanKind = "sports"
	KindValue     ScanKind = "value"
)

// ParseScanKind validates a user-supplied kind.
func ParseScanKind(s string) (ScanKind, error) {
	switch k := ScanKind(s); k {
	case KindArbitrage, KindSports, KindValue:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown scan kind %q", domain.ErrInvalidInput, s)
}

func (k ScanKind) channel() string {
	switch k {
	case KindSports:
		return domain.ChannelSports
	case KindValue:
		return domain.ChannelValue
	default:
		return domain.ChannelArb
	}
}

// ScanPublisher announces fresh scans to live subscribers.
type ScanPublisher interface {
	PublishScan(ctx context.Context, channel string, ev domain.ScanEvent) error
}

// ScanConfig holds the detection presets and scan timing.
type ScanConfig struct {
	General      matching.Options
	Sports       matching.Options
	Value        matching.ValueOptions
	CacheTTL     time.Duration
	VenueTimeout time.Duration
	Breaker      BreakerConfig
	// HistoryMax is how many history entries are retained. Zero keeps all.
	HistoryMax int
}

// ScanDeps are the collaborators of a ScanService. Everything except the two
// sources is optional: the one-shot CLI scan runs with none of them.
type ScanDeps struct {
	Polymarket MarketSource
	Kalshi     MarketSource

	Cache      domain.ScanCache
	History    domain.HistoryStore
	Webhooks   domain.WebhookStore
	Dispatcher *notify.WebhookDispatcher
	Publisher  ScanPublisher
	Notifier   *notify.Notifier
	Metrics    *metrics.Registry
}

// ScanService fetches both venues, runs detection, and fans fresh results out
// to history, webhooks, the signal bus and chat notifiers.
type ScanService struct {
	poly   *guardedSource
	kalshi *guardedSource
	deps   ScanDeps
	cfg    ScanConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewScanService creates a ScanService.
func NewScanService(deps ScanDeps, cfg ScanConfig, logger *slog.Logger) *ScanService {
	log := logger.With(slog.String("component", "scan_service"))
	return &ScanService{
		poly:   newGuardedSource(deps.Polymarket, cfg.Breaker, cfg.VenueTimeout, deps.Metrics, log),
		kalshi: newGuardedSource(deps.Kalshi, cfg.Breaker, cfg.VenueTimeout, deps.Metrics, log),
		deps:   deps,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
	}
}

// EmptyScanResult is the body served when a scan fails.
func EmptyScanResult(now time.Time) domain.ScanResult {
	return domain.ScanResult{
		Opportunities: []domain.Opportunity{},
		Metadata:      domain.ScanMetadata{Timestamp: now.UTC()},
	}
}

// Arbitrage returns the general cross-venue and intra-market scan.
func (s *ScanService) Arbitrage(ctx context.Context) (domain.ScanResult, error) {
	return s.scanResult(ctx, KindArbitrage)
}

// Sports returns the sports-only scan with team alias folding.
func (s *ScanService) Sports(ctx context.Context) (domain.ScanResult, error) {
	return s.scanResult(ctx, KindSports)
}

// Value returns single-market value picks.
func (s *ScanService) Value(ctx context.Context) (domain.ValueScan, error) {
	var out domain.ValueScan
	if err := s.cached(ctx, KindValue, &out); err != nil {
		return domain.ValueScan{}, err
	}
	return out, nil
}

func (s *ScanService) scanResult(ctx context.Context, kind ScanKind) (domain.ScanResult, error) {
	var out domain.ScanResult
	if err := s.cached(ctx, kind, &out); err != nil {
		return EmptyScanResult(s.now()), err
	}
	return out, nil
}

// Refresh computes kind afresh, bypassing and then repopulating the cache.
func (s *ScanService) Refresh(ctx context.Context, kind ScanKind) error {
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx, string(kind)); err != nil {
			s.logger.WarnContext(ctx, "scan_service: invalidate failed",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
		}
	}
	var discard json.RawMessage
	return s.cached(ctx, kind, &discard)
}

// cached decodes the cached payload for kind into out, computing it when
// the cache is cold or absent.
func (s *ScanService) cached(ctx context.Context, kind ScanKind, out any) error {
	computed := false
	compute := func(ctx context.Context) ([]byte, error) {
		computed = true
		return s.compute(ctx, kind)
	}

	var (
		data []byte
		err  error
	)
	if s.deps.Cache != nil {
		data, err = s.deps.Cache.GetOrCompute(ctx, string(kind), s.cfg.CacheTTL, compute)
		if err != nil && !computed && ctx.Err() == nil {
			// Cache backend failure: serve an uncached scan instead.
			s.logger.WarnContext(ctx, "scan_service: cache unavailable, computing directly",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
			data, err = compute(ctx)
		}
	} else {
		data, err = compute(ctx)
	}
	if err != nil {
		s.deps.Metrics.ObserveScan(string(kind), 0, 0, err)
		return fmt.Errorf("scan_service: %s: %w", kind, err)
	}
	s.deps.Metrics.ObserveCache(string(kind), computed)

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("scan_service: decode %s: %w", kind, err)
	}
	return nil
}

// compute runs one fresh scan and returns its JSON encoding.
func (s *ScanService) compute(ctx context.Context, kind ScanKind) ([]byte, error) {
	start := s.now()
	poly, kal := s.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		payload any
		found   int
	)
	switch kind {
	case KindValue:
		opts := s.cfg.Value
		opts.Now = start
		picks := matching.DetectValue(poly, kal, opts)
		if picks == nil {
			picks = []domain.ValuePick{}
		}
		found = len(picks)
		payload = domain.ValueScan{
			Picks: picks,
			Metadata: domain.ValueMetadata{
				ScanTimeMs:      s.now().Sub(start).Milliseconds(),
				MarketsAnalyzed: len(poly) + len(kal),
				PicksFound:      len(picks),
				Timestamp:       start.UTC(),
			},
		}
		s.afterValue(ctx, picks, start)

	default:
		opts := s.cfg.General
		if kind == KindSports {
			opts = s.cfg.Sports
			poly = matching.FilterRecords(poly, matching.IsSportsCategory)
			kal = matching.FilterRecords(kal, matching.IsSportsCategory)
		}
		res := matching.Detect(poly, kal, opts)
		opps := res.Opportunities
		if opps == nil {
			opps = []domain.Opportunity{}
		}
		found = len(opps)
		result := domain.ScanResult{
			Opportunities: opps,
			Metadata: domain.ScanMetadata{
				ScanTimeMs:     s.now().Sub(start).Milliseconds(),
				MarketsScanned: res.MarketsScanned,
				MatchesFound:   len(opps),
				Timestamp:      start.UTC(),
			},
		}
		payload = result
		s.afterScan(ctx, kind, result)
	}

	s.deps.Metrics.ObserveScan(string(kind), s.now().Sub(start), found, nil)
	s.logger.InfoContext(ctx, "scan complete",
		slog.String("kind", string(kind)),
		slog.Int("poly_markets", len(poly)),
		slog.Int("kalshi_markets", len(kal)),
		slog.Int("found", found),
		slog.Duration("took", s.now().Sub(start)),
	)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// fetchAll fetches both venues concurrently. Each side degrades to an empty
// list on failure.
func (s *ScanService) fetchAll(ctx context.Context) (poly, kal []domain.MarketRecord) {
	var g errgroup.Group
	g.Go(func() error {
		poly = s.poly.fetch(ctx)
		return nil
	})
	g.Go(func() error {
		kal = s.kalshi.fetch(ctx)
		return nil
	})
	_ = g.Wait()
	return poly, kal
}

// afterScan fans a fresh arbitrage or sports result out to the side
// channels. Side-channel failures are logged and never fail the scan.
func (s *ScanService) afterScan(ctx context.Context, kind ScanKind, res domain.ScanResult) {
	if s.deps.History != nil {
		s.recordHistory(ctx, res)
	}

	if s.deps.Webhooks != nil && s.deps.Dispatcher != nil && len(res.Opportunities) > 0 {
		subs, err := s.deps.Webhooks.ListAll(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "scan_service: list webhooks failed", slog.String("error", err.Error()))
		} else {
			n := s.deps.Dispatcher.Dispatch(ctx, subs, res.Opportunities)
			s.deps.Metrics.ObserveWebhooks(notify.WebhookEvent, n)
		}
	}

	if s.deps.Publisher != nil {
		ev := domain.ScanEvent{Kind: string(kind), Opportunities: res.Opportunities, ScannedAt: res.Metadata.Timestamp}
		if err := s.deps.Publisher.PublishScan(ctx, kind.channel(), ev); err != nil {
			s.logger.WarnContext(ctx, "scan_service: publish failed", slog.String("error", err.Error()))
		}
	}

	if s.deps.Notifier.Enabled() {
		if err := s.deps.Notifier.NotifyOpportunities(ctx, string(kind), res.Opportunities); err != nil {
			s.logger.WarnContext(ctx, "scan_service: notify failed", slog.String("error", err.Error()))
		}
	}
}

func (s *ScanService) afterValue(ctx context.Context, picks []domain.ValuePick, at time.Time) {
	if s.deps.Publisher == nil {
		return
	}
	ev := domain.ScanEvent{Kind: string(KindValue), Picks: picks, ScannedAt: at.UTC()}
	if err := s.deps.Publisher.PublishScan(ctx, KindValue.channel(), ev); err != nil {
		s.logger.WarnContext(ctx, "scan_service: publish failed", slog.String("error", err.Error()))
	}
}

func (s *ScanService) recordHistory(ctx context.Context, res domain.ScanResult) {
	entry := domain.HistoryEntry{
		Timestamp:      res.Metadata.Timestamp,
		ScanTimeMs:     res.Metadata.ScanTimeMs,
		MarketsScanned: res.Metadata.MarketsScanned,
		Opportunities:  res.Opportunities,
	}
	if err := s.deps.History.Append(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "scan_service: append history failed", slog.String("error", err.Error()))
		return
	}
	if s.cfg.HistoryMax <= 0 {
		return
	}
	if n, err := s.deps.History.Trim(ctx, s.cfg.HistoryMax); err != nil {
		s.logger.WarnContext(ctx, "scan_service: trim history failed", slog.String("error", err.Error()))
	} else if n > 0 {
		s.logger.DebugContext(ctx, "history trimmed", slog.Int64("removed", n))
	}
}
