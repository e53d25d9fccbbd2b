package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/platform/kalshi"
	"github.com/alanyoungcy/arbscanner/internal/platform/polymarket"
)

// MarketSource fetches one venue's current markets as normalized records.
type MarketSource interface {
	Venue() domain.Venue
	Fetch(ctx context.Context) ([]domain.MarketRecord, error)
	Ping(ctx context.Context) error
}

// KalshiSource adapts the Kalshi REST client to MarketSource.
type KalshiSource struct {
	client *kalshi.Client
	limit  int
}

// NewKalshiSource creates a source that lists up to limit open events.
func NewKalshiSource(client *kalshi.Client, limit int) *KalshiSource {
	return &KalshiSource{client: client, limit: limit}
}

func (s *KalshiSource) Venue() domain.Venue { return domain.VenueKalshi }

func (s *KalshiSource) Fetch(ctx context.Context) ([]domain.MarketRecord, error) {
	events, err := s.client.GetEvents(ctx, s.limit)
	if err != nil {
		return nil, err
	}
	return kalshi.ToRecords(events), nil
}

func (s *KalshiSource) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

// GammaSource adapts the Polymarket Gamma client to MarketSource.
type GammaSource struct {
	client *polymarket.GammaClient
	limit  int
}

// NewGammaSource creates a source that lists the limit highest-volume open
// markets.
func NewGammaSource(client *polymarket.GammaClient, limit int) *GammaSource {
	return &GammaSource{client: client, limit: limit}
}

func (s *GammaSource) Venue() domain.Venue { return domain.VenuePolymarket }

func (s *GammaSource) Fetch(ctx context.Context) ([]domain.MarketRecord, error) {
	q := polymarket.DefaultMarketQuery()
	q.Limit = s.limit
	markets, err := s.client.ListMarkets(ctx, q)
	if err != nil {
		return nil, err
	}
	return polymarket.ToRecords(markets), nil
}

func (s *GammaSource) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

// BreakerConfig tunes the per-venue circuit breaker.
type BreakerConfig struct {
	// Failures is the number of consecutive failures that opens the breaker.
	Failures uint32
	// Timeout is how long the breaker stays open before a trial request.
	Timeout time.Duration
}

// errCallerGone marks a fetch abandoned because the caller's context ended.
var errCallerGone = errors.New("caller context done")

// guardedSource wraps a MarketSource with a timeout and a circuit breaker,
// and degrades every failure to an empty list.
type guardedSource struct {
	src     MarketSource
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics *metrics.Registry
	logger  *slog.Logger
}

func newGuardedSource(src MarketSource, bc BreakerConfig, timeout time.Duration, m *metrics.Registry, logger *slog.Logger) *guardedSource {
	failures := bc.Failures
	if failures == 0 {
		failures = 3
	}
	name := string(src.Venue())
	log := logger.With(slog.String("venue", name))
	st := gobreaker.Settings{
		Name:    name,
		Timeout: bc.Timeout,
		// A caller that went away says nothing about the venue.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerGone)
		},
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			log.Warn("venue breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &guardedSource{
		src:     src,
		cb:      gobreaker.NewCircuitBreaker(st),
		timeout: timeout,
		metrics: m,
		logger:  log,
	}
}

// fetch never fails: an unreachable venue contributes no records. When the
// caller's own context ends, the venue is not blamed and callers are
// expected to check ctx.Err().
func (g *guardedSource) fetch(ctx context.Context) []domain.MarketRecord {
	parent := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	v, err := g.cb.Execute(func() (any, error) {
		records, err := g.src.Fetch(ctx)
		if err != nil && parent.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return records, err
	})
	venue := string(g.src.Venue())
	if errors.Is(err, errCallerGone) {
		g.logger.DebugContext(ctx, "venue fetch abandoned by caller",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %w", domain.ErrVenueDown, err)
		}
		g.metrics.ObserveVenue(venue, 0, err)
		g.logger.WarnContext(ctx, "venue fetch failed, continuing without it",
			slog.String("error", err.Error()),
		)
		return nil
	}
	records := v.([]domain.MarketRecord)
	g.metrics.ObserveVenue(venue, len(records), nil)
	return records
}
