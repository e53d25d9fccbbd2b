package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const pingTimeout = 5 * time.Second

// StatusService reports venue reachability, cached for a short TTL.
type StatusService struct {
	poly   MarketSource
	kalshi MarketSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	last    domain.StatusReport
	checked time.Time
}

// NewStatusService creates a StatusService whose report is reused for ttl.
func NewStatusService(poly, kalshi MarketSource, ttl time.Duration, logger *slog.Logger) *StatusService {
	return &StatusService{
		poly:   poly,
		kalshi: kalshi,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "status_service")),
		now:    time.Now,
	}
}

// Status returns the cached report, pinging both venues when it is stale.
func (s *StatusService) Status(ctx context.Context) domain.StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.checked.IsZero() && now.Sub(s.checked) < s.ttl {
		return s.last
	}

	var report domain.StatusReport
	var g errgroup.Group
	g.Go(func() error {
		report.Polymarket = s.ping(ctx, s.poly)
		return nil
	})
	g.Go(func() error {
		report.Kalshi = s.ping(ctx, s.kalshi)
		return nil
	})
	_ = g.Wait()
	report.LastCheck = s.now().UTC()

	s.last = report
	s.checked = now
	return report
}

func (s *StatusService) ping(ctx context.Context, src MarketSource) domain.VenueStatus {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := s.now()
	err := src.Ping(ctx)
	st := domain.VenueStatus{Status: "up", LatencyMs: s.now().Sub(start).Milliseconds()}
	if err != nil {
		st.Status = "down"
		s.logger.DebugContext(ctx, "venue ping failed",
			slog.String("venue", string(src.Venue())),
			slog.String("error", err.Error()),
		)
	}
	return st
}
