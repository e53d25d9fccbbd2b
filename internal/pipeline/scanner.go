package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/service"
)

// Refresher recomputes a scan kind and repopulates its cache.
type Refresher interface {
	Refresh(ctx context.Context, kind service.ScanKind) error
}

// Scanner keeps the cached scans warm so that history, webhooks and live
// subscribers see results even when no HTTP client is polling.
type Scanner struct {
	scans  Refresher
	kinds  []service.ScanKind
	logger *slog.Logger
}

// NewScanner creates a Scanner refreshing kinds in order on every tick.
func NewScanner(scans Refresher, kinds []service.ScanKind, logger *slog.Logger) *Scanner {
	return &Scanner{
		scans:  scans,
		kinds:  kinds,
		logger: logger.With(slog.String("component", "scanner")),
	}
}

// RunOnce refreshes every kind once. Failures are logged and the remaining
// kinds still run; the count of failed kinds is returned.
func (s *Scanner) RunOnce(ctx context.Context) int {
	failed := 0
	for _, k := range s.kinds {
		if err := s.scans.Refresh(ctx, k); err != nil {
			if ctx.Err() != nil {
				return failed
			}
			failed++
			s.logger.ErrorContext(ctx, "scheduled scan failed",
				slog.String("kind", string(k)),
				slog.String("error", err.Error()),
			)
		}
	}
	return failed
}

// RunLoop runs immediately and then every interval until ctx is cancelled.
func (s *Scanner) RunLoop(ctx context.Context, interval time.Duration) error {
	s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}
