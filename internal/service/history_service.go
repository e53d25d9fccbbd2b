package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// profitableSpreadPct is the spread above which a logged opportunity counts
// as profitable on the leaderboard.
const profitableSpreadPct = 2

// HistoryService reads scan history and the blob archive.
type HistoryService struct {
	store   domain.HistoryStore
	archive domain.BlobReader
	prefix  string
	now     func() time.Time
}

// NewHistoryService creates a HistoryService. archive may be nil when no
// object storage is configured; prefix is where archived months live.
func NewHistoryService(store domain.HistoryStore, archive domain.BlobReader, prefix string) *HistoryService {
	return &HistoryService{store: store, archive: archive, prefix: prefix, now: time.Now}
}

// History returns the entries logged in the last hours hours, oldest first.
func (s *HistoryService) History(ctx context.Context, hours int) ([]domain.HistoryEntry, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("history_service: %w: hours must be positive", domain.ErrInvalidInput)
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	entries, err := s.store.Since(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("history_service: since: %w", err)
	}
	return entries, nil
}

// Leaderboard aggregates every retained entry.
func (s *HistoryService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	entries, err := s.store.All(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("history_service: all: %w", err)
	}
	return BuildLeaderboard(entries), nil
}

// BuildLeaderboard computes leaderboard statistics over entries.
func BuildLeaderboard(entries []domain.HistoryEntry) domain.Leaderboard {
	lb := domain.Leaderboard{TotalScans: len(entries), HistoryEntries: len(entries)}

	var (
		sum  float64
		best *domain.Opportunity
	)
	for i := range entries {
		for j := range entries[i].Opportunities {
			o := &entries[i].Opportunities[j]
			lb.TotalArbsDetected++
			sum += o.SpreadPercent
			if o.SpreadPercent > profitableSpreadPct {
				lb.ProfitableCount++
			}
			if best == nil || o.SpreadPercent > best.SpreadPercent {
				best = o
			}
		}
	}
	if lb.TotalArbsDetected == 0 {
		return lb
	}

	lb.AvgSpreadPct = round2(sum / float64(lb.TotalArbsDetected))
	lb.ProfitablePct = round2(float64(lb.ProfitableCount) / float64(lb.TotalArbsDetected) * 100)
	lb.BestArb = &domain.BestArb{
		Event:      best.Event,
		SpreadPct:  round2(best.SpreadPercent),
		Platforms:  best.PlatformA + " vs " + best.PlatformB,
		Confidence: best.Confidence,
	}
	return lb
}

// Archives lists the archived history files, or none when no archive is
// configured.
func (s *HistoryService) Archives(ctx context.Context) ([]domain.BlobInfo, error) {
	if s.archive == nil {
		return []domain.BlobInfo{}, nil
	}
	infos, err := s.archive.List(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("history_service: list archives: %w", err)
	}
	if infos == nil {
		infos = []domain.BlobInfo{}
	}
	return infos, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
