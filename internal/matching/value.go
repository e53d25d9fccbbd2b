package matching

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// ValueOptions tunes DetectValue.
type ValueOptions struct {
	MinMatchScore float64
	// MinEVPercent is the edge a side needs before it becomes a pick.
	MinEVPercent float64
	// MinSumDeviation is how far YES+NO must stray from 1 before a market's
	// own prices are used as a fair-value reference.
	MinSumDeviation float64
	ResultCap       int
	Scorer          Scorer
	Now             time.Time
}

// DefaultValueOptions mirrors the general match threshold.
func DefaultValueOptions() ValueOptions {
	return ValueOptions{
		MinMatchScore:   0.55,
		MinEVPercent:    5,
		MinSumDeviation: 0.03,
		ResultCap:       50,
	}
}

// Categorize folds a venue category label into Sports, Politics, Crypto or World.
func Categorize(category string) string {
	c := strings.ToLower(category)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(c, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("sport", "nba", "nfl", "mlb", "soccer", "football"):
		return "Sports"
	case has("politic", "election", "president", "congress"):
		return "Politics"
	case has("crypto", "bitcoin", "btc", "eth"):
		return "Crypto"
	default:
		return "World"
	}
}

// DetectValue estimates fair values and returns markets priced away from
// them, largest edge first, at most one pick per market text.
//
// Matched cross-venue pairs use the mean of both prices as fair value and can
// yield a pick on either side. Single markets whose YES and NO do not sum to
// 1 use the normalized prices as fair value.
func DetectValue(a, b []domain.MarketRecord, opts ValueOptions) []domain.ValuePick {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	seq := 0
	nextID := func() string {
		seq++
		return fmt.Sprintf("val-%d", seq)
	}
	var picks []domain.ValuePick

	for _, c := range MatchCandidates(priced(a), priced(b), opts.MinMatchScore, opts.Scorer) {
		fair := FairValue(c.A.YesPrice, c.B.YesPrice)
		category := Categorize(c.A.Category)
		volTotal := c.A.Volume + c.B.Volume
		sides := []struct{ self, other domain.MarketRecord }{{c.A, c.B}, {c.B, c.A}}
		for _, side := range sides {
			ev, evPct := Edge(side.self.YesPrice, fair)
			if math.Abs(evPct) <= opts.MinEVPercent {
				continue
			}
			dir := domain.DirectionFade
			if ev > 0 {
				dir = domain.DirectionBuyYes
			}
			picks = append(picks, domain.ValuePick{
				ID:                 nextID(),
				Market:             primaryText(side.self),
				Platform:           string(side.self.Venue),
				CurrentPrice:       side.self.YesPrice,
				EstimatedFairValue: fair,
				EV:                 ev,
				EVPercent:          evPct,
				Direction:          dir,
				Category:           category,
				Confidence:         ValueConfidence(true, volTotal, evPct),
				Thesis:             crossThesis(side.self, side.other),
				Volume:             side.self.Volume,
				DeepLink:           side.self.DeepLink,
				DetectedAt:         now,
			})
		}
	}

	for _, list := range [][]domain.MarketRecord{a, b} {
		for _, r := range list {
			if !r.HasNo() || r.YesPrice < MinPrice || r.NoPrice < MinPrice {
				continue
			}
			sum := r.YesPrice + r.NoPrice
			if math.Abs(sum-1) <= opts.MinSumDeviation {
				continue
			}
			fairYes, fairNo, ok := IntraFairValue(r.YesPrice, r.NoPrice)
			if !ok {
				continue
			}
			sides := []struct {
				label string
				price float64
				fair  float64
				dir   domain.PickDirection
			}{
				{"YES", r.YesPrice, fairYes, domain.DirectionBuyYes},
				{"NO", r.NoPrice, fairNo, domain.DirectionBuyNo},
			}
			for _, side := range sides {
				ev, evPct := Edge(side.price, side.fair)
				if evPct <= opts.MinEVPercent {
					continue
				}
				picks = append(picks, domain.ValuePick{
					ID:                 nextID(),
					Market:             primaryText(r),
					Platform:           string(r.Venue),
					CurrentPrice:       side.price,
					EstimatedFairValue: side.fair,
					EV:                 ev,
					EVPercent:          evPct,
					Direction:          side.dir,
					Category:           Categorize(r.Category),
					Confidence:         ValueConfidence(false, r.Volume, evPct),
					Thesis: fmt.Sprintf("YES + NO = %.0f¢ (should be ~100¢). %s at %.0f¢ is underpriced; normalized fair value is %.0f¢.",
						sum*100, side.label, side.price*100, side.fair*100),
					Volume:     r.Volume,
					DeepLink:   r.DeepLink,
					DetectedAt: now,
				})
			}
		}
	}

	return rankPicks(picks, opts.ResultCap)
}

func crossThesis(self, other domain.MarketRecord) string {
	cheaper := other.Venue
	if self.YesPrice < other.YesPrice {
		cheaper = self.Venue
	}
	gap := math.Abs(self.YesPrice-other.YesPrice) * 100
	return fmt.Sprintf("%s prices this at %.0f¢ while %s has %.0f¢. The %.0f¢ gap suggests %s is undervalued.",
		other.Venue, other.YesPrice*100, self.Venue, self.YesPrice*100, gap, cheaper)
}

// rankPicks sorts by absolute edge, keeps the best pick per market (keyed on
// the first 60 characters of its lowercased text) and truncates to limit.
func rankPicks(picks []domain.ValuePick, limit int) []domain.ValuePick {
	slices.SortStableFunc(picks, func(x, y domain.ValuePick) int {
		return cmp.Compare(math.Abs(y.EVPercent), math.Abs(x.EVPercent))
	})
	seen := make(map[string]struct{}, len(picks))
	out := make([]domain.ValuePick, 0, len(picks))
	for _, p := range picks {
		key := strings.ToLower(p.Market)
		if r := []rune(key); len(r) > 60 {
			key = string(r[:60])
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
