package matching

import (
	"cmp"
	"math"
	"slices"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// ConfidencePolicy grades an opportunity from its spread, the two sides'
// volumes and the match score.
type ConfidencePolicy func(spreadPercent, volumeA, volumeB, matchScore float64) domain.Confidence

// Confidence is the general cross-venue policy. Rules are evaluated in order
// and the first hit wins.
func Confidence(spreadPercent, volumeA, volumeB, matchScore float64) domain.Confidence {
	switch {
	case matchScore > 0.8 && spreadPercent > 3 && volumeA > 10000 && volumeB > 1000:
		return domain.ConfidenceHigh
	case matchScore > 0.6 && spreadPercent > 2 && volumeA+volumeB > 5000:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// SportsConfidence grades on match score and spread alone.
func SportsConfidence(spreadPercent, _, _, matchScore float64) domain.Confidence {
	switch {
	case matchScore > 0.8 && spreadPercent > 3:
		return domain.ConfidenceHigh
	case matchScore > 0.6:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// ValueConfidence grades a value pick. crossVenue is true when the fair value
// came from a second venue rather than the market's own YES/NO sum.
func ValueConfidence(crossVenue bool, volumeTotal, evPercent float64) domain.Confidence {
	ev := math.Abs(evPercent)
	switch {
	case crossVenue && volumeTotal > 50000 && ev > 10:
		return domain.ConfidenceHigh
	case crossVenue && volumeTotal > 10000 && ev > 5:
		return domain.ConfidenceMedium
	case volumeTotal > 5000:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// Rank returns a copy of opps sorted by spread percent, widest first, keeping
// discovery order among equals, and truncated to limit. A limit of zero or
// less keeps everything.
func Rank(opps []domain.Opportunity, limit int) []domain.Opportunity {
	out := slices.Clone(opps)
	slices.SortStableFunc(out, func(a, b domain.Opportunity) int {
		return cmp.Compare(b.SpreadPercent, a.SpreadPercent)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Opportunity{}
	}
	return out
}
