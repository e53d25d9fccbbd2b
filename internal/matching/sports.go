package matching

import (
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// SportsKeywords are matched as substrings of a venue's category label.
var SportsKeywords = []string{"sports", "nba", "nfl", "mlb", "nhl", "soccer", "mls", "ufc", "boxing", "tennis", "golf"}

// IsSportsCategory reports whether category mentions any sports keyword.
func IsSportsCategory(category string) bool {
	lower := strings.ToLower(category)
	for _, kw := range SportsKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// FilterRecords returns the records whose category satisfies keep.
func FilterRecords(records []domain.MarketRecord, keep func(category string) bool) []domain.MarketRecord {
	out := make([]domain.MarketRecord, 0, len(records))
	for _, r := range records {
		if keep(r.Category) {
			out = append(out, r)
		}
	}
	return out
}
