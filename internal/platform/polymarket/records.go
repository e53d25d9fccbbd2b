package polymarket

import (
	"encoding/json"
	"strconv"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const siteURL = "https://polymarket.com"

// ParseOutcomePrices decodes the JSON-encoded ["yes","no"] price pair. Any
// element that is missing or not numeric comes back as 0.
func ParseOutcomePrices(raw string) (yes, no float64) {
	var prices []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &prices); err != nil {
		return 0, 0
	}
	at := func(i int) float64 {
		if i >= len(prices) {
			return 0
		}
		var f flexFloat
		if err := json.Unmarshal(prices[i], &f); err != nil {
			return 0
		}
		return float64(f)
	}
	return at(0), at(1)
}

// MarketLink returns the polymarket.com page for a market, preferring the
// slug over the condition id.
func MarketLink(slug, conditionID string) string {
	switch {
	case slug != "":
		return siteURL + "/event/" + slug
	case conditionID != "":
		return siteURL + "/event/" + conditionID
	default:
		return siteURL
	}
}

// ToRecords converts Gamma markets to venue-neutral records.
func ToRecords(markets []APIMarket) []domain.MarketRecord {
	out := make([]domain.MarketRecord, 0, len(markets))
	for _, m := range markets {
		yes, no := ParseOutcomePrices(m.OutcomePrices)
		id := m.ConditionID
		if id == "" {
			id = m.ID
		}
		out = append(out, domain.MarketRecord{
			Venue:    domain.VenuePolymarket,
			ID:       id,
			Title:    m.Question,
			YesPrice: yes,
			NoPrice:  no,
			Volume:   float64(m.Volume),
			Category: m.Category,
			DeepLink: MarketLink(m.Slug, m.ConditionID),
		})
	}
	return out
}

// FormatVolume renders a volume the way the dashboard shows it ($1.2M, $35K, $800).
func FormatVolume(v float64) string {
	switch {
	case v >= 1_000_000:
		return "$" + strconv.FormatFloat(v/1_000_000, 'f', 1, 64) + "M"
	case v >= 1_000:
		return "$" + strconv.FormatFloat(v/1_000, 'f', 0, 64) + "K"
	default:
		return "$" + strconv.FormatFloat(v, 'f', 0, 64)
	}
}
