package kalshi

import (
	"regexp"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const browseURL = "https://kalshi.com/browse"

var contractSuffix = regexp.MustCompile(`-\d+$`)

// YesPrice converts a market's YES quote in cents to a probability: the
// bid/ask midpoint when both sides are quoted, otherwise whichever side is,
// otherwise 0.
func YesPrice(m KalshiMarket) float64 {
	switch {
	case m.YesBid != 0 && m.YesAsk != 0:
		return (m.YesBid + m.YesAsk) / 200
	case m.YesAsk != 0:
		return m.YesAsk / 100
	case m.YesBid != 0:
		return m.YesBid / 100
	default:
		return 0
	}
}

// EventLink builds the kalshi.com browse URL for an event, stripping any
// numeric contract suffix from the ticker.
func EventLink(eventTicker, ticker string) string {
	for _, t := range []string{eventTicker, ticker} {
		if t != "" {
			return browseURL + "/" + strings.ToLower(contractSuffix.ReplaceAllString(t, ""))
		}
	}
	return browseURL
}

// ToRecords flattens events into one record per nested market. The event's
// category applies to all of its markets.
func ToRecords(events []KalshiEvent) []domain.MarketRecord {
	var out []domain.MarketRecord
	for _, e := range events {
		for _, m := range e.Markets {
			category := e.Category
			if category == "" {
				category = m.Category
			}
			eventTicker := e.EventTicker
			if eventTicker == "" {
				eventTicker = m.EventTicker
			}
			out = append(out, domain.MarketRecord{
				Venue:      domain.VenueKalshi,
				ID:         m.Ticker,
				Title:      m.Title,
				EventTitle: e.Title,
				Subtitle:   m.Subtitle,
				YesPrice:   YesPrice(m),
				Volume:     float64(m.Volume),
				Category:   category,
				DeepLink:   EventLink(eventTicker, m.Ticker),
			})
		}
	}
	return out
}
