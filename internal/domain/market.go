package domain

// Venue names the prediction market a record was fetched from.
type Venue string

const (
	VenuePolymarket Venue = "Polymarket"
	VenueKalshi     Venue = "Kalshi"
)

// MarketRecord is the venue-independent view of one binary market.
// A zero YesPrice or NoPrice means the venue did not report a usable price.
type MarketRecord struct {
	Venue      Venue
	ID         string
	Title      string
	EventTitle string
	Subtitle   string
	YesPrice   float64
	NoPrice    float64
	Volume     float64
	Category   string
	DeepLink   string
}

// Descriptors returns the non-empty text fields a matcher may compare against,
// in title, event title, subtitle order.
func (m MarketRecord) Descriptors() []string {
	out := make([]string, 0, 3)
	for _, s := range []string{m.Title, m.EventTitle, m.Subtitle} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// HasNo reports whether the record carries a NO price.
func (m MarketRecord) HasNo() bool {
	return m.NoPrice > 0
}
