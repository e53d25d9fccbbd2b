package kalshi

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// KalshiEvent is an event with its nested markets, as returned by
// GET /events?with_nested_markets=true.
type KalshiEvent struct {
	EventTicker  string         `json:"event_ticker"`
	SeriesTicker string         `json:"series_ticker"`
	Title        string         `json:"title"`
	SubTitle     string         `json:"sub_title"`
	Category     string         `json:"category"`
	Markets      []KalshiMarket `json:"markets"`
}

// KalshiMarket represents a market as returned by the Kalshi REST API.
// Prices are in cents (1-99); zero means no quote.
type KalshiMarket struct {
	Ticker       string  `json:"ticker"`
	EventTicker  string  `json:"event_ticker"`
	Title        string  `json:"title"`
	Subtitle     string  `json:"subtitle"`
	Status       string  `json:"status"` // "open", "closed", "settled"
	YesBid       float64 `json:"yes_bid"`
	YesAsk       float64 `json:"yes_ask"`
	NoBid        float64 `json:"no_bid"`
	NoAsk        float64 `json:"no_ask"`
	LastPrice    float64 `json:"last_price"`
	Volume       int64   `json:"volume"`
	Volume24H    int64   `json:"volume_24h"`
	OpenInterest int64   `json:"open_interest"`
	Category     string  `json:"category"`
	CloseTime    string  `json:"close_time"`
	Result       string  `json:"result"` // "yes", "no", "" (unsettled)
}

// KalshiEventsResponse is the GET /events envelope.
type KalshiEventsResponse struct {
	Events []KalshiEvent `json:"events"`
	Cursor string        `json:"cursor"`
}

// KalshiErrorResponse represents a Kalshi API error response.
type KalshiErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
