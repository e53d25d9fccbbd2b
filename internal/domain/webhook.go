package domain

import "time"

// AnonymousOwner owns webhooks registered without an API key.
const AnonymousOwner = "anonymous"

// WebhookSubscription is a client's request to be told about new opportunities.
type WebhookSubscription struct {
	ID           string    `json:"id"`
	Owner        string    `json:"-"`
	URL          string    `json:"url"`
	MinSpreadPct float64   `json:"min_spread_pct"`
	Categories   []string  `json:"categories"`
	Platforms    []string  `json:"platforms"`
	Secret       string    `json:"secret,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
