package domain

import "time"

// Tier is an API key's subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
	TierAPI  Tier = "api"
)

// Limit returns the hourly request allowance for the tier; 0 means unlimited.
func (t Tier) Limit() int {
	switch t {
	case TierFree:
		return 10
	case TierPro:
		return 100
	default:
		return 0
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierAPI:
		return true
	}
	return false
}

// APIKey is a stored key. Only the digest of the raw key is persisted.
type APIKey struct {
	Digest    string
	Tier      Tier
	Owner     string
	Active    bool
	CreatedAt time.Time
}

// VenueStatus is the reachability of one upstream venue.
type VenueStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

// StatusReport is the health of both venues at LastCheck.
type StatusReport struct {
	Polymarket VenueStatus `json:"polymarket"`
	Kalshi     VenueStatus `json:"kalshi"`
	LastCheck  time.Time   `json:"last_check"`
}
