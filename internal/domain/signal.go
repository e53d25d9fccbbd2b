package domain

import "time"

// Signal bus channels.
const (
	ChannelArb    = "ch:arb"
	ChannelSports = "ch:sports"
	ChannelValue  = "ch:value"
	StreamScans   = "stream:scans"
)

// ScanEvent is published on the signal bus after every fresh scan.
type ScanEvent struct {
	Kind          string        `json:"kind"`
	Opportunities []Opportunity `json:"opportunities,omitempty"`
	Picks         []ValuePick   `json:"picks,omitempty"`
	ScannedAt     time.Time     `json:"scanned_at"`
}
