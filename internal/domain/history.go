package domain

import "time"

// HistoryEntry records the outcome of one fresh arbitrage scan.
type HistoryEntry struct {
	ID             int64         `json:"-"`
	Timestamp      time.Time     `json:"timestamp"`
	ScanTimeMs     int64         `json:"scan_time_ms"`
	MarketsScanned int           `json:"markets_scanned"`
	Opportunities  []Opportunity `json:"opportunities"`
}

// BestArb is the widest spread observed across retained history.
type BestArb struct {
	Event      string     `json:"event"`
	SpreadPct  float64    `json:"spread_pct"`
	Platforms  string     `json:"platforms"`
	Confidence Confidence `json:"confidence"`
}

// Leaderboard aggregates retained history.
type Leaderboard struct {
	TotalScans        int      `json:"total_scans"`
	TotalArbsDetected int      `json:"total_arbs_detected"`
	AvgSpreadPct      float64  `json:"avg_spread_pct"`
	ProfitableCount   int      `json:"profitable_count"`
	ProfitablePct     float64  `json:"profitable_pct"`
	BestArb           *BestArb `json:"best_arb"`
	HistoryEntries    int      `json:"history_entries"`
}
