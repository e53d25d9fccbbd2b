package domain

import "time"

// OpportunityType distinguishes cross-venue and single-market findings.
type OpportunityType string

const (
	OpportunityCross OpportunityType = "cross-platform"
	OpportunityIntra OpportunityType = "intra-market"
)

// Confidence is the qualitative tier attached to an opportunity or pick.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Opportunity is a detected mispricing. PlatformA is always the cheaper side.
type Opportunity struct {
	ID              string          `json:"id"`
	Event           string          `json:"event"`
	Type            OpportunityType `json:"type"`
	PlatformA       string          `json:"platformA"`
	PlatformAPrice  float64         `json:"platformAPrice"`
	PlatformALink   string          `json:"platformALink,omitempty"`
	PlatformB       string          `json:"platformB"`
	PlatformBPrice  float64         `json:"platformBPrice"`
	PlatformBLink   string          `json:"platformBLink,omitempty"`
	Spread          float64         `json:"spread"`
	SpreadPercent   float64         `json:"spreadPercent"`
	Category        string          `json:"category"`
	Confidence      Confidence      `json:"confidence"`
	PotentialProfit float64         `json:"potentialProfit"`
	RequiredCapital float64         `json:"requiredCapital"`
	MatchScore      float64         `json:"matchScore"`
	VolumeA         float64         `json:"volumeA"`
	VolumeB         float64         `json:"volumeB"`
	Details         string          `json:"details"`
}

// ScanMetadata summarises one detection pass.
type ScanMetadata struct {
	ScanTimeMs     int64     `json:"scan_time_ms"`
	MarketsScanned int       `json:"markets_scanned"`
	MatchesFound   int       `json:"matches_found"`
	Timestamp      time.Time `json:"timestamp"`
}

// ScanResult is what the arbitrage and sports endpoints return.
type ScanResult struct {
	Opportunities []Opportunity `json:"opportunities"`
	Metadata      ScanMetadata  `json:"metadata"`
}

// PickDirection is the suggested action on a value pick.
type PickDirection string

const (
	DirectionBuyYes PickDirection = "buy_yes"
	DirectionBuyNo  PickDirection = "buy_no"
	DirectionFade   PickDirection = "fade"
)

// ValuePick is a single market priced away from its estimated fair value.
type ValuePick struct {
	ID                 string        `json:"id"`
	Market             string        `json:"market"`
	Platform           string        `json:"platform"`
	CurrentPrice       float64       `json:"currentPrice"`
	EstimatedFairValue float64       `json:"estimatedFairValue"`
	EV                 float64       `json:"ev"`
	EVPercent          float64       `json:"evPercent"`
	Direction          PickDirection `json:"direction"`
	Category           string        `json:"category"`
	Confidence         Confidence    `json:"confidence"`
	Thesis             string        `json:"thesis"`
	Volume             float64       `json:"volume"`
	DeepLink           string        `json:"deepLink"`
	DetectedAt         time.Time     `json:"detectedAt"`
}

// ValueMetadata summarises one value scan.
type ValueMetadata struct {
	ScanTimeMs      int64     `json:"scan_time_ms"`
	MarketsAnalyzed int       `json:"markets_analyzed"`
	PicksFound      int       `json:"picks_found"`
	Timestamp       time.Time `json:"timestamp"`
}

// ValueScan is what the value endpoint returns.
type ValueScan struct {
	Picks    []ValuePick   `json:"picks"`
	Metadata ValueMetadata `json:"metadata"`
}
