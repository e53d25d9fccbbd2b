package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

var ts = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestOpportunities(t *testing.T) {
	var buf bytes.Buffer
	res := domain.ScanResult{
		Opportunities: []domain.Opportunity{{
			ID: "cross-1", Event: "Will the Fed cut rates in March 2026?",
			PlatformA: "Kalshi", PlatformAPrice: 0.38,
			PlatformB: "Polymarket", PlatformBPrice: 0.42,
			SpreadPercent: 10.526, PotentialProfit: 4, Confidence: domain.ConfidenceHigh, MatchScore: 0.85,
		}},
		Metadata: domain.ScanMetadata{ScanTimeMs: 812, MarketsScanned: 150, MatchesFound: 1, Timestamp: ts},
	}

	require.NoError(t, NewPrinter(&buf).Opportunities("arbitrage", res))
	out := buf.String()
	assert.Contains(t, out, "arbitrage: 1 opportunities from 150 markets in 812ms")
	assert.Contains(t, out, "cross-1")
	assert.Contains(t, out, "Kalshi 38.0¢")
	assert.Contains(t, out, "10.53%")
	assert.Contains(t, out, "85%")
}

func TestOpportunities_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).Opportunities("sports", domain.ScanResult{Metadata: domain.ScanMetadata{Timestamp: ts}}))
	assert.Contains(t, buf.String(), "No opportunities found.")
}

func TestValue(t *testing.T) {
	var buf bytes.Buffer
	res := domain.ValueScan{
		Picks: []domain.ValuePick{{
			ID: "val-1", Market: strings.Repeat("x", 80), Platform: "Polymarket",
			CurrentPrice: 0.40, EstimatedFairValue: 0.45, EVPercent: 12.5,
			Direction: domain.DirectionBuyYes, Confidence: domain.ConfidenceMedium,
		}},
		Metadata: domain.ValueMetadata{PicksFound: 1, MarketsAnalyzed: 2, Timestamp: ts},
	}

	require.NoError(t, NewPrinter(&buf).Value(res))
	out := buf.String()
	assert.Contains(t, out, "+12.5%")
	assert.Contains(t, out, "buy_yes")
	assert.Contains(t, out, strings.Repeat("x", marketWidth-3)+"...")
	assert.NotContains(t, out, strings.Repeat("x", marketWidth+1))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf).JSON(domain.ScanResult{Opportunities: []domain.Opportunity{}}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []any{}, decoded["opportunities"])
}
