package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

func TestDetect_CrossVenueHighConfidence(t *testing.T) {
	a := []domain.MarketRecord{poly("Will the Fed cut rates in March 2026?", 0.42, 0.56, 50000, "")}
	b := []domain.MarketRecord{kalshi("Fed cuts rates in March 2026", 0.38, 20000, "Economics")}

	res := matching.Detect(a, b, matching.DefaultOptions())

	assert.Equal(t, 2, res.MarketsScanned)
	assert.Equal(t, 1, res.Candidates)
	require.Len(t, res.Opportunities, 1)
	o := res.Opportunities[0]
	assert.Equal(t, "cross-1", o.ID)
	assert.Equal(t, domain.OpportunityCross, o.Type)
	assert.Equal(t, "Will the Fed cut rates in March 2026?", o.Event)
	assert.Equal(t, "Kalshi", o.PlatformA)
	assert.Equal(t, 0.38, o.PlatformAPrice)
	assert.Equal(t, "Polymarket", o.PlatformB)
	assert.Equal(t, 0.42, o.PlatformBPrice)
	assert.InDelta(t, 0.04, o.Spread, 1e-12)
	assert.InDelta(t, 0.04/0.38*100, o.SpreadPercent, 1e-9)
	assert.Equal(t, domain.ConfidenceHigh, o.Confidence)
	assert.Equal(t, "Economics", o.Category)
	assert.InDelta(t, 4, o.PotentialProfit, 1e-9)
	assert.Equal(t, 100.0, o.RequiredCapital)
	assert.Equal(t, 20000.0, o.VolumeA, "volumes follow the cheap side")
	assert.Equal(t, 50000.0, o.VolumeB)
	assert.Equal(t, "https://kalshi.com/browse/Fed cuts rates in March 2026", o.PlatformALink)
	assert.Equal(t, "Buy YES on Kalshi at 38.0¢, sell YES on Polymarket at 42.0¢. Match confidence: 82%", o.Details)
}

func TestDetect_ThresholdIsConfiguration(t *testing.T) {
	a := []domain.MarketRecord{poly("Will Bitcoin exceed $150K by Dec 2026?", 0.42, 0, 50000, "Crypto")}
	b := []domain.MarketRecord{kalshi("BTC above $150,000 by December 2026", 0.38, 20000, "")}

	strict := matching.Detect(a, b, matching.DefaultOptions())
	assert.Empty(t, strict.Opportunities, "a 0.50 match is below the default threshold")

	opts := matching.DefaultOptions()
	opts.MinMatchScore = 0.45
	loose := matching.Detect(a, b, opts)
	require.Len(t, loose.Opportunities, 1)
	o := loose.Opportunities[0]
	assert.Equal(t, 0.38, o.PlatformAPrice)
	assert.InDelta(t, 10.526, o.SpreadPercent, 1e-3)
	assert.InDelta(t, 0.5, o.MatchScore, 1e-9)
	assert.Equal(t, domain.ConfidenceLow, o.Confidence)
	assert.Equal(t, "Crypto", o.Category)
}

func TestDetect_ZeroSpreadFloor(t *testing.T) {
	title := "Will the Fed cut rates in March 2026?"
	a := []domain.MarketRecord{poly(title, 0.40, 0, 50000, "")}
	b := []domain.MarketRecord{kalshi(title, 0.395, 20000, "")}

	assert.Empty(t, matching.Detect(a, b, matching.DefaultOptions()).Opportunities)

	opts := matching.DefaultOptions()
	opts.MinSpreadPercent = 0
	res := matching.Detect(a, b, opts)
	require.Len(t, res.Opportunities, 1)
	assert.InDelta(t, 0.005/0.395*100, res.Opportunities[0].SpreadPercent, 1e-9)
}

func TestDetect_IntraMarket(t *testing.T) {
	a := []domain.MarketRecord{
		poly("Will it snow in Miami?", 0.40, 0.50, 8000, ""),
		poly("Fairly priced", 0.48, 0.50, 8000, ""),
	}

	res := matching.Detect(a, nil, matching.DefaultOptions())

	require.Len(t, res.Opportunities, 1)
	o := res.Opportunities[0]
	assert.Equal(t, "intra-1", o.ID)
	assert.Equal(t, domain.OpportunityIntra, o.Type)
	assert.Equal(t, "Polymarket YES", o.PlatformA)
	assert.Equal(t, "Polymarket NO", o.PlatformB)
	assert.InDelta(t, 10, o.SpreadPercent, 1e-9)
	assert.Equal(t, 1.0, o.MatchScore)
	assert.Equal(t, "Other", o.Category)
	assert.Equal(t, domain.ConfidenceMedium, o.Confidence)
	assert.Equal(t, "YES (40.0¢) + NO (50.0¢) = 90.0¢. Buy both for guaranteed 10.0¢ profit per share.", o.Details)
}

func TestDetect_SharedCounterAndPooledRanking(t *testing.T) {
	a := []domain.MarketRecord{
		poly("Will the Fed cut rates in March 2026?", 0.42, 0.56, 50000, ""),
		poly("Will it snow in Miami?", 0.40, 0.50, 8000, ""),
	}
	b := []domain.MarketRecord{kalshi("Fed cuts rates in March 2026", 0.38, 20000, "")}

	res := matching.Detect(a, b, matching.DefaultOptions())

	require.Len(t, res.Opportunities, 2)
	assert.Equal(t, "cross-1", res.Opportunities[0].ID)
	assert.Equal(t, "intra-2", res.Opportunities[1].ID)
}

func TestDetect_IntraDisabled(t *testing.T) {
	opts := matching.DefaultOptions()
	opts.IncludeIntra = false
	res := matching.Detect([]domain.MarketRecord{poly("x market", 0.40, 0.50, 0, "")}, nil, opts)
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 1, res.MarketsScanned)
}

func TestDetect_SkipsUnusablePrices(t *testing.T) {
	a := []domain.MarketRecord{poly("Will the Fed cut rates in March 2026?", 0.995, 0, 50000, "")}
	b := []domain.MarketRecord{kalshi("Fed cuts rates in March 2026", 0.38, 20000, "")}

	res := matching.Detect(a, b, matching.DefaultOptions())
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 0, res.Candidates)
}

func TestDetect_EmptyVenues(t *testing.T) {
	res := matching.Detect(nil, nil, matching.DefaultOptions())
	assert.NotNil(t, res.Opportunities)
	assert.Empty(t, res.Opportunities)
	assert.Equal(t, 0, res.MarketsScanned)
}

func TestDetect_ResultCapAndStake(t *testing.T) {
	var a []domain.MarketRecord
	for i := 0; i < 5; i++ {
		a = append(a, poly("Intra market number "+string(rune('a'+i)), 0.30+float64(i)*0.01, 0.40, 0, ""))
	}
	opts := matching.DefaultOptions()
	opts.ResultCap = 3
	opts.Stake = 250

	res := matching.Detect(a, nil, opts)
	require.Len(t, res.Opportunities, 3)
	assert.Equal(t, "Intra market number a", res.Opportunities[0].Event)
	assert.InDelta(t, 250*0.30, res.Opportunities[0].PotentialProfit, 1e-9)
	assert.Equal(t, 250.0, res.Opportunities[0].RequiredCapital)
}

func TestDetect_SportsPreset(t *testing.T) {
	a := []domain.MarketRecord{poly("Lakers vs Celtics", 0.45, 0, 30000, "NBA")}
	b := []domain.MarketRecord{kalshi("Los Angeles Lakers vs Boston Celtics", 0.40, 500, "Sports")}

	res := matching.Detect(a, b, matching.SportsOptions())

	require.Len(t, res.Opportunities, 1)
	o := res.Opportunities[0]
	assert.Equal(t, "sports-1", o.ID)
	assert.Equal(t, 1.0, o.MatchScore)
	assert.Equal(t, "NBA", o.Category)
	assert.Equal(t, domain.ConfidenceHigh, o.Confidence, "sports grading ignores thin volume")
	assert.Equal(t, "Sports arb: Buy YES on Kalshi at 40.0¢, sell on Polymarket at 45.0¢", o.Details)

	general := matching.Detect(a, b, matching.DefaultOptions())
	require.Len(t, general.Opportunities, 1)
	assert.Equal(t, domain.ConfidenceMedium, general.Opportunities[0].Confidence)
}

func TestFilterRecords_Sports(t *testing.T) {
	recs := []domain.MarketRecord{
		poly("a", 0.5, 0, 0, "NBA Finals"),
		poly("b", 0.5, 0, 0, "Politics"),
		poly("c", 0.5, 0, 0, "Pro Golf"),
		poly("d", 0.5, 0, 0, ""),
	}
	got := matching.FilterRecords(recs, matching.IsSportsCategory)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Title)
	assert.Equal(t, "c", got[1].Title)
}
