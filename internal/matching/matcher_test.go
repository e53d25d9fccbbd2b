package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

func poly(title string, yes, no, vol float64, category string) domain.MarketRecord {
	return domain.MarketRecord{
		Venue:    domain.VenuePolymarket,
		ID:       title,
		Title:    title,
		YesPrice: yes,
		NoPrice:  no,
		Volume:   vol,
		Category: category,
		DeepLink: "https://polymarket.com/event/" + title,
	}
}

func kalshi(title string, yes, vol float64, category string) domain.MarketRecord {
	return domain.MarketRecord{
		Venue:    domain.VenueKalshi,
		ID:       title,
		Title:    title,
		YesPrice: yes,
		Volume:   vol,
		Category: category,
		DeepLink: "https://kalshi.com/browse/" + title,
	}
}

func TestMatchCandidates_EmptyInputs(t *testing.T) {
	recs := []domain.MarketRecord{poly("x", 0.5, 0, 0, "")}
	assert.Empty(t, matching.MatchCandidates(nil, recs, 0.5, matching.Scorer{}))
	assert.Empty(t, matching.MatchCandidates(recs, nil, 0.5, matching.Scorer{}))
}

func TestMatchCandidates_TakesBestDescriptor(t *testing.T) {
	a := []domain.MarketRecord{poly("Will the Fed cut rates in March 2026?", 0.42, 0, 0, "")}
	b := []domain.MarketRecord{{
		Venue:      domain.VenueKalshi,
		Title:      "March",
		EventTitle: "Will the Fed cut rates in March 2026",
		Subtitle:   "Before March 20",
	}}

	got := matching.MatchCandidates(a, b, 0.55, matching.Scorer{})
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Score)
}

func TestMatchCandidates_ThresholdAndOrder(t *testing.T) {
	a := []domain.MarketRecord{
		poly("Will the Fed cut rates in March 2026?", 0.42, 0, 0, ""),
		poly("Will Trump win the 2028 election?", 0.30, 0, 0, ""),
	}
	b := []domain.MarketRecord{
		kalshi("Trump wins the 2028 election", 0.33, 0, ""),
		kalshi("Fed cuts rates in March 2026", 0.38, 0, ""),
		kalshi("March 2026", 0.5, 0, ""),
	}

	got := matching.MatchCandidates(a, b, 0.55, matching.Scorer{})
	require.Len(t, got, 2)
	assert.Equal(t, "Fed cuts rates in March 2026", got[0].B.Title)
	assert.Equal(t, "Trump wins the 2028 election", got[1].B.Title)
	for _, c := range got {
		assert.GreaterOrEqual(t, c.Score, 0.55)
	}
}
