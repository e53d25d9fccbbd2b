package matching_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/arbscanner/internal/matching"
)

func TestSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical after normalize", "Will the Fed cut rates in March 2026?", "will the fed cut rates in march 2026", 1},
		{"disjoint", "abc", "xyz", 0},
		{"partial", "night", "nacht", 0.25},
		{"rephrased", "Will the Fed cut rates in March 2026?", "Fed cuts rates in March 2026", 0.8196721311},
		{"btc example", "Will Bitcoin exceed $150K by Dec 2026?", "BTC above $150,000 by December 2026", 0.5},
		{"single char", "a", "b", 0},
		{"empty vs text", "", "hello", 0},
		{"both empty", "", "!!", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, matching.Similarity(tc.a, tc.b), 1e-9)
		})
	}
}

func TestSimilarity_SymmetricAndBounded(t *testing.T) {
	texts := []string{
		"Will Trump win the 2028 election?",
		"Fed cuts rates in March 2026",
		"Lakers vs Celtics",
		"Los Angeles Lakers vs Boston Celtics",
		"x",
		"",
	}
	for _, a := range texts {
		assert.Equal(t, 1.0, matching.Similarity(a, a))
		for _, b := range texts {
			s := matching.Similarity(a, b)
			assert.Equal(t, s, matching.Similarity(b, a), "%q vs %q", a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestScorer_WithAliases(t *testing.T) {
	plain := matching.Scorer{}
	sports := matching.Scorer{Normalizer: matching.NewAliasNormalizer(matching.TeamAliases())}

	a, b := "Lakers vs Celtics", "Los Angeles Lakers vs Boston Celtics"
	assert.InDelta(t, 0.6666666667, plain.Score(a, b), 1e-9)
	assert.Equal(t, 1.0, sports.Score(a, b))
}
