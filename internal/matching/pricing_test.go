package matching_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/matching"
)

func TestCrossSpread(t *testing.T) {
	_, ok := matching.CrossSpread(0.50, 0.50)
	assert.False(t, ok, "zero spread is below the noise floor")

	s, ok := matching.CrossSpread(0.40, 0.38)
	assert.True(t, ok)
	assert.InDelta(t, 0.02, s.Spread, 1e-12)
	assert.InDelta(t, 0.02/0.38*100, s.Percent, 1e-9)

	rev, ok := matching.CrossSpread(0.38, 0.40)
	assert.True(t, ok)
	assert.Equal(t, s, rev)
}

func TestCrossSpread_Boundaries(t *testing.T) {
	for _, p := range [][2]float64{{0.01, 0.5}, {0.5, 0.01}, {0.99, 0.5}, {0.5, 0.99}, {0, 0.5}, {1, 0.5}, {math.NaN(), 0.5}} {
		_, ok := matching.CrossSpread(p[0], p[1])
		assert.False(t, ok, "prices %v", p)
	}
	_, ok := matching.CrossSpread(0.011, 0.5)
	assert.False(t, ok, "a spread above the ceiling is a bad match")

	_, ok = matching.CrossSpread(0.10, 0.25)
	assert.False(t, ok, "150 percent is above the ceiling")

	s, ok := matching.CrossSpread(0.25, 0.50)
	assert.True(t, ok, "exactly 100 percent is allowed")
	assert.InDelta(t, 100, s.Percent, 1e-9)
}

func TestIntraGap(t *testing.T) {
	s, ok := matching.IntraGap(0.40, 0.50)
	assert.True(t, ok)
	assert.InDelta(t, 0.10, s.Spread, 1e-12)
	assert.InDelta(t, 10, s.Percent, 1e-9)

	_, ok = matching.IntraGap(0.48, 0.50)
	assert.False(t, ok, "a sum of 0.98 is within bid/ask noise")

	_, ok = matching.IntraGap(0.005, 0.50)
	assert.False(t, ok)

	s, ok = matching.IntraGap(0.01, 0.01)
	assert.True(t, ok)
	assert.InDelta(t, 98, s.Percent, 1e-9)
}

func TestCalculator_CustomFloor(t *testing.T) {
	calc := matching.Calculator{MinSpreadPercent: 10, MaxSpreadPercent: 50}

	_, ok := calc.Cross(0.40, 0.38)
	assert.False(t, ok)
	_, ok = calc.Cross(0.30, 0.50)
	assert.False(t, ok, "66 percent exceeds the ceiling")
	_, ok = calc.Intra(0.30, 0.50)
	assert.True(t, ok)
	_, ok = calc.Intra(0.45, 0.48)
	assert.False(t, ok)
}

func TestCalculator_ZeroFloorIsHonoured(t *testing.T) {
	calc := matching.Calculator{MinSpreadPercent: 0, MaxSpreadPercent: 100}

	s, ok := calc.Cross(0.40, 0.395)
	require.True(t, ok, "1.27 percent clears a zero floor")
	assert.InDelta(t, 0.005/0.395*100, s.Percent, 1e-9)

	_, ok = calc.Cross(0.40, 0.40)
	assert.False(t, ok, "equal prices are never a spread")

	_, ok = matching.CrossSpread(0.40, 0.395)
	assert.False(t, ok, "default floor is 2 percent")
}

func TestFairValue(t *testing.T) {
	assert.InDelta(t, 0.40, matching.FairValue(0.42, 0.38), 1e-12)

	fy, fn, ok := matching.IntraFairValue(0.40, 0.50)
	assert.True(t, ok)
	assert.InDelta(t, 0.4444444444, fy, 1e-9)
	assert.InDelta(t, 0.5555555556, fn, 1e-9)
	assert.InDelta(t, 1, fy+fn, 1e-12)

	_, _, ok = matching.IntraFairValue(0, 0)
	assert.False(t, ok)

	ev, pct := matching.Edge(0.38, 0.40)
	assert.InDelta(t, 0.02, ev, 1e-12)
	assert.InDelta(t, 5.2631578947, pct, 1e-9)
}
