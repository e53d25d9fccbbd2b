package matching

import (
	"fmt"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// RationaleFunc renders the explanation attached to a cross-venue opportunity.
// Prices are decimals; score is the match score.
type RationaleFunc func(cheapVenue string, cheapPrice float64, richVenue string, richPrice float64, score float64) string

// CrossRationale is the general cross-venue explanation.
func CrossRationale(cheapVenue string, cheapPrice float64, richVenue string, richPrice float64, score float64) string {
	return fmt.Sprintf("Buy YES on %s at %.1f¢, sell YES on %s at %.1f¢. Match confidence: %.0f%%",
		cheapVenue, cheapPrice*100, richVenue, richPrice*100, score*100)
}

// SportsRationale is the explanation used by the sports scan.
func SportsRationale(cheapVenue string, cheapPrice float64, richVenue string, richPrice float64, _ float64) string {
	return fmt.Sprintf("Sports arb: Buy YES on %s at %.1f¢, sell on %s at %.1f¢",
		cheapVenue, cheapPrice*100, richVenue, richPrice*100)
}

// IntraRationale explains a YES+NO underpricing.
func IntraRationale(yes, no float64) string {
	sum := yes + no
	return fmt.Sprintf("YES (%.1f¢) + NO (%.1f¢) = %.1f¢. Buy both for guaranteed %.1f¢ profit per share.",
		yes*100, no*100, sum*100, (1-sum)*100)
}

// assembler turns accepted spreads into Opportunity records. One assembler
// lives for exactly one scan so ids restart at 1 every scan.
type assembler struct {
	seq             int
	stake           float64
	crossPrefix     string
	defaultCategory string
	confidence      ConfidencePolicy
	rationale       RationaleFunc
}

func (as *assembler) nextID(prefix string) string {
	as.seq++
	return fmt.Sprintf("%s-%d", prefix, as.seq)
}

func (as *assembler) category(labels ...string) string {
	for _, l := range labels {
		if l != "" {
			return l
		}
	}
	return as.defaultCategory
}

func (as *assembler) cross(c Candidate, s Spread) domain.Opportunity {
	cheap, rich := c.B, c.A
	if c.A.YesPrice < c.B.YesPrice {
		cheap, rich = c.A, c.B
	}
	return domain.Opportunity{
		ID:              as.nextID(as.crossPrefix),
		Event:           primaryText(c.A),
		Type:            domain.OpportunityCross,
		PlatformA:       string(cheap.Venue),
		PlatformAPrice:  cheap.YesPrice,
		PlatformALink:   cheap.DeepLink,
		PlatformB:       string(rich.Venue),
		PlatformBPrice:  rich.YesPrice,
		PlatformBLink:   rich.DeepLink,
		Spread:          s.Spread,
		SpreadPercent:   s.Percent,
		Category:        as.category(c.A.Category, c.B.Category),
		Confidence:      as.confidence(s.Percent, c.A.Volume, c.B.Volume, c.Score),
		PotentialProfit: as.stake * s.Spread,
		RequiredCapital: as.stake,
		MatchScore:      c.Score,
		VolumeA:         cheap.Volume,
		VolumeB:         rich.Volume,
		Details:         as.rationale(string(cheap.Venue), cheap.YesPrice, string(rich.Venue), rich.YesPrice, c.Score),
	}
}

func (as *assembler) intra(r domain.MarketRecord, s Spread) domain.Opportunity {
	return domain.Opportunity{
		ID:              as.nextID("intra"),
		Event:           primaryText(r),
		Type:            domain.OpportunityIntra,
		PlatformA:       string(r.Venue) + " YES",
		PlatformAPrice:  r.YesPrice,
		PlatformALink:   r.DeepLink,
		PlatformB:       string(r.Venue) + " NO",
		PlatformBPrice:  r.NoPrice,
		PlatformBLink:   r.DeepLink,
		Spread:          s.Spread,
		SpreadPercent:   s.Percent,
		Category:        as.category(r.Category),
		Confidence:      as.confidence(s.Percent, r.Volume, r.Volume, 1),
		PotentialProfit: as.stake * s.Spread,
		RequiredCapital: as.stake,
		MatchScore:      1,
		VolumeA:         r.Volume,
		VolumeB:         r.Volume,
		Details:         IntraRationale(r.YesPrice, r.NoPrice),
	}
}
