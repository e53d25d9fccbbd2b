package matching

import "github.com/alanyoungcy/arbscanner/internal/domain"

// Options tunes one detection pass. Zero-valued function fields fall back to
// the general policy.
type Options struct {
	MinMatchScore    float64
	MinSpreadPercent float64
	MaxSpreadPercent float64
	ResultCap        int
	Stake            float64

	// IncludeIntra also scans each record that carries a NO price for a
	// YES+NO underpricing.
	IncludeIntra bool

	IDPrefix        string
	DefaultCategory string

	Scorer     Scorer
	Confidence ConfidencePolicy
	Rationale  RationaleFunc
}

// DefaultOptions is the general cross-venue preset.
func DefaultOptions() Options {
	return Options{
		MinMatchScore:    0.55,
		MinSpreadPercent: DefaultMinSpreadPercent,
		MaxSpreadPercent: DefaultMaxSpreadPercent,
		ResultCap:        50,
		Stake:            100,
		IncludeIntra:     true,
		IDPrefix:         "cross",
		DefaultCategory:  "Other",
	}
}

// SportsOptions is the sports preset: team aliases are folded before
// scoring, so a looser match threshold is safe.
func SportsOptions() Options {
	o := DefaultOptions()
	o.MinMatchScore = 0.5
	o.IncludeIntra = false
	o.IDPrefix = "sports"
	o.DefaultCategory = "Sports"
	o.Scorer = Scorer{Normalizer: NewAliasNormalizer(TeamAliases())}
	o.Confidence = SportsConfidence
	o.Rationale = SportsRationale
	return o
}

// Result is the output of Detect.
type Result struct {
	Opportunities  []domain.Opportunity
	MarketsScanned int
	// Candidates is the number of cross-venue pairs that cleared the match
	// threshold, before any price filtering.
	Candidates int
}

// Detect finds cross-venue spreads between a and b, plus intra-market gaps
// when enabled, and returns them ranked and capped. Records with unusable
// prices are skipped, never reported as errors.
func Detect(a, b []domain.MarketRecord, opts Options) Result {
	if opts.Confidence == nil {
		opts.Confidence = Confidence
	}
	if opts.Rationale == nil {
		opts.Rationale = CrossRationale
	}
	if opts.IDPrefix == "" {
		opts.IDPrefix = "cross"
	}
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = "Other"
	}
	calc := Calculator{MinSpreadPercent: opts.MinSpreadPercent, MaxSpreadPercent: opts.MaxSpreadPercent}
	as := &assembler{
		stake:           opts.Stake,
		crossPrefix:     opts.IDPrefix,
		defaultCategory: opts.DefaultCategory,
		confidence:      opts.Confidence,
		rationale:       opts.Rationale,
	}

	candidates := MatchCandidates(priced(a), priced(b), opts.MinMatchScore, opts.Scorer)
	var opps []domain.Opportunity
	for _, c := range candidates {
		s, ok := calc.Cross(c.A.YesPrice, c.B.YesPrice)
		if !ok {
			continue
		}
		opps = append(opps, as.cross(c, s))
	}

	if opts.IncludeIntra {
		for _, list := range [][]domain.MarketRecord{a, b} {
			for _, r := range list {
				if !r.HasNo() {
					continue
				}
				s, ok := calc.Intra(r.YesPrice, r.NoPrice)
				if !ok {
					continue
				}
				opps = append(opps, as.intra(r, s))
			}
		}
	}

	return Result{
		Opportunities:  Rank(opps, opts.ResultCap),
		MarketsScanned: len(a) + len(b),
		Candidates:     len(candidates),
	}
}

// priced keeps records whose YES price is usable for cross-venue comparison.
func priced(records []domain.MarketRecord) []domain.MarketRecord {
	out := make([]domain.MarketRecord, 0, len(records))
	for _, r := range records {
		if ValidPrice(r.YesPrice) {
			out = append(out, r)
		}
	}
	return out
}
