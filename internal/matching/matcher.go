package matching

import "github.com/alanyoungcy/arbscanner/internal/domain"

// Candidate is a pair of records believed to describe the same event.
type Candidate struct {
	A     domain.MarketRecord
	B     domain.MarketRecord
	Score float64
}

// MatchCandidates compares every record in a against every record in b and
// keeps pairs scoring at least minScore. A record's score against b is the
// best score across b's descriptors. Output follows a-major, b-minor order.
func MatchCandidates(a, b []domain.MarketRecord, minScore float64, scorer Scorer) []Candidate {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	var out []Candidate
	for _, ra := range a {
		text := primaryText(ra)
		if text == "" {
			continue
		}
		for _, rb := range b {
			best := 0.0
			for _, d := range rb.Descriptors() {
				if s := scorer.Score(text, d); s > best {
					best = s
				}
			}
			if best < minScore {
				continue
			}
			out = append(out, Candidate{A: ra, B: rb, Score: best})
		}
	}
	return out
}

func primaryText(r domain.MarketRecord) string {
	if r.Title != "" {
		return r.Title
	}
	return r.EventTitle
}
