package matching

// Scorer computes the Dice coefficient of two texts' character bigram sets
// after running them through a Normalizer.
type Scorer struct {
	Normalizer Normalizer
}

// Similarity scores a and b with the plain normalizer.
func Similarity(a, b string) float64 {
	return Scorer{}.Score(a, b)
}

// Score returns a value in [0, 1]. Texts that normalize identically score
// exactly 1; a text with fewer than two characters after normalization scores
// 0 against anything else.
func (s Scorer) Score(a, b string) float64 {
	n := s.Normalizer
	if n == nil {
		n = Plain{}
	}
	na, nb := n.Normalize(a), n.Normalize(b)
	if na == nb {
		return 1
	}
	ba, bb := bigrams(na), bigrams(nb)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}
	shared := 0
	for bg := range ba {
		if _, ok := bb[bg]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ba)+len(bb))
}

// bigrams expects normalized (ASCII) input.
func bigrams(s string) map[string]struct{} {
	if len(s) < 2 {
		return nil
	}
	set := make(map[string]struct{}, len(s)-1)
	for i := 0; i+2 <= len(s); i++ {
		set[s[i:i+2]] = struct{}{}
	}
	return set
}
