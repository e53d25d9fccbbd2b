// Package matching pairs markets across venues by title similarity and
// turns the accepted pairs into ranked mispricing opportunities.
//
// Everything in this package is pure: no I/O, no shared state. Callers fetch
// venue listings, convert them to domain.MarketRecord values, and hand both
// lists to Detect or DetectValue.
package matching

import (
	"sort"
	"strings"
)

// Normalizer canonicalises free text before comparison.
type Normalizer interface {
	Normalize(text string) string
}

// Normalize lowercases text, drops every character outside [a-z0-9 ],
// collapses runs of spaces and trims the result. It is idempotent.
func Normalize(text string) string {
	lower := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Plain is the Normalizer backed by Normalize.
type Plain struct{}

// Normalize implements Normalizer.
func (Plain) Normalize(text string) string { return Normalize(text) }

type aliasRule struct {
	from []string
	to   []string
}

// AliasNormalizer runs Normalize and then rewrites whole-word aliases to
// their canonical token. "versus" is folded to "vs". Words that are not a
// known alias pass through unchanged.
type AliasNormalizer struct {
	rules []aliasRule
}

// NewAliasNormalizer builds an AliasNormalizer from an alias → canonical map.
// Keys and values are normalized first. Entries that normalize to nothing, or
// whose alias equals its canonical form, are ignored.
func NewAliasNormalizer(aliases map[string]string) *AliasNormalizer {
	rules := make([]aliasRule, 0, len(aliases))
	for alias, canonical := range aliases {
		from := strings.Fields(Normalize(alias))
		to := strings.Fields(Normalize(canonical))
		if len(from) == 0 || len(to) == 0 || equalTokens(from, to) {
			continue
		}
		rules = append(rules, aliasRule{from: from, to: to})
	}
	// Longest alias wins; ties break lexically so output does not depend on
	// map iteration order.
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].from) != len(rules[j].from) {
			return len(rules[i].from) > len(rules[j].from)
		}
		return strings.Join(rules[i].from, " ") < strings.Join(rules[j].from, " ")
	})
	return &AliasNormalizer{rules: rules}
}

// Normalize implements Normalizer.
func (n *AliasNormalizer) Normalize(text string) string {
	tokens := strings.Fields(Normalize(text))
	out := make([]string, 0, len(tokens))
	for i := 0; i < len(tokens); {
		if rule, ok := n.match(tokens[i:]); ok {
			out = append(out, rule.to...)
			i += len(rule.from)
			continue
		}
		tok := tokens[i]
		if tok == "versus" {
			tok = "vs"
		}
		out = append(out, tok)
		i++
	}
	return strings.Join(out, " ")
}

func (n *AliasNormalizer) match(tokens []string) (aliasRule, bool) {
	for _, r := range n.rules {
		if len(r.from) <= len(tokens) && equalTokens(r.from, tokens[:len(r.from)]) {
			return r, true
		}
	}
	return aliasRule{}, false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
