package career

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords dropped from titles and industries before keying.
var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "a": {}, "an": {}, "or": {}, "in": {}, "of": {}, "for": {}, "&": {},
}

// NormalizeKey lowercases, strips punctuation, drops stopwords, and sorts the
// remaining words so that word order and spacing never defeat deduplication.
func NormalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, skip := stopwords[w]; skip {
			continue
		}
		kept = append(kept, w)
	}
	sort.Strings(kept)
	return strings.Join(kept, " ")
}

// DedupKey is the card identity: normalized title plus normalized industry,
// with "unknown" standing in for a missing industry.
func DedupKey(title, industry string) string {
	if strings.TrimSpace(industry) == "" {
		industry = "unknown"
	}
	return NormalizeKey(title) + "-" + NormalizeKey(industry)
}

// Dedupe retains the first occurrence per dedup key, preserving overall
// order. Callers pass previous ++ incoming so that repeated insertion
// batches over a long session never reintroduce duplicates.
func Dedupe(cards []CareerCard) []CareerCard {
	if len(cards) < 2 {
		return cards
	}
	seen := make(map[string]struct{}, len(cards))
	out := make([]CareerCard, 0, len(cards))
	for _, c := range cards {
		key := DedupKey(c.Title, c.Industry)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
