package catalog

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// fuzzyOnlyThreshold is the Jaro-Winkler similarity required when a
// description token shares no Double Metaphone code with the voice name.
const fuzzyOnlyThreshold = 0.95

// nameTokens splits text into lowercase alphabetic tokens of at least three
// letters, the only ones worth comparing against voice names.
func nameTokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// nameSimilarity returns the best Jaro-Winkler similarity between any token
// and any word of name, or 0 when nothing clears the thresholds.
//
// Matching runs in two stages: tokens that share a Double Metaphone code with
// a name word are accepted at threshold; other tokens need fuzzyOnlyThreshold.
func nameSimilarity(tokens []string, name string, threshold float64) float64 {
	nameWords := nameTokens(name)
	if len(tokens) == 0 || len(nameWords) == 0 {
		return 0
	}
	best := 0.0
	for _, nw := range nameWords {
		np, ns := matchr.DoubleMetaphone(nw)
		for _, t := range tokens {
			score := matchr.JaroWinkler(t, nw, false)
			tp, ts := matchr.DoubleMetaphone(t)
			limit := fuzzyOnlyThreshold
			if codesOverlap(tp, ts, np, ns) {
				limit = threshold
			}
			if score >= limit && score > best {
				best = score
			}
		}
	}
	return best
}

func codesOverlap(ap, as, bp, bs string) bool {
	for _, a := range []string{ap, as} {
		if a == "" {
			continue
		}
		if a == bp || a == bs {
			return true
		}
	}
	return false
}
