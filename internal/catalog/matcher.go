package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Weights are the named scoring constants of the [Matcher]. All values are
// configurable; [DefaultWeights] documents the shipped defaults.
type Weights struct {
	// Gender is added when the voice gender equals the requested gender.
	Gender float64 `yaml:"gender"`

	// Accent is added for an exact accent match.
	Accent float64 `yaml:"accent"`

	// CompatibleAccentFactor scales Accent for accents of the same family
	// (e.g. British and Scottish). Must be in [0,1].
	CompatibleAccentFactor float64 `yaml:"compatible_accent_factor"`

	// AgeGroup is added when the age groups are equal.
	AgeGroup float64 `yaml:"age_group"`

	// Tag is added once per overlapping tag or tone.
	Tag float64 `yaml:"tag"`

	// NameBonus is multiplied by the name similarity and added only when no
	// exact criterion matched. It must not exceed the smallest exact weight,
	// otherwise gaining a criterion could lower a score.
	NameBonus float64 `yaml:"name_bonus"`

	// NameSimilarityThreshold is the minimum Jaro-Winkler similarity for a
	// phonetically matching description token to earn the name bonus.
	NameSimilarityThreshold float64 `yaml:"name_similarity_threshold"`

	// MinConfidence is the confidence gate: when the best score is below it
	// the matcher returns no results and generation takes over.
	MinConfidence float64 `yaml:"min_confidence"`

	// TopK bounds the number of returned matches.
	TopK int `yaml:"top_k"`
}

// DefaultWeights returns the shipped scoring constants. A voice matching
// gender, accent and age scores 7.5; the gate sits at 4.0 so at least two
// strong criteria (or one plus several tags) are needed.
func DefaultWeights() Weights {
	return Weights{
		Gender:                  3.0,
		Accent:                  2.5,
		CompatibleAccentFactor:  0.5,
		AgeGroup:                2.0,
		Tag:                     1.0,
		NameBonus:               1.0,
		NameSimilarityThreshold: 0.88,
		MinConfidence:           4.0,
		TopK:                    10,
	}
}

// Validate reports inconsistent weights.
func (w Weights) Validate() error {
	var errs []error
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"gender", w.Gender},
		{"accent", w.Accent},
		{"age_group", w.AgeGroup},
		{"tag", w.Tag},
		{"name_bonus", w.NameBonus},
		{"min_confidence", w.MinConfidence},
	} {
		if f.value < 0 {
			errs = append(errs, fmt.Errorf("matcher.%s must not be negative, got %.2f", f.name, f.value))
		}
	}
	if w.CompatibleAccentFactor < 0 || w.CompatibleAccentFactor > 1 {
		errs = append(errs, fmt.Errorf("matcher.compatible_accent_factor %.2f is out of range [0, 1]", w.CompatibleAccentFactor))
	}
	if w.NameSimilarityThreshold < 0 || w.NameSimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("matcher.name_similarity_threshold %.2f is out of range [0, 1]", w.NameSimilarityThreshold))
	}
	if minExact := min(w.Gender, w.Accent, w.AgeGroup, w.Tag); w.NameBonus > minExact {
		errs = append(errs, fmt.Errorf("matcher.name_bonus %.2f must not exceed the smallest exact weight %.2f", w.NameBonus, minExact))
	}
	if w.TopK <= 0 {
		errs = append(errs, fmt.Errorf("matcher.top_k must be positive, got %d", w.TopK))
	}
	return errors.Join(errs...)
}

// Matcher scores catalog voices against a description. It is stateless
// apart from its weights and safe for concurrent use.
type Matcher struct {
	weights Weights
}

// NewMatcher returns a [Matcher] using w. Invalid weights are rejected.
func NewMatcher(w Weights) (*Matcher, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("catalog: invalid matcher weights: %w", err)
	}
	return &Matcher{weights: w}, nil
}

// Weights returns the matcher's scoring constants.
func (m *Matcher) Weights() Weights { return m.weights }

// Match scores every voice, sorts descending (stable on roster order), drops
// voices with no signal at all and keeps the top K. When the best score is
// below MinConfidence it returns nil: the caller must generate instead.
func (m *Matcher) Match(attrs voice.AttributeSet, rawText string, voices []voice.CatalogVoice) []voice.MatchResult {
	tokens := nameTokens(rawText)
	wanted := wantedTags(attrs)

	results := make([]voice.MatchResult, 0, len(voices))
	for _, v := range voices {
		r := m.score(attrs, wanted, tokens, v)
		if r.Score > 0 {
			results = append(results, r)
		}
	}
	if len(results) == 0 {
		return nil
	}
	slices.SortStableFunc(results, func(a, b voice.MatchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if results[0].Score < m.weights.MinConfidence {
		return nil
	}
	if len(results) > m.weights.TopK {
		results = results[:m.weights.TopK]
	}
	return results
}

// Score computes the match of a single voice.
func (m *Matcher) Score(attrs voice.AttributeSet, rawText string, v voice.CatalogVoice) voice.MatchResult {
	return m.score(attrs, wantedTags(attrs), nameTokens(rawText), v)
}

func (m *Matcher) score(attrs voice.AttributeSet, wanted []string, tokens []string, v voice.CatalogVoice) voice.MatchResult {
	w := m.weights
	res := voice.MatchResult{Voice: v, Breakdown: voice.MatchBreakdown{Accent: voice.AccentNone}}

	if attrs.Gender.IsSpecified() && attrs.Gender == v.Gender {
		res.Breakdown.Gender = true
		res.Score += w.Gender
	}

	switch accentMatch(attrs.Accent, v.Accent) {
	case voice.AccentExact:
		res.Breakdown.Accent = voice.AccentExact
		res.Score += w.Accent
	case voice.AccentCompatible:
		res.Breakdown.Accent = voice.AccentCompatible
		res.Score += w.Accent * w.CompatibleAccentFactor
	}

	if attrs.AgeGroup.IsSpecified() && attrs.AgeGroup == v.AgeGroup {
		res.Breakdown.AgeGroup = true
		res.Score += w.AgeGroup
	}

	if len(wanted) > 0 {
		have := make(map[string]struct{}, len(v.Tags)+len(v.Tone))
		for _, t := range v.Tags {
			have[strings.ToLower(t)] = struct{}{}
		}
		for _, t := range v.Tone {
			have[strings.ToLower(t)] = struct{}{}
		}
		for _, t := range wanted {
			if _, ok := have[t]; ok {
				res.Breakdown.MatchedTags = append(res.Breakdown.MatchedTags, t)
				res.Score += w.Tag
			}
		}
	}

	exact := res.Breakdown.Gender || res.Breakdown.Accent == voice.AccentExact ||
		res.Breakdown.AgeGroup || len(res.Breakdown.MatchedTags) > 0
	if !exact && w.NameBonus > 0 {
		sim := nameSimilarity(tokens, v.Name, w.NameSimilarityThreshold)
		if sim > 0 {
			res.Breakdown.NameSimilarity = sim
			res.Breakdown.NameBonus = w.NameBonus * sim
			res.Score += res.Breakdown.NameBonus
		}
	}
	return res
}

// wantedTags is the sorted, de-duplicated union of tones, tags and character.
func wantedTags(attrs voice.AttributeSet) []string {
	out := make([]string, 0, len(attrs.Tones)+len(attrs.Tags)+1)
	for _, t := range attrs.Tones {
		out = append(out, strings.ToLower(t))
	}
	for _, t := range attrs.Tags {
		out = append(out, strings.ToLower(t))
	}
	if attrs.Character != "" {
		out = append(out, strings.ToLower(attrs.Character))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// accentFamilies groups accents that are close enough to be compatible.
var accentFamilies = map[string]string{
	"british":           "british-isles",
	"scottish":          "british-isles",
	"welsh":             "british-isles",
	"irish":             "british-isles",
	"american":          "north-american",
	"southern american": "north-american",
	"canadian":          "north-american",
	"australian":        "oceania",
	"new zealand":       "oceania",
	"spanish":           "hispanic",
	"latin american":    "hispanic",
}

func accentMatch(want, have string) voice.AccentMatch {
	want = strings.ToLower(strings.TrimSpace(want))
	have = strings.ToLower(strings.TrimSpace(have))
	if want == "" || have == "" {
		return voice.AccentNone
	}
	if want == have {
		return voice.AccentExact
	}
	fw, wantKnown := accentFamilies[want]
	fh, haveKnown := accentFamilies[have]
	if wantKnown && haveKnown {
		if fw == fh {
			return voice.AccentCompatible
		}
		return voice.AccentNone
	}
	// Unmapped names fall back to containment, e.g. "scottish" in "west scottish".
	if strings.Contains(have, want) || strings.Contains(want, have) {
		return voice.AccentCompatible
	}
	return voice.AccentNone
}
