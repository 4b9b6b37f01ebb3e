// Package quality scores and ranks voice candidates.
//
// Every candidate, whether it comes from the catalog or from a generation
// provider, is reduced to four sub-scores (clarity, naturalness, attribute
// coverage and a length adjustment) that blend into one overall score on a
// 0–100 scale. Ranking is a stable descending sort on that score, so equal
// candidates keep the order they arrived in.
package quality

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Band maps a payload size range to clarity and naturalness baselines.
// A preview falls in the first band whose MaxBytes is greater than its size;
// a MaxBytes of 0 means unbounded.
type Band struct {
	MaxBytes    int     `yaml:"max_bytes"`
	Clarity     float64 `yaml:"clarity"`
	Naturalness float64 `yaml:"naturalness"`
}

// Weights are the named constants of the [Scorer].
type Weights struct {
	// Clarity, Naturalness and Coverage weight the blended sub-scores.
	// They must sum to 1.
	Clarity     float64 `yaml:"clarity"`
	Naturalness float64 `yaml:"naturalness"`
	Coverage    float64 `yaml:"coverage"`

	// CoverageFloor is the coverage score of a description with no specified
	// attribute; the rest of the 100 points is shared by the categories.
	CoverageFloor float64 `yaml:"coverage_floor"`

	// Catalog is the clarity/naturalness baseline shared by every catalog
	// voice, whatever its quality tier.
	Catalog Band `yaml:"catalog"`

	// SizeBands grade generated previews by payload size, ascending.
	SizeBands []Band `yaml:"size_bands"`

	// SweetSpotMin/Max bound the description length (runes) that earns
	// LengthBonus. Descriptions shorter than ShortPenaltyBelow or longer
	// than LongPenaltyAbove lose LengthPenalty.
	SweetSpotMin      int     `yaml:"sweet_spot_min"`
	SweetSpotMax      int     `yaml:"sweet_spot_max"`
	ShortPenaltyBelow int     `yaml:"short_penalty_below"`
	LongPenaltyAbove  int     `yaml:"long_penalty_above"`
	LengthBonus       float64 `yaml:"length_bonus"`
	LengthPenalty     float64 `yaml:"length_penalty"`
}

// DefaultWeights returns the shipped scoring constants.
func DefaultWeights() Weights {
	return Weights{
		Clarity:       0.35,
		Naturalness:   0.35,
		Coverage:      0.30,
		CoverageFloor: 40,
		Catalog:       Band{Clarity: 90, Naturalness: 90},
		SizeBands: []Band{
			{MaxBytes: 8 << 10, Clarity: 30, Naturalness: 30},
			{MaxBytes: 32 << 10, Clarity: 60, Naturalness: 65},
			{MaxBytes: 512 << 10, Clarity: 85, Naturalness: 85},
			{MaxBytes: 0, Clarity: 75, Naturalness: 70},
		},
		SweetSpotMin:      40,
		SweetSpotMax:      300,
		ShortPenaltyBelow: 40,
		LongPenaltyAbove:  600,
		LengthBonus:       5,
		LengthPenalty:     5,
	}
}

// Validate reports inconsistent weights.
func (w Weights) Validate() error {
	var errs []error
	if w.Clarity < 0 || w.Naturalness < 0 || w.Coverage < 0 {
		errs = append(errs, errors.New("quality: blend weights must not be negative"))
	}
	if sum := w.Clarity + w.Naturalness + w.Coverage; math.Abs(sum-1) > 1e-9 {
		errs = append(errs, fmt.Errorf("quality: blend weights must sum to 1, got %.3f", sum))
	}
	if w.CoverageFloor < 0 || w.CoverageFloor > 100 {
		errs = append(errs, fmt.Errorf("quality: coverage_floor %.1f is out of range [0, 100]", w.CoverageFloor))
	}
	if len(w.SizeBands) == 0 {
		errs = append(errs, errors.New("quality: at least one size band is required"))
	}
	for i, b := range w.SizeBands {
		last := i == len(w.SizeBands)-1
		switch {
		case last && b.MaxBytes != 0:
			errs = append(errs, errors.New("quality: the last size band must be unbounded (max_bytes 0)"))
		case !last && b.MaxBytes <= 0:
			errs = append(errs, fmt.Errorf("quality: size band %d must have a positive max_bytes", i))
		case i > 0 && !last && b.MaxBytes <= w.SizeBands[i-1].MaxBytes:
			errs = append(errs, fmt.Errorf("quality: size bands must be ascending (band %d)", i))
		}
	}
	if w.SweetSpotMin > w.SweetSpotMax {
		errs = append(errs, fmt.Errorf("quality: sweet_spot_min %d exceeds sweet_spot_max %d", w.SweetSpotMin, w.SweetSpotMax))
	}
	return errors.Join(errs...)
}

// Scorer computes [voice.SubScores] and overall scores. It is stateless and
// safe for concurrent use.
type Scorer struct {
	w Weights
}

// NewScorer returns a [Scorer] using w. Invalid weights are rejected.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{w: w}, nil
}

// ScoreMatch scores a catalog match for the given request. All matches of one
// request score the same, so [Scorer.RankMatches] keeps the matcher's order.
func (s *Scorer) ScoreMatch(m voice.MatchResult, attrs voice.AttributeSet, description string) voice.ScoredCandidate {
	match := m
	return s.finish(voice.ScoredCandidate{
		Kind:       voice.KindCatalog,
		Match:      &match,
		Attributes: attrs,
	}, s.w.Catalog, description)
}

// ScoreGenerated scores a generated preview for the given request.
func (s *Scorer) ScoreGenerated(g voice.GeneratedCandidate, attrs voice.AttributeSet, description string) voice.ScoredCandidate {
	gen := g
	return s.finish(voice.ScoredCandidate{
		Kind:       voice.KindGenerated,
		Generated:  &gen,
		Attributes: attrs,
	}, s.sizeBand(len(g.Audio)), description)
}

func (s *Scorer) finish(c voice.ScoredCandidate, base Band, description string) voice.ScoredCandidate {
	c.SubScores = voice.SubScores{
		Clarity:          base.Clarity,
		Naturalness:      base.Naturalness,
		Coverage:         s.coverage(c.Attributes),
		LengthAdjustment: s.lengthAdjustment(description),
	}
	c.Score = s.overall(c.SubScores)
	return c
}

func (s *Scorer) sizeBand(n int) Band {
	for _, b := range s.w.SizeBands {
		if b.MaxBytes == 0 || n < b.MaxBytes {
			return b
		}
	}
	return s.w.SizeBands[len(s.w.SizeBands)-1]
}

func (s *Scorer) coverage(attrs voice.AttributeSet) float64 {
	n := attrs.SpecifiedCount()
	return s.w.CoverageFloor + (100-s.w.CoverageFloor)*float64(n)/float64(voice.AttributeCategories)
}

func (s *Scorer) lengthAdjustment(description string) float64 {
	n := utf8.RuneCountInString(description)
	switch {
	case n < s.w.ShortPenaltyBelow || n > s.w.LongPenaltyAbove:
		return -s.w.LengthPenalty
	case n >= s.w.SweetSpotMin && n <= s.w.SweetSpotMax:
		return s.w.LengthBonus
	default:
		return 0
	}
}

func (s *Scorer) overall(sub voice.SubScores) float64 {
	v := s.w.Clarity*sub.Clarity + s.w.Naturalness*sub.Naturalness + s.w.Coverage*sub.Coverage + sub.LengthAdjustment
	v = max(0, min(100, v))
	return math.Round(v*10) / 10
}

// RankMatches scores and ranks catalog matches. matches must already be in
// matcher order, which breaks ties.
func (s *Scorer) RankMatches(matches []voice.MatchResult, attrs voice.AttributeSet, description string) []voice.ScoredCandidate {
	out := make([]voice.ScoredCandidate, 0, len(matches))
	for _, m := range matches {
		out = append(out, s.ScoreMatch(m, attrs, description))
	}
	Rank(out)
	return out
}

// RankGenerated scores and ranks generated previews, skipping unusable ones.
// The input order breaks ties.
func (s *Scorer) RankGenerated(gens []voice.GeneratedCandidate, attrs voice.AttributeSet, description string) []voice.ScoredCandidate {
	out := make([]voice.ScoredCandidate, 0, len(gens))
	for _, g := range gens {
		if !g.Usable() {
			continue
		}
		out = append(out, s.ScoreGenerated(g, attrs, description))
	}
	Rank(out)
	return out
}

// Rank sorts candidates by descending score in place, keeping the relative
// order of equal scores.
func Rank(cs []voice.ScoredCandidate) {
	slices.SortStableFunc(cs, func(a, b voice.ScoredCandidate) int {
		return cmp.Compare(b.Score, a.Score)
	})
}
