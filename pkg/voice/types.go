// Package voice defines the shared domain types of the voice design pipeline:
// parsed description attributes, catalog voices, match results, generated
// preview candidates and the scored candidates returned to callers.
//
// All types are plain values. Slices held by an [AttributeSet] are sorted so
// that two sets built from identical text compare equal with [AttributeSet.Equal].
package voice

import (
	"slices"
	"time"
)

// Gender is the perceived gender of a voice.
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderNeutral     Gender = "neutral"
	GenderUnspecified Gender = "unspecified"
)

// IsSpecified reports whether g carries a real signal.
func (g Gender) IsSpecified() bool {
	return g != "" && g != GenderUnspecified
}

// AgeGroup is the perceived age band of a voice.
type AgeGroup string

const (
	AgeYoung       AgeGroup = "young"
	AgeMiddleAged  AgeGroup = "middle-aged"
	AgeOlder       AgeGroup = "older"
	AgeUnspecified AgeGroup = "unspecified"
)

// IsSpecified reports whether a carries a real signal.
func (a AgeGroup) IsSpecified() bool {
	return a != "" && a != AgeUnspecified
}

// QualityTier grades catalog voices. High-tier voices are professionally
// recorded and get a higher clarity baseline during ranking.
type QualityTier string

const (
	TierStandard QualityTier = "standard"
	TierHigh     QualityTier = "high"
)

// AttributeSet is the structured result of parsing a free-text description.
// Unmatched categories are left unspecified (empty string or empty slice);
// they are never guessed.
type AttributeSet struct {
	Gender    Gender   `json:"gender"`
	Accent    string   `json:"accent,omitempty"`
	AgeGroup  AgeGroup `json:"age_group"`
	Tones     []string `json:"tones,omitempty"`
	Character string   `json:"character,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// SpecifiedCount returns how many attribute categories carry a signal.
// The maximum is [AttributeCategories].
func (a AttributeSet) SpecifiedCount() int {
	n := 0
	if a.Gender.IsSpecified() {
		n++
	}
	if a.Accent != "" {
		n++
	}
	if a.AgeGroup.IsSpecified() {
		n++
	}
	if len(a.Tones) > 0 {
		n++
	}
	if a.Character != "" {
		n++
	}
	if len(a.Tags) > 0 {
		n++
	}
	return n
}

// AttributeCategories is the number of independent attribute categories.
const AttributeCategories = 6

// Equal reports whether a and b are identical.
func (a AttributeSet) Equal(b AttributeSet) bool {
	return a.Gender == b.Gender &&
		a.Accent == b.Accent &&
		a.AgeGroup == b.AgeGroup &&
		a.Character == b.Character &&
		slices.Equal(a.Tones, b.Tones) &&
		slices.Equal(a.Tags, b.Tags)
}

// Description is the immutable per-request view of the user's text.
type Description struct {
	// Raw is the text exactly as submitted.
	Raw string

	// Sanitized is Raw after content-policy substitutions.
	Sanitized string

	// Normalized is the canonical form used for hashing.
	Normalized string

	// Language is the target language that affects rendered audio.
	Language string

	// Hash is the content address of Normalized and Language.
	Hash string
}

// CatalogVoice is a ready-to-use voice from the catalog roster.
type CatalogVoice struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Gender      Gender      `json:"gender" yaml:"gender"`
	Accent      string      `json:"accent,omitempty" yaml:"accent"`
	AgeGroup    AgeGroup    `json:"age_group" yaml:"age_group"`
	Tags        []string    `json:"tags,omitempty" yaml:"tags"`
	Tone        []string    `json:"tone,omitempty" yaml:"tone"`
	QualityTier QualityTier `json:"quality_tier" yaml:"quality_tier"`

	// ProviderRef is the opaque provider-specific identifier used when the
	// voice is rendered to audio.
	ProviderRef string `json:"provider_ref,omitempty" yaml:"provider_ref"`
}

// AccentMatch grades the accent criterion of a [MatchResult].
type AccentMatch string

const (
	AccentNone       AccentMatch = "none"
	AccentCompatible AccentMatch = "compatible"
	AccentExact      AccentMatch = "exact"
)

// MatchBreakdown explains how a catalog voice earned its score.
type MatchBreakdown struct {
	Gender         bool        `json:"gender"`
	Accent         AccentMatch `json:"accent"`
	AgeGroup       bool        `json:"age_group"`
	MatchedTags    []string    `json:"matched_tags,omitempty"`
	NameSimilarity float64     `json:"name_similarity,omitempty"`
	NameBonus      float64     `json:"name_bonus,omitempty"`
}

// MatchResult is one scored catalog voice. Scores are only comparable within
// the same request.
type MatchResult struct {
	Voice     CatalogVoice   `json:"voice"`
	Score     float64        `json:"score"`
	Breakdown MatchBreakdown `json:"breakdown"`
}

// FailureReason is a provider-reported reason a preview has no audio.
type FailureReason string

const (
	FailureNone          FailureReason = ""
	FailureContentPolicy FailureReason = "content_policy"
	FailureQuota         FailureReason = "quota"
	FailureTransient     FailureReason = "transient"
)

// GeneratedCandidate is an ephemeral preview produced by the generation provider.
type GeneratedCandidate struct {
	ID                string        `json:"id"`
	ProviderRef       string        `json:"provider_ref,omitempty"`
	Audio             []byte        `json:"audio,omitempty"`
	MediaType         string        `json:"media_type,omitempty"`
	DurationSecs      float64       `json:"duration_secs,omitempty"`
	SourceDescription string        `json:"source_description"`
	Failure           FailureReason `json:"failure,omitempty"`
}

// Usable reports whether the candidate carries an audio payload.
func (g GeneratedCandidate) Usable() bool {
	return g.Failure == FailureNone && len(g.Audio) > 0
}

// CandidateKind tells which variant a [ScoredCandidate] wraps.
type CandidateKind string

const (
	KindCatalog   CandidateKind = "catalog"
	KindGenerated CandidateKind = "generated"
)

// SubScores are the independent quality axes, each in [0,100] except
// LengthAdjustment which is a signed bonus.
type SubScores struct {
	Clarity          float64 `json:"clarity"`
	Naturalness      float64 `json:"naturalness"`
	Coverage         float64 `json:"coverage"`
	LengthAdjustment float64 `json:"length_adjustment"`
}

// ScoredCandidate wraps either a catalog match or a generated preview with a
// normalised 0–100 quality score. Exactly one of Match and Generated is set.
type ScoredCandidate struct {
	Kind       CandidateKind       `json:"kind"`
	Match      *MatchResult        `json:"match,omitempty"`
	Generated  *GeneratedCandidate `json:"generated,omitempty"`
	Attributes AttributeSet        `json:"attributes"`
	Score      float64             `json:"score"`
	SubScores  SubScores           `json:"sub_scores"`
}

// ID returns the catalog voice id or the generated preview id.
func (c ScoredCandidate) ID() string {
	switch {
	case c.Match != nil:
		return c.Match.Voice.ID
	case c.Generated != nil:
		return c.Generated.ID
	}
	return ""
}

// CacheEntry is one content-addressed result cache record.
type CacheEntry struct {
	Hash      string          `json:"hash"`
	Candidate ScoredCandidate `json:"candidate"`
	CreatedAt time.Time       `json:"created_at"`
}
