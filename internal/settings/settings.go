// Package settings derives synthesis settings from the traits of a voice.
//
// The optimizer never fails: unknown traits fall back to the balanced
// default and every output is clamped to the accepted range.
package settings

import (
	"math"
	"slices"
	"strings"

	"github.com/MrWong99/vocalis/internal/describe"
)

// Output bounds and the balanced default.
const (
	MinValue = 0.1
	MaxValue = 1.0
	Balanced = 0.5
)

// Category is the delivery style a trait set falls into.
type Category string

const (
	CategoryBalanced     Category = "balanced"
	CategoryExpressive   Category = "expressive"
	CategoryProfessional Category = "professional"
	CategoryCasual       Category = "casual"
)

// Energy is the overall energy level of a trait set.
type Energy string

const (
	EnergyNeutral Energy = "neutral"
	EnergyHigh    Energy = "high"
	EnergyLow     Energy = "low"
)

// Settings are the synthesis parameters handed to a TTS provider.
type Settings struct {
	Stability      float64  `json:"stability"`
	Expressiveness float64  `json:"expressiveness"`
	Category       Category `json:"category"`
	Energy         Energy   `json:"energy"`
}

type shift struct {
	category       Category
	traits         []string
	stability      float64
	expressiveness float64
}

// categories are checked in order; the first one sharing a trait applies.
var categories = []shift{
	{
		category:       CategoryExpressive,
		traits:         []string{"dramatic", "playful", "cheerful", "sarcastic", "mysterious", "villain", "hero", "pirate", "wizard", "animation", "cinematic"},
		stability:      -0.2,
		expressiveness: +0.3,
	},
	{
		category:       CategoryProfessional,
		traits:         []string{"professional", "authoritative", "clear", "serious", "news anchor", "news", "narrator", "teacher", "education", "assistant", "customer-support"},
		stability:      +0.25,
		expressiveness: -0.1,
	},
	{
		category: CategoryCasual,
		traits:   []string{"casual", "friendly", "warm", "podcast", "social-media", "host"},
	},
}

var (
	highEnergy = []string{"energetic", "dramatic", "cheerful", "advertisement"}
	lowEnergy  = []string{"calm", "soft", "meditation", "deep"}
)

// Energy shifts applied to stability.
const (
	highEnergyStability = -0.1
	lowEnergyStability  = +0.1
)

// Optimize derives settings from explicit trait tags and free text. Text is
// run through the description rule tables, so "an upbeat host" and the tags
// [energetic host] yield the same result.
func Optimize(traits []string, text string) Settings {
	set := traitSet(traits, text)

	s := Settings{
		Stability:      Balanced,
		Expressiveness: Balanced,
		Category:       CategoryBalanced,
		Energy:         EnergyNeutral,
	}
	for _, c := range categories {
		if hasAny(set, c.traits) {
			s.Category = c.category
			s.Stability += c.stability
			s.Expressiveness += c.expressiveness
			break
		}
	}
	switch {
	case hasAny(set, highEnergy):
		s.Energy = EnergyHigh
		s.Stability += highEnergyStability
	case hasAny(set, lowEnergy):
		s.Energy = EnergyLow
		s.Stability += lowEnergyStability
	}
	s.Stability = clamp(s.Stability)
	s.Expressiveness = clamp(s.Expressiveness)
	return s
}

func traitSet(traits []string, text string) map[string]struct{} {
	set := make(map[string]struct{}, len(traits)+4)
	for _, t := range traits {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set[t] = struct{}{}
		}
	}
	if strings.TrimSpace(text) == "" {
		return set
	}
	for _, t := range slices.Concat(describe.Tones(text), describe.Tags(text)) {
		set[t] = struct{}{}
	}
	if c, ok := describe.Character(text).Value(); ok {
		set[c] = struct{}{}
	}
	return set
}

func hasAny(set map[string]struct{}, traits []string) bool {
	for _, t := range traits {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// clamp bounds v to [MinValue, MaxValue] and rounds to two decimals.
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return Balanced
	}
	v = max(MinValue, min(MaxValue, v))
	return math.Round(v*100) / 100
}
