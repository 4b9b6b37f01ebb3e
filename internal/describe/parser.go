// Package describe extracts a structured [voice.AttributeSet] from free-text
// voice descriptions.
//
// Every attribute category is evaluated independently against its own
// ordered rule table; categories never influence one another. Single-valued
// categories (gender, accent, age group, character) use a first-match policy:
// the earliest rule in table order that matches wins, which also resolves
// conflicting signals such as two accents in one description. Set-valued
// categories (tones, tags) collect every matching label and return them
// sorted.
//
// [Parse] is a pure function: identical text always yields an identical
// attribute set, which the result cache relies on.
package describe

import (
	"slices"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Parse extracts attributes from sanitized description text.
func Parse(text string) voice.AttributeSet {
	attrs := voice.AttributeSet{
		Gender:   voice.GenderUnspecified,
		AgeGroup: voice.AgeUnspecified,
	}
	if g := Gender(text); g.matched {
		attrs.Gender = g.value
	}
	if a := Accent(text); a.matched {
		attrs.Accent = a.value
	}
	if a := AgeGroup(text); a.matched {
		attrs.AgeGroup = a.value
	}
	if c := Character(text); c.matched {
		attrs.Character = c.value
	}
	attrs.Tones = sortedSet(allMatches(toneRules, text))
	attrs.Tags = sortedSet(allMatches(tagRules, text))
	return attrs
}

// Gender evaluates only the gender category.
func Gender(text string) Outcome[voice.Gender] { return firstMatch(genderRules, text) }

// Accent evaluates only the accent category.
func Accent(text string) Outcome[string] { return firstMatch(accentRules, text) }

// AgeGroup evaluates only the age-group category.
func AgeGroup(text string) Outcome[voice.AgeGroup] { return firstMatch(ageRules, text) }

// Character evaluates only the character-archetype category.
func Character(text string) Outcome[string] { return firstMatch(characterRules, text) }

// Tones evaluates only the tone/energy category.
func Tones(text string) []string { return sortedSet(allMatches(toneRules, text)) }

// Tags evaluates only the generic-tag category.
func Tags(text string) []string { return sortedSet(allMatches(tagRules, text)) }

// Value returns the matched value and whether the category matched.
func (o Outcome[T]) Value() (T, bool) { return o.value, o.matched }

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
