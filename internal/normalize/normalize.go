// Package normalize turns parsed attributes and sanitized text into the
// canonical request shape sent to the voice generation provider, and computes
// the content address used by the result cache.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// DefaultLanguage is assumed when a request carries no language.
const DefaultLanguage = "en"

// MaxProviderDescription caps the description sent to the provider, in characters.
const MaxProviderDescription = 1000

// Result is the provider-facing request shape.
type Result struct {
	// Canonical is the attribute template with unspecified fields omitted.
	Canonical string

	// ProviderDescription is Canonical followed by the sanitized text.
	ProviderDescription string

	// SampleText is the utterance spoken in preview audio. It is always at
	// least [MinSampleLength] characters long.
	SampleText string
}

// Describe builds the immutable per-request [voice.Description]. The hash
// depends only on the normalized text and the language.
func Describe(raw, sanitized, language string) voice.Description {
	lang := NormalizeLanguage(language)
	normalized := NormalizeText(sanitized)
	return voice.Description{
		Raw:        raw,
		Sanitized:  sanitized,
		Normalized: normalized,
		Language:   lang,
		Hash:       Hash(normalized, lang),
	}
}

// NormalizeText lowercases text, collapses whitespace and trims trailing
// punctuation.
func NormalizeText(text string) string {
	s := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

// NormalizeLanguage lowercases a language tag and applies the default.
func NormalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if lang == "" {
		return DefaultLanguage
	}
	return lang
}

// Hash returns the hex SHA-256 content address of a normalized description
// and its audio-affecting parameters.
func Hash(normalized, language string) string {
	h := sha256.New()
	h.Write([]byte(normalized))
	h.Write([]byte{0})
	h.Write([]byte(language))
	return hex.EncodeToString(h.Sum(nil))
}

// Build fills the canonical template from attrs and selects a sample utterance.
func Build(attrs voice.AttributeSet, sanitized string) Result {
	canonical := Canonical(attrs)
	desc := strings.TrimSpace(canonical + " " + strings.Join(strings.Fields(sanitized), " "))
	return Result{
		Canonical:           canonical,
		ProviderDescription: truncateRunes(desc, MaxProviderDescription),
		SampleText:          SampleText(attrs),
	}
}

// Canonical renders the attribute template, e.g.
// "A young female voice with a British accent, clear and professional in tone."
// Categories that are unspecified are left out.
func Canonical(attrs voice.AttributeSet) string {
	var subject []string
	if attrs.AgeGroup.IsSpecified() {
		subject = append(subject, string(attrs.AgeGroup))
	}
	if attrs.Gender.IsSpecified() {
		subject = append(subject, string(attrs.Gender))
	}
	subject = append(subject, "voice")
	head := strings.Join(subject, " ")

	var b strings.Builder
	b.WriteString(strings.ToUpper(article(head)[:1]) + article(head)[1:])
	b.WriteString(" ")
	b.WriteString(head)
	if attrs.Accent != "" {
		b.WriteString(" with ")
		b.WriteString(article(attrs.Accent))
		b.WriteString(" ")
		b.WriteString(attrs.Accent)
		b.WriteString(" accent")
	}
	if len(attrs.Tones) > 0 {
		b.WriteString(", ")
		b.WriteString(joinAnd(attrs.Tones))
		b.WriteString(" in tone")
	}
	if attrs.Character != "" {
		b.WriteString(", in the style of ")
		b.WriteString(article(attrs.Character))
		b.WriteString(" ")
		b.WriteString(attrs.Character)
	}
	if len(attrs.Tags) > 0 {
		b.WriteString(", suited for ")
		b.WriteString(joinAnd(attrs.Tags))
	}
	b.WriteString(".")
	return b.String()
}

func article(word string) string {
	r, _ := utf8.DecodeRuneInString(strings.ToLower(word))
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return "an"
	}
	return "a"
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
