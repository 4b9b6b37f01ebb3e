// Package sanitize rewrites voice descriptions so that phrases the generation
// provider is known to reject are replaced before any other processing.
//
// A [Sanitizer] holds an ordered table of trigger → replacement pairs. Every
// trigger is matched case-insensitively on word boundaries and each occurrence
// is replaced. With an empty table the output always equals the input.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is a single substitution.
type Rule struct {
	// Trigger is the phrase to look for. Matching ignores case.
	Trigger string `yaml:"trigger"`

	// Replacement is the safe phrase substituted for every match.
	Replacement string `yaml:"replacement"`
}

// DefaultRules covers wording that voice-design providers commonly refuse:
// references to minors, sexualised descriptors, and impersonation requests.
var DefaultRules = []Rule{
	{Trigger: "child", Replacement: "youthful"},
	{Trigger: "kid", Replacement: "youthful"},
	{Trigger: "little girl", Replacement: "young woman"},
	{Trigger: "little boy", Replacement: "young man"},
	{Trigger: "teenager", Replacement: "young adult"},
	{Trigger: "teen", Replacement: "young adult"},
	{Trigger: "sexy", Replacement: "charming"},
	{Trigger: "seductive", Replacement: "captivating"},
	{Trigger: "sultry", Replacement: "smooth"},
	{Trigger: "moaning", Replacement: "sighing"},
	{Trigger: "sounds like", Replacement: "in the style of"},
	{Trigger: "impersonate", Replacement: "evoke"},
}

// Result is the outcome of [Sanitizer.Sanitize].
type Result struct {
	// Text is the sanitized description.
	Text string

	// Modified is true when at least one substitution happened.
	Modified bool

	// Notes lists one human-readable line per substitution, in table order.
	Notes []string
}

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Sanitizer applies a fixed substitution table. It is read-only after
// construction and safe for concurrent use.
type Sanitizer struct {
	rules []compiledRule
}

// New compiles rules into a [Sanitizer]. Rules with a blank trigger are an error.
func New(rules []Rule) (*Sanitizer, error) {
	s := &Sanitizer{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		trigger := strings.TrimSpace(r.Trigger)
		if trigger == "" {
			return nil, fmt.Errorf("sanitize: rule %d: trigger must not be empty", i)
		}
		re, err := regexp.Compile(pattern(trigger))
		if err != nil {
			return nil, fmt.Errorf("sanitize: rule %d: compile %q: %w", i, trigger, err)
		}
		s.rules = append(s.rules, compiledRule{rule: Rule{Trigger: trigger, Replacement: r.Replacement}, re: re})
	}
	return s, nil
}

// pattern matches trigger case-insensitively as a whole word. A word boundary
// is only required on a side that ends in a word character, so triggers such
// as "18+" or "(explicit)" still match.
func pattern(trigger string) string {
	var b strings.Builder
	b.WriteString(`(?i)`)
	if isWordByte(trigger[0]) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(trigger))
	if isWordByte(trigger[len(trigger)-1]) {
		b.WriteString(`\b`)
	}
	return b.String()
}

// isWordByte mirrors the ASCII word class used by \b.
func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// MustNew is like [New] but panics on an invalid table. Intended for
// package-level tables known to be valid.
func MustNew(rules []Rule) *Sanitizer {
	s, err := New(rules)
	if err != nil {
		panic(err)
	}
	return s
}

// Sanitize replaces every trigger occurrence in text.
func (s *Sanitizer) Sanitize(text string) Result {
	res := Result{Text: text}
	for _, cr := range s.rules {
		matches := cr.re.FindAllString(res.Text, -1)
		if len(matches) == 0 {
			continue
		}
		res.Text = cr.re.ReplaceAllLiteralString(res.Text, cr.rule.Replacement)
		res.Modified = true
		res.Notes = append(res.Notes, note(matches, cr.rule.Replacement))
	}
	return res
}

func note(matches []string, replacement string) string {
	if len(matches) == 1 {
		return fmt.Sprintf("replaced %q with %q", matches[0], replacement)
	}
	return fmt.Sprintf("replaced %q with %q (%d occurrences)", matches[0], replacement, len(matches))
}
