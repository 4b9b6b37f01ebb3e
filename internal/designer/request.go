package designer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// Description length window, counted in Unicode characters after trimming.
const (
	MinDescriptionLength = 20
	MaxDescriptionLength = 1000
)

// Request is the input of [Engine.Design].
type Request struct {
	// Description is the free-text voice description.
	Description string `json:"description"`

	// Language is the optional target language. Empty means
	// [normalize.DefaultLanguage].
	Language string `json:"language,omitempty"`
}

// Validate checks the description window. It returns the trimmed
// description on success and a *voice.ValidationError otherwise.
func (r Request) Validate() (string, error) {
	desc := strings.TrimSpace(r.Description)
	n := utf8.RuneCountInString(desc)
	switch {
	case n == 0:
		return "", &voice.ValidationError{
			Field:   "description",
			Message: "description is required",
		}
	case n < MinDescriptionLength:
		return "", &voice.ValidationError{
			Field:   "description",
			Bound:   MinDescriptionLength,
			Message: fmt.Sprintf("description must be at least %d characters", MinDescriptionLength),
		}
	case n > MaxDescriptionLength:
		return "", &voice.ValidationError{
			Field:   "description",
			Bound:   MaxDescriptionLength,
			Message: fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength),
		}
	}
	return desc, nil
}

// Source tells where the candidates of a [Response] came from.
type Source string

const (
	SourceCache     Source = "cache"
	SourceCatalog   Source = "catalog"
	SourceGenerated Source = "generated"
)

// Response is the output of [Engine.Design].
type Response struct {
	// Candidates are ranked by descending quality score. A cache hit yields
	// exactly one candidate.
	Candidates []voice.ScoredCandidate `json:"candidates"`

	Source Source `json:"source"`

	// Hash is the content address of the normalized description.
	Hash string `json:"hash"`

	// Language is the normalized target language.
	Language string `json:"language"`

	Attributes voice.AttributeSet `json:"attributes"`

	// Notes lists the sanitizer rewrites applied to the description.
	Notes []string `json:"notes,omitempty"`
}

// Top returns the best candidate. ok is false for an empty response.
func (r *Response) Top() (c voice.ScoredCandidate, ok bool) {
	if r == nil || len(r.Candidates) == 0 {
		return voice.ScoredCandidate{}, false
	}
	return r.Candidates[0], true
}
