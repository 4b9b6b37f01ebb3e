// Package generation asks a voice-generation provider for previews when the
// catalog has no confident match, and turns the provider's answer into
// candidates or a typed failure.
//
// The orchestrator never retries: retry and failover live in the provider
// chain it is given (see voicegen.Retrying and resilience.VoiceGenFallback).
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrWong99/vocalis/internal/normalize"
	"github.com/MrWong99/vocalis/internal/resilience"
	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
	"github.com/MrWong99/vocalis/pkg/voice"
)

// DefaultPreviews is the number of previews requested per generation.
const DefaultPreviews = 3

// Reasons reported in [voice.ProviderUnavailableError].
const (
	ReasonTransient   = "transient"
	ReasonQuota       = "quota"
	ReasonCircuitOpen = "circuit_open"
	ReasonUnknown     = "unknown"
)

// Orchestrator runs one generation round per call. It is safe for
// concurrent use.
type Orchestrator struct {
	provider voicegen.Provider
	previews int
	newID    func() string
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithPreviews sets the number of previews requested. Values ≤ 0 are ignored.
func WithPreviews(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.previews = n
		}
	}
}

// WithIDGenerator replaces the candidate id generator (used by tests).
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) {
		o.newID = f
	}
}

// New creates an [Orchestrator] over provider.
func New(provider voicegen.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		previews: DefaultPreviews,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Input is everything a generation round needs.
type Input struct {
	// Request is the provider-facing description and sample text.
	Request normalize.Result

	// Language is the normalized language of the request.
	Language string

	// SanitizerNotes are the rewrites already applied to the description;
	// they are echoed in content-policy suggestions.
	SanitizerNotes []string
}

// Generate requests previews and returns the usable ones as candidates, in
// provider order.
//
// Errors:
//   - provider content-policy rejection: *voice.ContentPolicyError
//   - transient, quota or open-circuit failure: *voice.ProviderUnavailableError
//   - previews without any usable audio: voice.ErrNoUsableCandidate, or a
//     *voice.ContentPolicyError when every preview was refused on policy grounds
func (o *Orchestrator) Generate(ctx context.Context, in Input) ([]voice.GeneratedCandidate, error) {
	previews, err := o.provider.GeneratePreviews(ctx, voicegen.Request{
		Description: in.Request.ProviderDescription,
		SampleText:  in.Request.SampleText,
		Language:    in.Language,
		Count:       o.previews,
	})
	if err != nil {
		return nil, o.classify(ctx, err, in)
	}

	candidates := make([]voice.GeneratedCandidate, 0, len(previews))
	policyRejected := 0
	for _, p := range previews {
		if p.Failure == voice.FailureContentPolicy {
			policyRejected++
		}
		c := voice.GeneratedCandidate{
			ID:                o.newID(),
			ProviderRef:       p.VoiceRef,
			Audio:             p.Audio,
			MediaType:         p.MediaType,
			DurationSecs:      p.DurationSecs,
			SourceDescription: in.Request.ProviderDescription,
			Failure:           p.Failure,
		}
		if c.Usable() {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) > 0 {
		return candidates, nil
	}
	if len(previews) > 0 && policyRejected == len(previews) {
		return nil, &voice.ContentPolicyError{
			Suggestions: Suggestions(in.SanitizerNotes),
			Err:         voicegen.ErrContentPolicy,
		}
	}
	return nil, voice.ErrNoUsableCandidate
}

func (o *Orchestrator) classify(ctx context.Context, err error, in Input) error {
	switch {
	case errors.Is(err, voicegen.ErrContentPolicy):
		return &voice.ContentPolicyError{Suggestions: Suggestions(in.SanitizerNotes), Err: err}
	case ctx.Err() != nil:
		return fmt.Errorf("generation: %w", ctx.Err())
	case errors.Is(err, voicegen.ErrQuota):
		return &voice.ProviderUnavailableError{Reason: ReasonQuota, Err: err}
	case errors.Is(err, voicegen.ErrTransient):
		return &voice.ProviderUnavailableError{Reason: ReasonTransient, Err: err}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return &voice.ProviderUnavailableError{Reason: ReasonCircuitOpen, Err: err}
	default:
		return &voice.ProviderUnavailableError{Reason: ReasonUnknown, Err: err}
	}
}

// baseSuggestions are offered with every content-policy rejection.
var baseSuggestions = []string{
	"Describe the voice's qualities (pitch, pace, tone) instead of naming a real person.",
	"Make clear the speaker is an adult.",
	"Remove sexual or violent wording.",
}

// Suggestions returns rewrite hints for a rejected description. Sanitizer
// notes come first so the caller sees what was already changed.
func Suggestions(notes []string) []string {
	out := make([]string, 0, len(notes)+len(baseSuggestions))
	for _, n := range notes {
		out = append(out, "Already applied: "+n+".")
	}
	return append(out, baseSuggestions...)
}
