// Package designer runs the voice design pipeline: it turns a free-text
// description into a ranked list of voice candidates.
//
// The steps are:
//
//  1. Validate the description length window.
//  2. Sanitize phrases the generation provider is known to reject.
//  3. Parse attributes and compute the content address of the request.
//  4. Return the cached candidate when the address is known.
//  5. Match the catalog. A confident match is ranked and returned.
//  6. Otherwise normalize the description, generate previews, rank them and
//     cache the top candidate.
//
// The engine performs no logging. Every failure is returned as a typed error
// from pkg/voice and is scoped to the single request. Each stage records a
// span and latency metrics via [observe].
package designer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/vocalis/internal/catalog"
	"github.com/MrWong99/vocalis/internal/describe"
	"github.com/MrWong99/vocalis/internal/generation"
	"github.com/MrWong99/vocalis/internal/normalize"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/quality"
	"github.com/MrWong99/vocalis/internal/resultcache"
	"github.com/MrWong99/vocalis/internal/sanitize"
	"github.com/MrWong99/vocalis/pkg/voice"
)

// Catalog lists the voices the matcher scores. [catalog.Repository]
// satisfies it.
type Catalog interface {
	List(ctx context.Context) ([]voice.CatalogVoice, error)
}

// Generator produces preview candidates when the catalog has no confident
// match. [generation.Orchestrator] satisfies it.
type Generator interface {
	Generate(ctx context.Context, in generation.Input) ([]voice.GeneratedCandidate, error)
}

// Compile-time assertions.
var (
	_ Catalog   = (*catalog.Repository)(nil)
	_ Generator = (*generation.Orchestrator)(nil)
)

// Outcome labels recorded on the design metrics.
const (
	outcomeValidation    = "validation_error"
	outcomeContentPolicy = "content_policy"
	outcomeUnavailable   = "provider_unavailable"
	outcomeNoCandidate   = "no_usable_candidate"
	outcomeError         = "error"
)

// Engine is the design pipeline. It is safe for concurrent use; requests
// share no mutable state apart from the catalog and the cache.
type Engine struct {
	catalog   Catalog
	generator Generator
	cache     resultcache.Store

	sanitizer *sanitize.Sanitizer
	matcher   *catalog.Matcher
	scorer    *quality.Scorer
	metrics   *observe.Metrics
	now       func() time.Time
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithSanitizer replaces the default sanitizer built from
// [sanitize.DefaultRules].
func WithSanitizer(s *sanitize.Sanitizer) Option {
	return func(e *Engine) { e.sanitizer = s }
}

// WithMatcher replaces the matcher built from [catalog.DefaultWeights].
func WithMatcher(m *catalog.Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithScorer replaces the scorer built from [quality.DefaultWeights].
func WithScorer(s *quality.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithMetrics sets the metrics sink. Default is [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an [Engine]. cat, gen and cache are required.
func New(cat Catalog, gen Generator, cache resultcache.Store, opts ...Option) (*Engine, error) {
	if cat == nil || gen == nil || cache == nil {
		return nil, errors.New("designer: catalog, generator and cache are required")
	}
	e := &Engine{
		catalog:   cat,
		generator: gen,
		cache:     cache,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}

	var err error
	if e.sanitizer == nil {
		if e.sanitizer, err = sanitize.New(sanitize.DefaultRules); err != nil {
			return nil, fmt.Errorf("designer: %w", err)
		}
	}
	if e.matcher == nil {
		if e.matcher, err = catalog.NewMatcher(catalog.DefaultWeights()); err != nil {
			return nil, fmt.Errorf("designer: %w", err)
		}
	}
	if e.scorer == nil {
		if e.scorer, err = quality.NewScorer(quality.DefaultWeights()); err != nil {
			return nil, fmt.Errorf("designer: %w", err)
		}
	}
	if e.metrics == nil {
		e.metrics = observe.DefaultMetrics()
	}
	return e, nil
}

// Design runs the full pipeline for req.
//
// Errors:
//   - description outside the length window: *voice.ValidationError
//   - generation refused on policy grounds: *voice.ContentPolicyError
//   - generation temporarily impossible: *voice.ProviderUnavailableError
//   - no preview carried audio: voice.ErrNoUsableCandidate
//
// An empty confident match set is not an error; it selects generation.
func (e *Engine) Design(ctx context.Context, req Request) (resp *Response, err error) {
	start := e.now()
	e.metrics.ActiveDesigns.Add(ctx, 1)
	ctx, span := observe.StartSpan(ctx, "designer.Design")
	defer func() {
		e.metrics.ActiveDesigns.Add(ctx, -1)
		outcome := outcomeFor(resp, err)
		e.metrics.RecordDesign(ctx, outcome, e.now().Sub(start).Seconds())
		span.SetAttributes(observe.Attr("outcome", outcome))
		observe.EndSpan(span, err)
	}()

	text, err := req.Validate()
	if err != nil {
		return nil, err
	}

	sanitized := e.sanitizer.Sanitize(text)
	attrs := describe.Parse(sanitized.Text)
	desc := normalize.Describe(text, sanitized.Text, req.Language)
	span.SetAttributes(observe.Attr("hash", desc.Hash))

	resp = &Response{
		Hash:       desc.Hash,
		Language:   desc.Language,
		Attributes: attrs,
		Notes:      sanitized.Notes,
	}

	if entry, ok := e.lookup(ctx, desc.Hash); ok {
		resp.Source = SourceCache
		resp.Candidates = []voice.ScoredCandidate{entry.Candidate}
		return resp, nil
	}

	matches, err := e.match(ctx, attrs, desc)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		resp.Source = SourceCatalog
		resp.Candidates = e.scorer.RankMatches(matches, attrs, desc.Sanitized)
		return resp, nil
	}

	candidates, err := e.generate(ctx, attrs, desc, sanitized.Notes)
	if err != nil {
		return nil, err
	}
	ranked := e.scorer.RankGenerated(candidates, attrs, desc.Sanitized)
	if len(ranked) == 0 {
		return nil, voice.ErrNoUsableCandidate
	}

	// The write outlives a caller that stops waiting; later requests for the
	// same hash still benefit. A failed write does not fail the request.
	if serr := e.cache.Set(context.WithoutCancel(ctx), desc.Hash, ranked[0]); serr != nil {
		e.metrics.RecordCacheLookup(ctx, "set_error")
		span.AddEvent("cache write failed", trace.WithAttributes(attribute.String("error", serr.Error())))
	}

	resp.Source = SourceGenerated
	resp.Candidates = ranked
	return resp, nil
}

// lookup reads the cache. Read failures count as misses.
func (e *Engine) lookup(ctx context.Context, hash string) (voice.CacheEntry, bool) {
	entry, ok, err := e.cache.Get(ctx, hash)
	switch {
	case err != nil:
		e.metrics.RecordCacheLookup(ctx, "error")
		return voice.CacheEntry{}, false
	case !ok:
		e.metrics.RecordCacheLookup(ctx, "miss")
		return voice.CacheEntry{}, false
	}
	e.metrics.RecordCacheLookup(ctx, "hit")
	return entry, true
}

func (e *Engine) match(ctx context.Context, attrs voice.AttributeSet, desc voice.Description) ([]voice.MatchResult, error) {
	ctx, span := observe.StartSpan(ctx, "designer.match")
	start := e.now()

	voices, err := e.catalog.List(ctx)
	if err != nil {
		err = fmt.Errorf("designer: list catalog: %w", err)
		observe.EndSpan(span, err)
		return nil, err
	}
	matches := e.matcher.Match(attrs, desc.Raw, voices)

	e.metrics.MatchDuration.Record(ctx, e.now().Sub(start).Seconds())
	span.SetAttributes(attribute.Int("matches", len(matches)))
	span.End()
	return matches, nil
}

func (e *Engine) generate(ctx context.Context, attrs voice.AttributeSet, desc voice.Description, notes []string) ([]voice.GeneratedCandidate, error) {
	ctx, span := observe.StartSpan(ctx, "designer.generate")
	start := e.now()

	candidates, err := e.generator.Generate(ctx, generation.Input{
		Request:        normalize.Build(attrs, desc.Sanitized),
		Language:       desc.Language,
		SanitizerNotes: notes,
	})
	e.metrics.GenerationDuration.Record(ctx, e.now().Sub(start).Seconds())
	observe.EndSpan(span, err)
	return candidates, err
}

func outcomeFor(resp *Response, err error) string {
	var (
		verr *voice.ValidationError
		perr *voice.ContentPolicyError
	)
	switch {
	case err == nil && resp != nil:
		return string(resp.Source)
	case errors.As(err, &verr):
		return outcomeValidation
	case errors.As(err, &perr):
		return outcomeContentPolicy
	case voice.IsRetryable(err):
		return outcomeUnavailable
	case errors.Is(err, voice.ErrNoUsableCandidate):
		return outcomeNoCandidate
	}
	return outcomeError
}
