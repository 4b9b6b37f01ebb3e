// Package catalog holds the roster of ready-to-use voices and the matcher that
// scores them against a parsed description.
//
// A [Repository] is constructed explicitly from one or more [Source]s and
// injected wherever the catalog is needed. It loads lazily: the first
// successful [Repository.EnsureLoaded] call populates the roster, later calls
// return immediately. The roster is read-only afterwards and lives for the
// lifetime of the process.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// ErrVoiceNotFound is returned by [Repository.Get] for an unknown id.
var ErrVoiceNotFound = errors.New("catalog: voice not found")

// Source lists the voices of one external roster.
type Source interface {
	// Name identifies the source in logs and errors.
	Name() string

	// ListVoices returns every voice the source knows about.
	ListVoices(ctx context.Context) ([]voice.CatalogVoice, error)
}

// Repository is the process-wide, read-mostly voice roster.
// It is safe for concurrent use.
type Repository struct {
	sources []Source

	mu     sync.RWMutex
	loaded bool
	voices []voice.CatalogVoice
	byID   map[string]int
}

// NewRepository creates a [Repository] over sources. Sources are merged in
// the given order; when two sources report the same voice id the first one wins.
func NewRepository(sources ...Source) *Repository {
	return &Repository{sources: slices.Clone(sources)}
}

// EnsureLoaded populates the roster on first call. It is safe to call
// repeatedly and from many goroutines; only the first successful caller
// performs the load. A failed load leaves the repository empty so the next
// call retries.
func (r *Repository) EnsureLoaded(ctx context.Context) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}

	results := make([][]voice.CatalogVoice, len(r.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range r.sources {
		g.Go(func() error {
			vs, err := src.ListVoices(gctx)
			if err != nil {
				return fmt.Errorf("catalog: load source %q: %w", src.Name(), err)
			}
			results[i] = vs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	voices := make([]voice.CatalogVoice, 0)
	byID := make(map[string]int)
	for i, vs := range results {
		dupes := 0
		for _, v := range vs {
			if v.ID == "" {
				continue
			}
			if _, ok := byID[v.ID]; ok {
				dupes++
				continue
			}
			byID[v.ID] = len(voices)
			voices = append(voices, normalizeVoice(v))
		}
		slog.Debug("catalog source loaded",
			"source", r.sources[i].Name(),
			"voices", len(vs),
			"duplicates_skipped", dupes,
		)
	}

	r.voices = voices
	r.byID = byID
	r.loaded = true
	return nil
}

// List returns the roster, loading it first if necessary. The returned slice
// must not be modified.
func (r *Repository) List(ctx context.Context) ([]voice.CatalogVoice, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.voices, nil
}

// Get returns the voice with the given id.
func (r *Repository) Get(ctx context.Context, id string) (voice.CatalogVoice, error) {
	if err := r.EnsureLoaded(ctx); err != nil {
		return voice.CatalogVoice{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return voice.CatalogVoice{}, fmt.Errorf("%w: %q", ErrVoiceNotFound, id)
	}
	return r.voices[i], nil
}

// Loaded reports whether the roster has been populated.
func (r *Repository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Len returns the number of loaded voices (0 before loading).
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.voices)
}

// normalizeVoice fills defaults so matching never sees empty enums.
func normalizeVoice(v voice.CatalogVoice) voice.CatalogVoice {
	if v.Gender == "" {
		v.Gender = voice.GenderUnspecified
	}
	if v.AgeGroup == "" {
		v.AgeGroup = voice.AgeUnspecified
	}
	if v.QualityTier == "" {
		v.QualityTier = voice.TierStandard
	}
	if v.Name == "" {
		v.Name = v.ID
	}
	return v
}
