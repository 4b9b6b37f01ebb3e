package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/tts"
	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
)

// ErrProviderNotRegistered is returned by the Create methods for a name with
// no factory.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider of kind P from its config entry.
type Factory[P any] func(ProviderEntry) (P, error)

// Registry maps provider names to factories, one namespace per provider
// kind. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	voicegen map[string]Factory[voicegen.Provider]
	tts      map[string]Factory[tts.Provider]
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{
		voicegen: make(map[string]Factory[voicegen.Provider]),
		tts:      make(map[string]Factory[tts.Provider]),
	}
}

// RegisterVoiceGen registers a voice generation factory, replacing any
// earlier one under the same name.
func (r *Registry) RegisterVoiceGen(name string, f Factory[voicegen.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voicegen[name] = f
}

// RegisterTTS registers a render factory, replacing any earlier one under
// the same name.
func (r *Registry) RegisterTTS(name string, f Factory[tts.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = f
}

// CreateVoiceGen builds the voice generation provider named by entry.Name.
func (r *Registry) CreateVoiceGen(entry ProviderEntry) (voicegen.Provider, error) {
	return create(r, "voicegen", r.voicegen, entry)
}

// CreateTTS builds the render provider named by entry.Name.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	return create(r, "tts", r.tts, entry)
}

func create[P any](r *Registry, kind string, m map[string]Factory[P], entry ProviderEntry) (P, error) {
	r.mu.RLock()
	f, ok := m[entry.Name]
	r.mu.RUnlock()
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, kind, entry.Name)
	}
	p, err := f(entry)
	if err != nil {
		return p, fmt.Errorf("config: create %s provider %q: %w", kind, entry.Name, err)
	}
	return p, nil
}
