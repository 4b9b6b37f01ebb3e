package resilience

import (
	"context"

	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
)

// VoiceGenFallback implements [voicegen.Provider] with automatic failover
// across multiple voice-generation backends. Content-policy rejections are
// returned from the first provider that issues them.
type VoiceGenFallback struct {
	group *FallbackGroup[voicegen.Provider]
}

// Compile-time interface assertion.
var _ voicegen.Provider = (*VoiceGenFallback)(nil)

// NewVoiceGenFallback creates a [VoiceGenFallback] with primary as the
// preferred backend. cfg.IsPermanent defaults to [voicegen.IsPermanent].
func NewVoiceGenFallback(primary voicegen.Provider, primaryName string, cfg FallbackConfig) *VoiceGenFallback {
	if cfg.IsPermanent == nil {
		cfg.IsPermanent = voicegen.IsPermanent
	}
	return &VoiceGenFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional provider as a fallback.
func (f *VoiceGenFallback) AddFallback(name string, provider voicegen.Provider) {
	f.group.AddFallback(name, provider)
}

// Available reports whether any backend's circuit is not open.
func (f *VoiceGenFallback) Available() bool { return f.group.Available() }

// States reports the circuit state per backend.
func (f *VoiceGenFallback) States() map[string]State { return f.group.States() }

// GeneratePreviews asks the first healthy provider for previews.
func (f *VoiceGenFallback) GeneratePreviews(ctx context.Context, req voicegen.Request) ([]voicegen.Preview, error) {
	return ExecuteWithResult(f.group, func(p voicegen.Provider) ([]voicegen.Preview, error) {
		return p.GeneratePreviews(ctx, req)
	})
}
