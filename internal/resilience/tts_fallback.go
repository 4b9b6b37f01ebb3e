package resilience

import (
	"context"

	"github.com/MrWong99/vocalis/pkg/provider/tts"
)

// TTSFallback puts the render backends behind per-backend circuit breakers
// and speaks through the first one that accepts the stream.
type TTSFallback struct {
	group     *FallbackGroup[tts.Provider]
	mediaType string
}

// Compile-time interface assertions.
var (
	_ tts.Provider   = (*TTSFallback)(nil)
	_ tts.MediaTyper = (*TTSFallback)(nil)
)

// NewTTSFallback returns a renderer that prefers primary.
func NewTTSFallback(primary tts.Provider, primaryName string, cfg FallbackConfig) *TTSFallback {
	return &TTSFallback{
		group:     NewFallbackGroup(primary, primaryName, cfg),
		mediaType: tts.MediaTypeOf(primary),
	}
}

// AddFallback appends a backend tried after those already registered.
func (f *TTSFallback) AddFallback(name string, provider tts.Provider) {
	f.group.AddFallback(name, provider)
}

// Available reports whether any backend's circuit is not open.
func (f *TTSFallback) Available() bool { return f.group.Available() }

// MediaType reports the primary backend's audio type. Fallbacks are expected
// to be configured with the same output format.
func (f *TTSFallback) MediaType() string { return f.mediaType }

// States reports the circuit state per backend.
func (f *TTSFallback) States() map[string]State { return f.group.States() }

// SynthesizeStream opens the stream on the first backend that accepts it.
// Failover covers stream setup only: once a backend starts reading text it
// owns the channel, so a stream that dies midway ends short.
func (f *TTSFallback) SynthesizeStream(ctx context.Context, text <-chan string, voice tts.VoiceProfile) (<-chan []byte, error) {
	return ExecuteWithResult(f.group, func(p tts.Provider) (<-chan []byte, error) {
		return p.SynthesizeStream(ctx, text, voice)
	})
}
