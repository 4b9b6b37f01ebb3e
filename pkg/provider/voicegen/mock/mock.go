// Package mock provides a test double for the voicegen.Provider interface.
//
// Results are consumed in order: the n-th call returns Results[n] and
// Errors[n] when present, falling back to Previews/Err otherwise.
//
// Example:
//
//	p := &mock.Provider{
//	    Previews: []voicegen.Preview{{VoiceRef: "g1", Audio: []byte("mp3")}},
//	}
//	previews, _ := p.GeneratePreviews(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
)

// GeneratePreviewsCall records a single invocation of GeneratePreviews.
type GeneratePreviewsCall struct {
	// Ctx is the context passed to GeneratePreviews.
	Ctx context.Context
	// Req is the request passed to GeneratePreviews.
	Req voicegen.Request
}

// Provider is a mock implementation of voicegen.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Previews is returned by every call not covered by Results.
	Previews []voicegen.Preview

	// Err, if non-nil, is returned by every call not covered by Errors.
	Err error

	// Results and Errors script per-call responses.
	Results [][]voicegen.Preview
	Errors  []error

	// --- Call records ---

	// Calls records every call to GeneratePreviews in order.
	Calls []GeneratePreviewsCall
}

// GeneratePreviews records the call and returns the scripted response.
func (p *Provider) GeneratePreviews(ctx context.Context, req voicegen.Request) ([]voicegen.Preview, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.Calls)
	p.Calls = append(p.Calls, GeneratePreviewsCall{Ctx: ctx, Req: req})

	previews, err := p.Previews, p.Err
	if n < len(p.Results) {
		previews = p.Results[n]
	}
	if n < len(p.Errors) {
		err = p.Errors[n]
	}
	if err != nil {
		return nil, err
	}
	out := make([]voicegen.Preview, len(previews))
	copy(out, previews)
	return out, nil
}

// CallCount returns the number of recorded calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements voicegen.Provider at compile time.
var _ voicegen.Provider = (*Provider)(nil)
