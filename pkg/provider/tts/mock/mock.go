// Package mock provides a scripted [tts.Provider] for render tests.
//
//	p := &mock.Provider{
//	    SynthesizeChunks: [][]byte{[]byte("abc"), []byte("def")},
//	    Errs:             []error{errFirstCallFails},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vocalis/pkg/provider/tts"
)

// SynthesizeStreamCall records one SynthesizeStream invocation.
type SynthesizeStreamCall struct {
	Ctx   context.Context
	Voice tts.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// SynthesizeChunks is emitted on every successful stream once the text
	// channel is drained.
	SynthesizeChunks [][]byte

	// Errs scripts per-call failures: call i returns Errs[i] when it is
	// non-nil. Calls past the end fall back to SynthesizeErr.
	Errs []error

	// SynthesizeErr fails every call not covered by Errs.
	SynthesizeErr error

	// AudioType is returned by MediaType. Empty means the caller's default.
	AudioType string

	// SynthesizeStreamCalls records every call in order.
	SynthesizeStreamCalls []SynthesizeStreamCall

	texts []string
}

// MediaType returns AudioType.
func (p *Provider) MediaType() string { return p.AudioType }

// SynthesizeStream records the call and either fails as scripted or returns a
// channel that emits SynthesizeChunks after text is closed.
func (p *Provider) SynthesizeStream(ctx context.Context, text <-chan string, voice tts.VoiceProfile) (<-chan []byte, error) {
	p.mu.Lock()
	call := len(p.SynthesizeStreamCalls)
	p.SynthesizeStreamCalls = append(p.SynthesizeStreamCalls, SynthesizeStreamCall{Ctx: ctx, Voice: voice})
	p.texts = append(p.texts, "")
	if err := p.errFor(call); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	chunks := append([][]byte(nil), p.SynthesizeChunks...)
	p.mu.Unlock()

	out := make(chan []byte, len(chunks))
	go func() {
		defer close(out)
		for fragment := range text {
			p.mu.Lock()
			p.texts[call] += fragment
			p.mu.Unlock()
		}
		for _, c := range chunks {
			select {
			case <-ctx.Done():
				return
			case out <- c:
			}
		}
	}()
	return out, nil
}

func (p *Provider) errFor(call int) error {
	if call < len(p.Errs) && p.Errs[call] != nil {
		return p.Errs[call]
	}
	return p.SynthesizeErr
}

// CallCount returns the number of SynthesizeStream calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SynthesizeStreamCalls)
}

// Text returns the concatenated text received by call i, or "" when there
// was no such call.
func (p *Provider) Text(i int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.texts) {
		return ""
	}
	return p.texts[i]
}

var _ tts.Provider = (*Provider)(nil)
