package voicegen_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
	"github.com/MrWong99/vocalis/pkg/provider/voicegen/mock"
)

func TestNewRateLimited_DisabledReturnsInner(t *testing.T) {
	t.Parallel()
	inner := &mock.Provider{}
	if got := voicegen.NewRateLimited(inner, voicegen.RateLimit{}); got != voicegen.Provider(inner) {
		t.Errorf("NewRateLimited with zero limit = %T, want the inner provider", got)
	}
}

func TestRateLimited_PassesThroughWithinBurst(t *testing.T) {
	t.Parallel()
	inner := &mock.Provider{Previews: []voicegen.Preview{{VoiceRef: "g1", Audio: []byte{1}}}}
	p := voicegen.NewRateLimited(inner, voicegen.RateLimit{PerSecond: 1, Burst: 2})

	for i := range 2 {
		if _, err := p.GeneratePreviews(context.Background(), voicegen.Request{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if inner.CallCount() != 2 {
		t.Errorf("inner calls = %d, want 2", inner.CallCount())
	}
}

func TestRateLimited_WaitExceedsDeadline(t *testing.T) {
	t.Parallel()
	inner := &mock.Provider{}
	p := voicegen.NewRateLimited(inner, voicegen.RateLimit{PerSecond: 0.01, Burst: 1})

	if _, err := p.GeneratePreviews(context.Background(), voicegen.Request{}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.GeneratePreviews(ctx, voicegen.Request{})
	if !errors.Is(err, voicegen.ErrTransient) {
		t.Fatalf("err = %v, want ErrTransient", err)
	}
	if inner.CallCount() != 1 {
		t.Errorf("inner calls = %d, want 1", inner.CallCount())
	}
}
