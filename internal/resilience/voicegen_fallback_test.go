package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
	vgmock "github.com/MrWong99/vocalis/pkg/provider/voicegen/mock"
)

func TestVoiceGenFallback_PrimarySuccess(t *testing.T) {
	primary := &vgmock.Provider{Previews: []voicegen.Preview{{VoiceRef: "p1", Audio: []byte{1}}}}
	secondary := &vgmock.Provider{Previews: []voicegen.Preview{{VoiceRef: "s1", Audio: []byte{1}}}}

	fb := NewVoiceGenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	previews, err := fb.GeneratePreviews(context.Background(), voicegen.Request{Description: "d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(previews) != 1 || previews[0].VoiceRef != "p1" {
		t.Fatalf("previews = %+v", previews)
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.CallCount())
	}
}

func TestVoiceGenFallback_Failover(t *testing.T) {
	primary := &vgmock.Provider{Err: fmt.Errorf("down: %w", voicegen.ErrTransient)}
	secondary := &vgmock.Provider{Previews: []voicegen.Preview{{VoiceRef: "s1", Audio: []byte{1}}}}

	fb := NewVoiceGenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	previews, err := fb.GeneratePreviews(context.Background(), voicegen.Request{Description: "d"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if previews[0].VoiceRef != "s1" {
		t.Fatalf("previews = %+v, want from secondary", previews)
	}
}

func TestVoiceGenFallback_ContentPolicyNotFailedOver(t *testing.T) {
	primary := &vgmock.Provider{Err: fmt.Errorf("nope: %w", voicegen.ErrContentPolicy)}
	secondary := &vgmock.Provider{Previews: []voicegen.Preview{{VoiceRef: "s1", Audio: []byte{1}}}}

	fb := NewVoiceGenFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	fb.AddFallback("secondary", secondary)

	for i := 0; i < 3; i++ {
		_, err := fb.GeneratePreviews(context.Background(), voicegen.Request{Description: "d"})
		if !errors.Is(err, voicegen.ErrContentPolicy) {
			t.Fatalf("err = %v, want content policy", err)
		}
	}
	if secondary.CallCount() != 0 {
		t.Fatalf("secondary called %d times, want 0", secondary.CallCount())
	}
	if !fb.Available() || fb.States()["primary"] != StateClosed {
		t.Fatalf("states = %v, content policy must not open the circuit", fb.States())
	}
}

func TestVoiceGenFallback_AllFailKeepsClassification(t *testing.T) {
	primary := &vgmock.Provider{Err: fmt.Errorf("broke: %w", voicegen.ErrQuota)}

	fb := NewVoiceGenFallback(primary, "primary", FallbackConfig{})
	_, err := fb.GeneratePreviews(context.Background(), voicegen.Request{Description: "d"})
	if !errors.Is(err, ErrAllFailed) || !errors.Is(err, voicegen.ErrQuota) {
		t.Fatalf("err = %v, want ErrAllFailed wrapping ErrQuota", err)
	}
}
