package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/MrWong99/vocalis/pkg/voice"
)

func TestElevenLabsSource_ListVoices(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("path = %q, want /v1/voices", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"voices": [
				{
					"voice_id": "abc123",
					"name": "Rachel",
					"category": "premade",
					"labels": {"gender": "female", "age": "young", "accent": "american", "description": "calm", "use_case": "narration"}
				},
				{
					"voice_id": "def456",
					"name": "Custom",
					"category": "cloned",
					"labels": {"age": "middle_aged", "accent": "british"}
				}
			]
		}`))
	}))
	defer srv.Close()

	src, err := NewElevenLabsSource("test-key", WithElevenLabsBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewElevenLabsSource: %v", err)
	}
	voices, err := src.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}

	rachel := voices[0]
	if rachel.Gender != voice.GenderFemale || rachel.AgeGroup != voice.AgeYoung || rachel.Accent != "American" {
		t.Errorf("rachel attributes = %+v", rachel)
	}
	if rachel.QualityTier != voice.TierHigh {
		t.Errorf("premade voice tier = %q, want high", rachel.QualityTier)
	}
	if !slices.Contains(rachel.Tone, "calm") || !slices.Contains(rachel.Tags, "narrator") {
		t.Errorf("rachel tone/tags = %v / %v", rachel.Tone, rachel.Tags)
	}
	if rachel.ProviderRef != "abc123" {
		t.Errorf("ProviderRef = %q", rachel.ProviderRef)
	}

	custom := voices[1]
	if custom.Gender != voice.GenderUnspecified || custom.AgeGroup != voice.AgeMiddleAged || custom.Accent != "British" {
		t.Errorf("custom attributes = %+v", custom)
	}
	if custom.QualityTier != voice.TierStandard {
		t.Errorf("cloned voice tier = %q, want standard", custom.QualityTier)
	}
}

func TestElevenLabsSource_HTTPError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	src, _ := NewElevenLabsSource("bad", WithElevenLabsBaseURL(srv.URL))
	if _, err := src.ListVoices(context.Background()); err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestNewElevenLabsSource_RequiresKey(t *testing.T) {
	t.Parallel()
	if _, err := NewElevenLabsSource(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
