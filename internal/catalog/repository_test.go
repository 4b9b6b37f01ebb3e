package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// countingSource counts ListVoices calls and can fail on demand.
type countingSource struct {
	name   string
	voices []voice.CatalogVoice
	calls  atomic.Int32
	fail   atomic.Bool
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) ListVoices(context.Context) ([]voice.CatalogVoice, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return nil, errors.New("source offline")
	}
	return s.voices, nil
}

func TestRepository_EnsureLoadedIsIdempotent(t *testing.T) {
	t.Parallel()
	src := &countingSource{name: "a", voices: []voice.CatalogVoice{{ID: "v1", Name: "One"}}}
	repo := NewRepository(src)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.EnsureLoaded(context.Background()); err != nil {
				t.Errorf("EnsureLoaded: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Errorf("source listed %d times, want 1", got)
	}
	if !repo.Loaded() || repo.Len() != 1 {
		t.Errorf("Loaded=%v Len=%d, want true/1", repo.Loaded(), repo.Len())
	}
}

func TestRepository_FailedLoadCanBeRetried(t *testing.T) {
	t.Parallel()
	src := &countingSource{name: "flaky", voices: []voice.CatalogVoice{{ID: "v1"}}}
	src.fail.Store(true)
	repo := NewRepository(src)

	err := repo.EnsureLoaded(context.Background())
	if err == nil || !strings.Contains(err.Error(), "flaky") {
		t.Fatalf("EnsureLoaded err = %v, want error naming the source", err)
	}
	if repo.Loaded() {
		t.Fatal("repository must not be marked loaded after a failure")
	}

	src.fail.Store(false)
	if err := repo.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if repo.Len() != 1 {
		t.Errorf("Len = %d, want 1", repo.Len())
	}
}

func TestRepository_MergeKeepsFirstDuplicate(t *testing.T) {
	t.Parallel()
	first := NewStaticSource("first",
		voice.CatalogVoice{ID: "shared", Name: "From first"},
		voice.CatalogVoice{ID: "a"},
	)
	second := NewStaticSource("second",
		voice.CatalogVoice{ID: "shared", Name: "From second"},
		voice.CatalogVoice{ID: "b"},
		voice.CatalogVoice{ID: ""},
	)
	repo := NewRepository(first, second)

	voices, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var ids []string
	for _, v := range voices {
		ids = append(ids, v.ID)
	}
	if strings.Join(ids, ",") != "shared,a,b" {
		t.Errorf("ids = %v, want [shared a b]", ids)
	}
	v, err := repo.Get(context.Background(), "shared")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Name != "From first" {
		t.Errorf("Name = %q, want From first", v.Name)
	}
	// Defaults are filled in.
	a, _ := repo.Get(context.Background(), "a")
	if a.Gender != voice.GenderUnspecified || a.AgeGroup != voice.AgeUnspecified || a.QualityTier != voice.TierStandard || a.Name != "a" {
		t.Errorf("defaults not applied: %+v", a)
	}
}

func TestRepository_GetUnknown(t *testing.T) {
	t.Parallel()
	repo := NewRepository(NewStaticSource("s"))
	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, ErrVoiceNotFound) {
		t.Errorf("err = %v, want ErrVoiceNotFound", err)
	}
}

func TestBuiltinSource(t *testing.T) {
	t.Parallel()
	voices, err := BuiltinSource().ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) < 10 {
		t.Fatalf("builtin roster has %d voices, want at least 10", len(voices))
	}
	for _, v := range voices {
		if v.ProviderRef == "" {
			t.Errorf("voice %q has no provider_ref", v.ID)
		}
	}
}

func TestLoadRoster(t *testing.T) {
	t.Parallel()
	rf, err := LoadRoster(strings.NewReader(`
voices:
  - id: v1
    name: Vera
    gender: female
    accent: Irish
    age_group: older
    tags: [audiobook]
    tone: [warm]
    quality_tier: high
`))
	if err != nil {
		t.Fatalf("LoadRoster: %v", err)
	}
	if len(rf.Voices) != 1 || rf.Voices[0].Accent != "Irish" || rf.Voices[0].QualityTier != voice.TierHigh {
		t.Errorf("unexpected roster: %+v", rf.Voices)
	}

	if _, err := LoadRoster(strings.NewReader("voices:\n  - name: no id\n")); err == nil {
		t.Error("expected error for voice without id")
	}
	if _, err := LoadRoster(strings.NewReader("voices:\n  - id: x\n    colour: blue\n")); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestYAMLSource_ExampleRoster(t *testing.T) {
	t.Parallel()
	src := NewYAMLSource("../../configs/roster.yaml")
	voices, err := src.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 || voices[1].Accent != "Scottish" {
		t.Errorf("unexpected roster: %+v", voices)
	}

	if _, err := NewYAMLSource("does-not-exist.yaml").ListVoices(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
