package designer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/vocalis/internal/catalog"
	"github.com/MrWong99/vocalis/internal/generation"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/resultcache"
	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
	"github.com/MrWong99/vocalis/pkg/provider/voicegen/mock"
	"github.com/MrWong99/vocalis/pkg/voice"
)

var testRoster = []voice.CatalogVoice{
	{ID: "v-amelia", Name: "Amelia", Gender: voice.GenderFemale, Accent: "British", AgeGroup: voice.AgeYoung, Tags: []string{"narrator"}, QualityTier: voice.TierHigh},
	{ID: "v-brock", Name: "Brock", Gender: voice.GenderMale, Accent: "American", AgeGroup: voice.AgeMiddleAged, QualityTier: voice.TierStandard},
	{ID: "v-edith", Name: "Edith", Gender: voice.GenderFemale, Accent: "Australian", AgeGroup: voice.AgeOlder, QualityTier: voice.TierStandard},
}

type fixture struct {
	engine   *Engine
	provider *mock.Provider
	cache    *resultcache.MemoryStore
	reader   *sdkmetric.ManualReader
}

func newFixture(t *testing.T, previews ...voicegen.Preview) *fixture {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	if len(previews) == 0 {
		previews = []voicegen.Preview{
			{VoiceRef: "g-small", Audio: make([]byte, 4<<10), MediaType: "audio/mpeg"},
			{VoiceRef: "g-large", Audio: make([]byte, 64<<10), MediaType: "audio/mpeg"},
		}
	}
	p := &mock.Provider{Previews: previews}
	cache := resultcache.NewMemoryStore()
	repo := catalog.NewRepository(catalog.NewStaticSource("test", testRoster...))

	e, err := New(repo, generation.New(p), cache, WithMetrics(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{engine: e, provider: p, cache: cache, reader: reader}
}

func TestDesign_CatalogMatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, err := f.engine.Design(context.Background(), Request{
		Description: "young female with British accent, clear and professional tone",
	})
	if err != nil {
		t.Fatalf("Design: %v", err)
	}
	if resp.Source != SourceCatalog {
		t.Fatalf("source = %q, want catalog", resp.Source)
	}
	top, ok := resp.Top()
	if !ok || top.ID() != "v-amelia" || top.Kind != voice.KindCatalog {
		t.Fatalf("top = %+v", top)
	}
	if top.Match.Score < catalog.DefaultWeights().MinConfidence {
		t.Errorf("top match score %.2f below confidence gate", top.Match.Score)
	}

	a := resp.Attributes
	if a.Gender != voice.GenderFemale || a.Accent != "British" || a.AgeGroup != voice.AgeYoung {
		t.Errorf("attributes = %+v", a)
	}
	if n := f.provider.CallCount(); n != 0 {
		t.Errorf("provider called %d times, want 0", n)
	}
	if f.cache.Len() != 0 {
		t.Error("catalog results must not be cached")
	}
}

func TestDesign_ExactStandardTierMatchRanksFirst(t *testing.T) {
	t.Parallel()
	repo := catalog.NewRepository(catalog.BuiltinSource())
	e, err := New(repo, generation.New(&mock.Provider{}), resultcache.NewMemoryStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := e.Design(context.Background(), Request{
		Description: "older female voice with a British accent, warm and gentle, for audiobooks",
	})
	if err != nil {
		t.Fatalf("Design: %v", err)
	}
	if resp.Source != SourceCatalog || len(resp.Candidates) < 2 {
		t.Fatalf("source = %q with %d candidates, want several catalog matches", resp.Source, len(resp.Candidates))
	}
	top, _ := resp.Top()
	if top.ID() != "dorothy" || top.Match.Voice.QualityTier != voice.TierStandard {
		t.Fatalf("top = %q, want the standard-tier exact match dorothy", top.ID())
	}
	for i, c := range resp.Candidates[1:] {
		if c.Match.Score > resp.Candidates[i].Match.Score {
			t.Errorf("candidate %q (match %.2f) ranked below %q (match %.2f)",
				c.ID(), c.Match.Score, resp.Candidates[i].ID(), resp.Candidates[i].Match.Score)
		}
	}
}

func TestDesign_GenerationFallbackAndCache(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	req := Request{Description: "sarcastic alien overlord"}

	first, err := f.engine.Design(ctx, req)
	if err != nil {
		t.Fatalf("first Design: %v", err)
	}
	if first.Source != SourceGenerated {
		t.Fatalf("source = %q, want generated", first.Source)
	}
	if len(first.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(first.Candidates))
	}
	top, _ := first.Top()
	if top.Generated == nil || top.Generated.ProviderRef != "g-large" {
		t.Errorf("top candidate = %+v, want the larger preview", top.Generated)
	}
	if first.Attributes.Gender.IsSpecified() || first.Attributes.Accent != "" || first.Attributes.AgeGroup.IsSpecified() {
		t.Errorf("attributes = %+v, want mostly unspecified", first.Attributes)
	}

	entry, ok, err := f.cache.Get(ctx, first.Hash)
	if err != nil || !ok {
		t.Fatalf("cache entry missing for %s (err %v)", first.Hash, err)
	}
	if entry.Candidate.ID() != top.ID() {
		t.Errorf("cached %q, want %q", entry.Candidate.ID(), top.ID())
	}

	// Same text with different spacing and case normalizes to the same hash.
	second, err := f.engine.Design(ctx, Request{Description: "  Sarcastic   ALIEN overlord "})
	if err != nil {
		t.Fatalf("second Design: %v", err)
	}
	if second.Source != SourceCache {
		t.Fatalf("source = %q, want cache", second.Source)
	}
	if second.Hash != first.Hash {
		t.Errorf("hash = %s, want %s", second.Hash, first.Hash)
	}
	if got, _ := second.Top(); got.ID() != top.ID() {
		t.Errorf("cached top = %q, want %q", got.ID(), top.ID())
	}
	if n := f.provider.CallCount(); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
}

func TestDesign_LanguageIsPartOfHash(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	en, err := f.engine.Design(ctx, Request{Description: "sarcastic alien overlord"})
	if err != nil {
		t.Fatalf("Design en: %v", err)
	}
	de, err := f.engine.Design(ctx, Request{Description: "sarcastic alien overlord", Language: "de"})
	if err != nil {
		t.Fatalf("Design de: %v", err)
	}
	if en.Hash == de.Hash {
		t.Error("different languages share a hash")
	}
	if de.Source != SourceGenerated {
		t.Errorf("source = %q, want generated", de.Source)
	}
	if n := f.provider.CallCount(); n != 2 {
		t.Errorf("provider called %d times, want 2", n)
	}
}

func TestDesign_LengthWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		desc    string
		wantErr bool
		bound   int
	}{
		{name: "empty", desc: "", wantErr: true, bound: 0},
		{name: "blank", desc: "    ", wantErr: true, bound: 0},
		{name: "ten characters", desc: strings.Repeat("a", 10), wantErr: true, bound: MinDescriptionLength},
		{name: "19 characters", desc: strings.Repeat("a", 19), wantErr: true, bound: MinDescriptionLength},
		{name: "20 characters", desc: strings.Repeat("a", 20)},
		{name: "1000 characters", desc: strings.Repeat("a", 1000)},
		{name: "1001 characters", desc: strings.Repeat("a", 1001), wantErr: true, bound: MaxDescriptionLength},
		{name: "multibyte counts runes", desc: strings.Repeat("é", 20)},
		{name: "padding is trimmed", desc: "  " + strings.Repeat("a", 19) + "  ", wantErr: true, bound: MinDescriptionLength},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			_, err := f.engine.Design(context.Background(), Request{Description: tc.desc})
			var verr *voice.ValidationError
			isValidation := errors.As(err, &verr)
			if isValidation != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				if verr.Bound != tc.bound || verr.Field != "description" {
					t.Errorf("ValidationError = %+v, want bound %d", verr, tc.bound)
				}
				if n := f.provider.CallCount(); n != 0 {
					t.Errorf("provider called %d times on invalid input", n)
				}
				if f.cache.Len() != 0 {
					t.Error("cache touched on invalid input")
				}
			}
		})
	}
}

func TestDesign_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previews []voicegen.Preview
		err      error
		check    func(t *testing.T, err error)
	}{
		{
			name:     "content policy",
			previews: []voicegen.Preview{{VoiceRef: "x"}},
			err:      voicegen.ErrContentPolicy,
			check: func(t *testing.T, err error) {
				var perr *voice.ContentPolicyError
				if !errors.As(err, &perr) {
					t.Fatalf("err = %v, want ContentPolicyError", err)
				}
				if len(perr.Suggestions) == 0 {
					t.Error("no suggestions")
				}
			},
		},
		{
			name:     "transient",
			previews: []voicegen.Preview{{VoiceRef: "x"}},
			err:      voicegen.ErrTransient,
			check: func(t *testing.T, err error) {
				if !voice.IsRetryable(err) {
					t.Fatalf("err = %v, want retryable", err)
				}
			},
		},
		{
			name:     "no usable preview",
			previews: []voicegen.Preview{{VoiceRef: "x"}, {VoiceRef: "y", Failure: voice.FailureTransient}},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, voice.ErrNoUsableCandidate) {
					t.Fatalf("err = %v, want ErrNoUsableCandidate", err)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, tc.previews...)
			f.provider.Err = tc.err

			_, err := f.engine.Design(context.Background(), Request{Description: "sarcastic alien overlord"})
			tc.check(t, err)
			if f.cache.Len() != 0 {
				t.Error("failed generation must not be cached")
			}
		})
	}
}

func TestDesign_RetryAfterFailureReissues(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.provider.Errors = []error{voicegen.ErrTransient}
	ctx := context.Background()
	req := Request{Description: "sarcastic alien overlord"}

	if _, err := f.engine.Design(ctx, req); !voice.IsRetryable(err) {
		t.Fatalf("first err = %v, want retryable", err)
	}
	resp, err := f.engine.Design(ctx, req)
	if err != nil {
		t.Fatalf("second Design: %v", err)
	}
	if resp.Source != SourceGenerated {
		t.Errorf("source = %q, want generated", resp.Source)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (voice.CacheEntry, bool, error) {
	return voice.CacheEntry{}, false, errors.New("cache down")
}

func (failingStore) Set(context.Context, string, voice.ScoredCandidate) error {
	return errors.New("cache down")
}

func TestDesign_CacheFailuresAreIgnored(t *testing.T) {
	t.Parallel()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	p := &mock.Provider{Previews: []voicegen.Preview{{VoiceRef: "g", Audio: []byte("mp3")}}}
	repo := catalog.NewRepository(catalog.NewStaticSource("test", testRoster...))
	e, err := New(repo, generation.New(p), failingStore{}, WithMetrics(m))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := e.Design(context.Background(), Request{Description: "sarcastic alien overlord"})
	if err != nil {
		t.Fatalf("Design: %v", err)
	}
	if resp.Source != SourceGenerated || len(resp.Candidates) != 1 {
		t.Errorf("resp = %+v", resp)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	lookups := counterValues(t, rm, "vocalis.cache.lookups", "result")
	if lookups["error"] != 1 || lookups["set_error"] != 1 {
		t.Errorf("cache lookups = %v, want one read error and one set_error", lookups)
	}
}

type failingSource struct{}

func (failingSource) Name() string { return "broken" }

func (failingSource) ListVoices(context.Context) ([]voice.CatalogVoice, error) {
	return nil, errors.New("roster unavailable")
}

func TestDesign_CatalogLoadFailure(t *testing.T) {
	t.Parallel()
	p := &mock.Provider{}
	e, err := New(catalog.NewRepository(failingSource{}), generation.New(p), resultcache.NewMemoryStore())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = e.Design(context.Background(), Request{Description: "sarcastic alien overlord"})
	if err == nil || !strings.Contains(err.Error(), "roster unavailable") {
		t.Fatalf("err = %v, want catalog failure", err)
	}
	if voice.IsRetryable(err) {
		t.Error("catalog failure reported as retryable provider failure")
	}
	if p.CallCount() != 0 {
		t.Error("provider called after catalog failure")
	}
}

func TestDesign_SanitizerNotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp, err := f.engine.Design(context.Background(), Request{Description: "a sexy villain with a deep menacing growl"})
	if err != nil {
		t.Fatalf("Design: %v", err)
	}
	if len(resp.Notes) == 0 {
		t.Fatal("no sanitizer notes")
	}
	if n := f.provider.CallCount(); n == 1 {
		got := f.provider.Calls[0].Req.Description
		if strings.Contains(strings.ToLower(got), "sexy") {
			t.Errorf("provider saw unsanitized text %q", got)
		}
	}
}

func TestDesign_ConcurrentMissesAreAccepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Design(ctx, Request{Description: "sarcastic alien overlord"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Design: %v", err)
		}
	}
	if c := f.provider.CallCount(); c < 1 || c > n {
		t.Errorf("provider called %d times", c)
	}
	if f.cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", f.cache.Len())
	}
}

func TestDesign_RecordsMetrics(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for _, d := range []string{"sarcastic alien overlord", "sarcastic alien overlord", "short"} {
		_, _ = f.engine.Design(ctx, Request{Description: d})
	}

	var rm metricdata.ResourceMetrics
	if err := f.reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	outcomes := counterValues(t, rm, "vocalis.design.outcomes", "outcome")
	want := map[string]int64{"generated": 1, "cache": 1, "validation_error": 1}
	for k, v := range want {
		if outcomes[k] != v {
			t.Errorf("outcome %s = %d, want %d (all: %v)", k, outcomes[k], v, outcomes)
		}
	}

	lookups := counterValues(t, rm, "vocalis.cache.lookups", "result")
	if lookups["miss"] != 1 || lookups["hit"] != 1 {
		t.Errorf("cache lookups = %v, want one hit and one miss", lookups)
	}
}

func counterValues(t *testing.T, rm metricdata.ResourceMetrics, name, key string) map[string]int64 {
	t.Helper()
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value(attribute.Key(key))
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}
