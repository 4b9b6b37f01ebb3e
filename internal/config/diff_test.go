package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/vocalis/internal/config"
	"github.com/MrWong99/vocalis/internal/sanitize"
)

func TestDiff_NoChanges(t *testing.T) {
	old := config.Default()
	new := config.Default()

	d := config.Diff(old, new)
	if d.Changed() {
		t.Errorf("expected no changes, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	old := config.Default()
	new := config.Default()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged to be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel: got %q, want %q", d.NewLogLevel, config.LogDebug)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level needs no restart, got %v", d.RestartRequired)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{
			name:   "listen address",
			mutate: func(c *config.Config) { c.Server.ListenAddr = ":9999" },
			want:   []string{"server"},
		},
		{
			name:   "tls",
			mutate: func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "c", KeyFile: "k"} },
			want:   []string{"server"},
		},
		{
			name: "provider option",
			mutate: func(c *config.Config) {
				c.Providers.VoiceGen = config.ProviderEntry{Name: "elevenlabs", Options: map[string]any{"output_format": "pcm_16000"}}
			},
			want: []string{"providers"},
		},
		{
			name:   "catalog source",
			mutate: func(c *config.Config) { c.Catalog.Sources = append(c.Catalog.Sources, config.CatalogSource{Type: config.SourceYAML, Path: "x"}) },
			want:   []string{"catalog"},
		},
		{
			name:   "matcher gate",
			mutate: func(c *config.Config) { c.Matcher.MinConfidence = 6 },
			want:   []string{"matcher"},
		},
		{
			name:   "quality band",
			mutate: func(c *config.Config) { c.Quality.SizeBands[0].Clarity = 10 },
			want:   []string{"quality"},
		},
		{
			name:   "sanitizer rule",
			mutate: func(c *config.Config) { c.Sanitizer.Rules = []sanitize.Rule{{Trigger: "a", Replacement: "b"}} },
			want:   []string{"sanitizer"},
		},
		{
			name: "several sections",
			mutate: func(c *config.Config) {
				c.Cache.Capacity = 1
				c.Database.PostgresDSN = "postgres://db"
				c.Generation.Previews = 1
			},
			want: []string{"cache", "database", "generation"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			old := config.Default()
			new := config.Default()
			tc.mutate(new)

			d := config.Diff(old, new)
			if !slices.Equal(d.RestartRequired, tc.want) {
				t.Errorf("RestartRequired: got %v, want %v", d.RestartRequired, tc.want)
			}
			if d.LogLevelChanged {
				t.Error("unexpected log level change")
			}
		})
	}
}
