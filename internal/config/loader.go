package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"voicegen": {"elevenlabs"},
	"tts":      {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadBytes is [LoadFromReader] over an in-memory file.
func loadBytes(data []byte) (*Config, error) {
	return LoadFromReader(bytes.NewReader(data))
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers: unknown names are only a warning, they may be registered
	// by a custom build.
	validateProviderName("voicegen", cfg.Providers.VoiceGen.Name)
	for _, fb := range cfg.Providers.VoiceGenFallbacks {
		validateProviderName("voicegen", fb.Name)
	}
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.VoiceGen.Name == "" {
		if len(cfg.Providers.VoiceGenFallbacks) > 0 {
			errs = append(errs, errors.New("providers.voicegen_fallbacks requires providers.voicegen"))
		}
		slog.Warn("no voicegen provider configured; descriptions without a confident catalog match will fail")
	}
	for i, fb := range cfg.Providers.VoiceGenFallbacks {
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("providers.voicegen_fallbacks[%d].name is required", i))
		}
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no tts provider configured; POST /v1/voices/render will be unavailable")
	}

	// Catalog sources
	if len(cfg.Catalog.Sources) == 0 {
		errs = append(errs, errors.New("catalog.sources must list at least one source"))
	}
	for i, src := range cfg.Catalog.Sources {
		prefix := fmt.Sprintf("catalog.sources[%d]", i)
		switch {
		case !src.Type.IsValid():
			errs = append(errs, fmt.Errorf("%s.type %q is invalid; valid values: builtin, yaml, postgres, elevenlabs", prefix, src.Type))
		case src.Type == SourceYAML && src.Path == "":
			errs = append(errs, fmt.Errorf("%s.path is required when type is yaml", prefix))
		case src.Type == SourcePostgres && cfg.Database.PostgresDSN == "":
			errs = append(errs, fmt.Errorf("%s: type postgres requires database.postgres_dsn", prefix))
		case src.Type == SourceElevenLabs && src.APIKey == "":
			errs = append(errs, fmt.Errorf("%s.api_key is required when type is elevenlabs", prefix))
		}
	}

	// Cache
	if !cfg.Cache.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("cache.backend %q is invalid; valid values: memory, postgres", cfg.Cache.Backend))
	}
	if cfg.Cache.Backend == CachePostgres && cfg.Database.PostgresDSN == "" {
		errs = append(errs, errors.New("cache.backend postgres requires database.postgres_dsn"))
	}
	if cfg.Cache.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("cache.capacity %d must be positive", cfg.Cache.Capacity))
	}
	if cfg.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl %s must be positive", cfg.Cache.TTL))
	}

	// Scoring weights
	if err := cfg.Matcher.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("matcher: %w", err))
	}
	if err := cfg.Quality.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("quality: %w", err))
	}

	// Sanitizer
	for i, r := range cfg.Sanitizer.Rules {
		if r.Trigger == "" {
			errs = append(errs, fmt.Errorf("sanitizer.rules[%d].trigger is required", i))
		}
	}

	// Generation
	g := cfg.Generation
	if g.Previews < 1 {
		errs = append(errs, fmt.Errorf("generation.previews %d must be at least 1", g.Previews))
	}
	if g.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("generation.retry.max_attempts %d must be at least 1", g.Retry.MaxAttempts))
	}
	if g.Retry.Multiplier != 0 && g.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("generation.retry.multiplier %.2f must be at least 1", g.Retry.Multiplier))
	}
	if g.Retry.MaxDelay != 0 && g.Retry.MaxDelay < g.Retry.InitialDelay {
		errs = append(errs, errors.New("generation.retry.max_delay must not be below initial_delay"))
	}
	if g.CircuitBreaker.MaxFailures < 0 || g.CircuitBreaker.HalfOpenMax < 0 || g.CircuitBreaker.ResetTimeout < 0 {
		errs = append(errs, errors.New("generation.circuit_breaker values must not be negative"))
	}
	if g.RateLimit.PerSecond < 0 || g.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("generation.rate_limit values must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
