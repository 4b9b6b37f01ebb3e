// Package app wires all Vocalis subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context ends, and Shutdown tears
// everything down in order.
//
// For testing, inject implementations via functional options
// (WithCatalogSources, WithCache, WithMetrics). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/vocalis/internal/api"
	"github.com/MrWong99/vocalis/internal/catalog"
	"github.com/MrWong99/vocalis/internal/config"
	"github.com/MrWong99/vocalis/internal/designer"
	"github.com/MrWong99/vocalis/internal/generation"
	"github.com/MrWong99/vocalis/internal/health"
	"github.com/MrWong99/vocalis/internal/observe"
	"github.com/MrWong99/vocalis/internal/quality"
	"github.com/MrWong99/vocalis/internal/resilience"
	"github.com/MrWong99/vocalis/internal/resultcache"
	"github.com/MrWong99/vocalis/internal/sanitize"
	"github.com/MrWong99/vocalis/pkg/provider/tts"
	"github.com/MrWong99/vocalis/pkg/provider/voicegen"
)

// pruneInterval is how often expired rows are deleted from a Postgres cache.
const pruneInterval = time.Hour

// NamedVoiceGen pairs a voice generation provider with its config name.
type NamedVoiceGen struct {
	Name     string
	Provider voicegen.Provider
}

// Providers holds the external providers. Populated by main.go via the
// config registry. VoiceGen lists the primary first, then fallbacks. An
// empty VoiceGen runs the server in catalog-only mode.
type Providers struct {
	VoiceGen []NamedVoiceGen

	// TTS is optional; without it rendering is disabled.
	TTS     tts.Provider
	TTSName string
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems, initialised in New and torn down in Shutdown.
	pool     *pgxpool.Pool
	sources  []catalog.Source
	catalog  *catalog.Repository
	cache    resultcache.Store
	fallback *resilience.VoiceGenFallback
	renderer *resilience.TTSFallback
	engine   *designer.Engine
	metrics  *observe.Metrics
	scrape   http.Handler
	handler  http.Handler
	server   *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithCatalogSources replaces the sources listed in the config.
func WithCatalogSources(sources ...catalog.Source) Option {
	return func(a *App) { a.sources = sources }
}

// WithCache injects a result cache instead of creating one from config.
func WithCache(s resultcache.Store) Option {
	return func(a *App) { a.cache = s }
}

// WithMetrics sets the metrics sink. Default is [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler sets the handler served at GET /metrics. Default is
// [promhttp.Handler] on the global Prometheus registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.scrape = h }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
//
// New connects to Postgres when a DSN is configured and migrates the tables
// it needs. The catalog itself is loaded lazily on first use.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.scrape == nil {
		a.scrape = promhttp.Handler()
	}

	// ── 1. Database ──────────────────────────────────────────────────────
	if err := a.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("app: init database: %w", err)
	}

	// ── 2. Catalog ───────────────────────────────────────────────────────
	if err := a.initCatalog(ctx); err != nil {
		return nil, fmt.Errorf("app: init catalog: %w", err)
	}

	// ── 3. Result cache ──────────────────────────────────────────────────
	if err := a.initCache(ctx); err != nil {
		return nil, fmt.Errorf("app: init cache: %w", err)
	}

	// ── 4. Design engine ─────────────────────────────────────────────────
	if err := a.initEngine(); err != nil {
		return nil, fmt.Errorf("app: init engine: %w", err)
	}

	// ── 5. HTTP surface ──────────────────────────────────────────────────
	a.initHTTP()

	return a, nil
}

// needsDatabase reports whether any configured component uses Postgres.
func (a *App) needsDatabase() bool {
	if a.cache == nil && a.cfg.Cache.Backend == config.CachePostgres {
		return true
	}
	if a.sources != nil {
		return false
	}
	for _, src := range a.cfg.Catalog.Sources {
		if src.Type == config.SourcePostgres {
			return true
		}
	}
	return false
}

func (a *App) initDatabase(ctx context.Context) error {
	if !a.needsDatabase() {
		return nil
	}
	pool, err := pgxpool.New(ctx, a.cfg.Database.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	return nil
}

func (a *App) initCatalog(ctx context.Context) error {
	if a.sources == nil {
		for i, src := range a.cfg.Catalog.Sources {
			s, err := a.buildSource(ctx, src)
			if err != nil {
				return fmt.Errorf("sources[%d]: %w", i, err)
			}
			a.sources = append(a.sources, s)
		}
	}
	a.catalog = catalog.NewRepository(a.sources...)
	return nil
}

func (a *App) buildSource(ctx context.Context, src config.CatalogSource) (catalog.Source, error) {
	switch src.Type {
	case config.SourceBuiltin:
		return catalog.BuiltinSource(), nil
	case config.SourceYAML:
		return catalog.NewYAMLSource(src.Path), nil
	case config.SourcePostgres:
		ps := catalog.NewPostgresSource(a.pool)
		if err := ps.Migrate(ctx); err != nil {
			return nil, err
		}
		return ps, nil
	case config.SourceElevenLabs:
		var opts []catalog.ElevenLabsOption
		if src.BaseURL != "" {
			opts = append(opts, catalog.WithElevenLabsBaseURL(src.BaseURL))
		}
		return catalog.NewElevenLabsSource(src.APIKey, opts...)
	}
	return nil, fmt.Errorf("unknown source type %q", src.Type)
}

func (a *App) initCache(ctx context.Context) error {
	if a.cache != nil {
		return nil
	}
	switch a.cfg.Cache.Backend {
	case config.CachePostgres:
		store := resultcache.NewPostgresStore(a.pool, a.cfg.Cache.TTL)
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		a.cache = store
	default:
		a.cache = resultcache.NewMemoryStore(
			resultcache.WithCapacity(a.cfg.Cache.Capacity),
			resultcache.WithTTL(a.cfg.Cache.TTL),
		)
	}
	return nil
}

func (a *App) initEngine() error {
	gc := a.cfg.Generation
	fbCfg := a.fallbackConfig()
	var gen voicegen.Provider = noVoiceGen{}
	for i, p := range a.providers.VoiceGen {
		limited := voicegen.NewRateLimited(instrument(p.Provider, p.Name, a.metrics), gc.RateLimit)
		wrapped := voicegen.NewRetrying(limited, p.Name, gc.Retry)
		if i == 0 {
			a.fallback = resilience.NewVoiceGenFallback(wrapped, p.Name, fbCfg)
			continue
		}
		// Names must be unique per breaker.
		a.fallback.AddFallback(fmt.Sprintf("%s#%d", p.Name, i), wrapped)
	}
	if a.fallback != nil {
		gen = a.fallback
	}

	san, err := sanitize.New(a.cfg.Sanitizer.Rules)
	if err != nil {
		return err
	}
	matcher, err := catalog.NewMatcher(a.cfg.Matcher)
	if err != nil {
		return err
	}
	scorer, err := quality.NewScorer(a.cfg.Quality)
	if err != nil {
		return err
	}

	a.engine, err = designer.New(a.catalog,
		generation.New(gen, generation.WithPreviews(gc.Previews)),
		a.cache,
		designer.WithSanitizer(san),
		designer.WithMatcher(matcher),
		designer.WithScorer(scorer),
		designer.WithMetrics(a.metrics),
	)
	return err
}

// fallbackConfig builds the per-backend circuit breaker settings.
func (a *App) fallbackConfig() resilience.FallbackConfig {
	cb := a.cfg.Generation.CircuitBreaker
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cb.MaxFailures,
			ResetTimeout: cb.ResetTimeout,
			HalfOpenMax:  cb.HalfOpenMax,
			OnStateChange: func(name string, _, to resilience.State) {
				a.metrics.RecordCircuitTransition(context.Background(), name, to.String())
			},
		},
	}
}

func (a *App) initHTTP() {
	mux := http.NewServeMux()

	apiOpts := []api.Option{api.WithMetrics(a.metrics)}
	if a.providers.TTS != nil {
		a.renderer = resilience.NewTTSFallback(a.providers.TTS, a.providers.TTSName, a.fallbackConfig())
		apiOpts = append(apiOpts, api.WithRenderer(a.renderer, a.providers.TTSName))
	}
	api.New(a.engine, a.catalog, apiOpts...).Register(mux)

	checkers := []health.Checker{health.Catalog(a.catalog)}
	if a.fallback != nil {
		checkers = append(checkers, health.Providers("voicegen", a.fallback))
	}
	if a.renderer != nil {
		checkers = append(checkers, health.Providers("tts", a.renderer))
	}
	if a.pool != nil {
		checkers = append(checkers, health.Database(a.pool))
	}
	health.New(checkers...).Register(mux)

	mux.Handle("GET /metrics", a.scrape)

	a.handler = observe.Middleware(a.metrics)(mux)
}

// Handler returns the fully wired HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Engine returns the design engine.
func (a *App) Engine() *designer.Engine { return a.engine }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run warms the catalog, serves HTTP on cfg.Server.ListenAddr and blocks
// until ctx is cancelled. It returns ctx.Err() on a clean stop and the
// listener error otherwise.
func (a *App) Run(ctx context.Context) error {
	go func() {
		if err := a.catalog.EnsureLoaded(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("catalog warm-up failed, retrying on first request", "err", err)
			return
		}
		slog.Info("catalog loaded", "voices", a.catalog.Len())
	}()

	if ps, ok := a.cache.(*resultcache.PostgresStore); ok {
		go a.pruneLoop(ctx, ps)
	}

	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		errCh <- err
	}()

	slog.Info("app running", "listen_addr", a.cfg.Server.ListenAddr)
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return ctx.Err()
		}
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) pruneLoop(ctx context.Context, ps *resultcache.PostgresStore) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ps.Prune(ctx)
			if err != nil {
				slog.Warn("cache prune failed", "err", err)
				continue
			}
			slog.Debug("cache pruned", "rows", n)
		}
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops the HTTP server and tears down all subsystems in order. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		// Drain in-flight requests first.
		if a.server != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
				shutdownErr = err
			}
		}

		// Run closers in order.
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
