package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrAllFailed means no entry of a [FallbackGroup] produced a result. The last
// entry's error stays in the chain.
var ErrAllFailed = errors.New("resilience: all providers failed")

// FallbackConfig configures a [FallbackGroup] and the breaker of each entry.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig

	// IsPermanent marks errors that end the attempt at once instead of
	// moving on. Entries inherit it when CircuitBreaker.IsPermanent is nil.
	IsPermanent func(error) bool
}

type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup is an ordered list of interchangeable backends, each behind
// its own [CircuitBreaker]. Calls go to the first entry whose breaker admits
// them and move down the list on failure.
//
// Register every entry before sharing the group between goroutines.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup returns a group whose first entry is primary.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends an entry after those already registered.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	if cbCfg.IsPermanent == nil {
		cbCfg.IsPermanent = fg.cfg.IsPermanent
	}
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// States maps each entry name to its breaker state.
func (fg *FallbackGroup[T]) States() map[string]State {
	out := make(map[string]State, len(fg.entries))
	for _, e := range fg.entries {
		out[e.name] = e.breaker.State()
	}
	return out
}

// Available reports whether some entry's breaker is not open.
func (fg *FallbackGroup[T]) Available() bool {
	for _, e := range fg.entries {
		if e.breaker.State() != StateOpen {
			return true
		}
	}
	return false
}

// Execute is [ExecuteWithResult] for calls without a result.
func (fg *FallbackGroup[T]) Execute(fn func(T) error) error {
	_, err := ExecuteWithResult(fg, func(v T) (struct{}, error) {
		return struct{}{}, fn(v)
	})
	return err
}

// ExecuteWithResult calls fn on each entry in order and returns the first
// success. Entries with an open breaker are skipped. A permanent error is
// returned as-is. When nothing succeeds the error wraps [ErrAllFailed] and
// the last entry's error, and names every entry that was tried.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
		tried   []string
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(entry.value)
			return callErr
		})
		switch {
		case err == nil:
			if i > 0 {
				slog.Info("request served by fallback provider", "provider", entry.name, "skipped", tried)
			}
			return result, nil
		case fg.cfg.IsPermanent != nil && fg.cfg.IsPermanent(err):
			return zero, err
		case errors.Is(err, ErrCircuitOpen):
			slog.Debug("provider circuit open, skipping", "provider", entry.name)
			tried = append(tried, entry.name+" (open)")
		default:
			slog.Warn("provider failed, trying next", "provider", entry.name, "err", err)
			tried = append(tried, entry.name)
		}
		lastErr = err
	}
	return zero, fmt.Errorf("%w [%s]: %w", ErrAllFailed, strings.Join(tried, ", "), lastErr)
}
