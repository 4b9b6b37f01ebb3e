package voicegen

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default retry parameters.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 5 * time.Second
	DefaultMultiplier   = 2.0
)

// RetryPolicy is the single retry/backoff policy for outbound voice-generation
// calls: up to MaxAttempts calls in total, waiting InitialDelay before the
// second, multiplied by Multiplier for each further attempt and capped at
// MaxDelay. Only [ErrTransient] failures are retried.
type RetryPolicy struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
}

// DefaultRetryPolicy returns the shipped policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   DefaultMultiplier,
	}
}

// withDefaults fills zero fields from [DefaultRetryPolicy].
func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = d.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = d.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	return p
}

// Delay returns the wait before attempt n (1-based; attempt 1 has no wait).
func (p RetryPolicy) Delay(n int) time.Duration {
	if n <= 1 {
		return 0
	}
	d := float64(p.InitialDelay)
	for i := 2; i < n; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return min(time.Duration(d), p.MaxDelay)
}

// Retrying wraps a [Provider] with a [RetryPolicy].
type Retrying struct {
	inner  Provider
	name   string
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

var _ Provider = (*Retrying)(nil)

// NewRetrying wraps inner. name labels log lines. Zero policy fields take the
// defaults.
func NewRetrying(inner Provider, name string, policy RetryPolicy) *Retrying {
	return &Retrying{
		inner:  inner,
		name:   name,
		policy: policy.withDefaults(),
		sleep:  sleepCtx,
	}
}

// Policy returns the effective retry policy.
func (r *Retrying) Policy() RetryPolicy { return r.policy }

// GeneratePreviews implements [Provider].
func (r *Retrying) GeneratePreviews(ctx context.Context, req Request) ([]Preview, error) {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if d := r.policy.Delay(attempt); d > 0 {
			slog.Debug("voicegen: retrying",
				"provider", r.name,
				"attempt", attempt,
				"max_attempts", r.policy.MaxAttempts,
				"backoff", d,
				"err", lastErr,
			)
			if err := r.sleep(ctx, d); err != nil {
				return nil, fmt.Errorf("voicegen: %s: %w (last error: %w)", r.name, err, lastErr)
			}
		}
		previews, err := r.inner.GeneratePreviews(ctx, req)
		if err == nil {
			return previews, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("voicegen: %s: gave up after %d attempts: %w", r.name, r.policy.MaxAttempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
