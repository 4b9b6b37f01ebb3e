package voicegen

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimit caps outbound calls to a single provider. A zero PerSecond
// disables limiting.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// RateLimited delays calls so the inner provider never sees more than the
// configured rate.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

var _ Provider = (*RateLimited)(nil)

// NewRateLimited wraps inner with a token bucket. It returns inner unchanged
// when the limit is disabled. Burst defaults to 1.
func NewRateLimited(inner Provider, limit RateLimit) Provider {
	if limit.PerSecond <= 0 {
		return inner
	}
	burst := max(limit.Burst, 1)
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(limit.PerSecond), burst),
	}
}

// GeneratePreviews implements [Provider]. A wait that cannot finish before
// ctx ends is reported as [ErrTransient].
func (r *RateLimited) GeneratePreviews(ctx context.Context, req Request) ([]Preview, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("voicegen: rate limit: %w: %w", ErrTransient, err)
	}
	return r.inner.GeneratePreviews(ctx, req)
}
