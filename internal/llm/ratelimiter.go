package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedProvider spaces out calls to a provider that enforces a
// requests-per-minute quota, so the quota is queued against locally
// instead of surfacing as 429 errors from the API.
type RateLimitedProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows rpm calls per minute, all of which may be
// spent at once. A non-positive rpm returns inner unchanged.
func NewRateLimitedProvider(inner Provider, rpm int) Provider {
	if rpm <= 0 {
		return inner
	}
	return &RateLimitedProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
	}
}

func (p *RateLimitedProvider) Name() string { return p.inner.Name() }

// Complete waits for a token, giving up when ctx ends first.
func (p *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s quota wait: %w", p.inner.Name(), err)
	}
	return p.inner.Complete(ctx, req)
}
