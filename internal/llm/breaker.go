package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Default circuit breaker settings.
const (
	defaultBreakerFailures uint32        = 5
	defaultBreakerTimeout  time.Duration = 30 * time.Second
	defaultBreakerInterval time.Duration = 60 * time.Second
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

// BreakerConfig configures a BreakerProvider. Zero values use the defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a trial request is let through.
	Timeout time.Duration
	// Interval clears the failure counts while closed.
	Interval time.Duration
}

// BreakerProvider fails fast once the wrapped provider keeps failing.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[*CompletionResponse]
}

// NewBreakerProvider wraps inner with a circuit breaker.
func NewBreakerProvider(inner Provider, cfg BreakerConfig, logger *slog.Logger) *BreakerProvider {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultBreakerFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultBreakerTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultBreakerInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[*CompletionResponse](gobreaker.Settings{
		Name:        "llm:" + inner.Name(),
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// A cancelled request says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerProvider{inner: inner, breaker: cb}
}

func (p *BreakerProvider) Name() string { return p.inner.Name() }

func (p *BreakerProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	resp, err := p.breaker.Execute(func() (*CompletionResponse, error) {
		return p.inner.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("provider %q: %w: %w", p.inner.Name(), ErrCircuitOpen, err)
	}
	return resp, err
}

// State returns the current breaker state.
func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}
