package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/ratelimit"
)

// LimitConfig throttles outbound judge calls. Zero values disable a limit.
type LimitConfig struct {
	// MaxConcurrent caps in-flight judge requests
	MaxConcurrent int

	// QueueTimeout bounds how long a call waits for a free slot (default: 5s)
	QueueTimeout time.Duration

	// RatePerSecond caps how many requests start per second
	RatePerSecond int
}

func (c LimitConfig) enabled() bool {
	return c.MaxConcurrent > 0 || c.RatePerSecond > 0
}

// Limiter wraps a Client with a bulkhead and a request rate limit. Calls
// it turns away fail with ErrJudgeUnavailable without reaching the judge.
type Limiter struct {
	client    Client
	bulkhead  bulkhead.Bulkhead[*domain.ExecutionResult]
	rateLimit ratelimit.RateLimiter
}

// NewLimiter wraps client
func NewLimiter(client Client, cfg LimitConfig) *Limiter {
	l := &Limiter{client: client}

	if cfg.MaxConcurrent > 0 {
		if cfg.QueueTimeout <= 0 {
			cfg.QueueTimeout = 5 * time.Second
		}
		l.bulkhead = bulkhead.New[*domain.ExecutionResult](bulkhead.Config{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxQueue:      cfg.MaxConcurrent * 2,
			QueueTimeout:  cfg.QueueTimeout,
		})
	}

	if cfg.RatePerSecond > 0 {
		l.rateLimit = ratelimit.New(&ratelimit.Config{
			Rate:     cfg.RatePerSecond,
			Burst:    cfg.RatePerSecond,
			Interval: time.Second,
		})
	}
	return l
}

func (l *Limiter) Name() string {
	return l.client.Name()
}

// Execute runs the wrapped client once a rate token and a slot are free.
func (l *Limiter) Execute(ctx context.Context, payload *domain.Payload, lang domain.LanguageProfile) (*domain.ExecutionResult, error) {
	if l.rateLimit != nil && !l.rateLimit.Allow(ctx, "judge:"+l.client.Name()) {
		return nil, fmt.Errorf("%w: %s: request rate limit exceeded", domain.ErrJudgeUnavailable, l.client.Name())
	}

	if l.bulkhead == nil {
		return l.client.Execute(ctx, payload, lang)
	}

	res, err := l.bulkhead.Execute(ctx, func(ctx context.Context) (*domain.ExecutionResult, error) {
		return l.client.Execute(ctx, payload, lang)
	})
	if err != nil {
		if errors.Is(err, domain.ErrJudgeUnavailable) || errors.Is(err, domain.ErrJudgeProtocol) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: concurrency limit: %v", domain.ErrJudgeUnavailable, l.client.Name(), err)
	}
	return res, nil
}

// Close releases the rate limiter
func (l *Limiter) Close() error {
	if l.rateLimit != nil {
		return l.rateLimit.Close()
	}
	return nil
}
