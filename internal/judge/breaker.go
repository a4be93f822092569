package judge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
)

// BreakerConfig configures the judge circuit breaker
type BreakerConfig struct {
	Disabled bool

	// Failures is the number of consecutive unavailable errors that opens
	// the breaker (default: 5)
	Failures int

	// OpenTimeout is how long calls fail fast before a probe (default: 30s)
	OpenTimeout time.Duration
}

// Breaker wraps a Client with a circuit breaker. Only ErrJudgeUnavailable
// counts as a failure; protocol errors are passed through untouched.
type Breaker struct {
	client Client
	cb     circuitbreaker.CircuitBreaker[*domain.ExecutionResult]
	logger *slog.Logger
}

// NewBreaker wraps client
func NewBreaker(client Client, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &Breaker{client: client, logger: logger}
	b.cb = circuitbreaker.New[*domain.ExecutionResult](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.Failures
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			b.logger.Warn("judge circuit breaker state change",
				"backend", client.Name(),
				"from", from.String(),
				"to", to.String())
		},
	})
	return b
}

func (b *Breaker) Name() string {
	return b.client.Name()
}

// Execute runs the wrapped client through the breaker.
func (b *Breaker) Execute(ctx context.Context, payload *domain.Payload, lang domain.LanguageProfile) (*domain.ExecutionResult, error) {
	var passthrough error
	res, err := b.cb.Execute(ctx, func(ctx context.Context) (*domain.ExecutionResult, error) {
		res, err := b.client.Execute(ctx, payload, lang)
		if err != nil && !IsUnavailable(err) {
			passthrough = err
			return nil, nil
		}
		return res, err
	})
	if passthrough != nil {
		return nil, passthrough
	}
	if err != nil {
		if IsUnavailable(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrJudgeUnavailable, b.client.Name(), err)
	}
	return res, nil
}
