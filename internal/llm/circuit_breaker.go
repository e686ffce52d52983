package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects requests after
// repeated upstream failures.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes the failure threshold and recovery behavior.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that trips the
	// circuit. Default 3.
	MaxFailures uint32

	// Cooldown is how long the circuit stays open before probing the
	// endpoint again. Default 30s.
	Cooldown time.Duration

	// ProbeRequests is how many requests the half-open state admits
	// before deciding to close. Default 2.
	ProbeRequests uint32
}

// Breaker wraps gobreaker for LLM endpoints. Closed passes requests
// through; MaxFailures consecutive errors open it; after Cooldown it
// half-opens and lets ProbeRequests through.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker returns a Breaker with default thresholds.
func NewBreaker(name string) *Breaker {
	return NewBreakerWithConfig(name, BreakerConfig{})
}

// NewBreakerWithConfig returns a Breaker with explicit thresholds.
func NewBreakerWithConfig(name string, cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeRequests == 0 {
		cfg.ProbeRequests = 2
	}
	return &Breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: cfg.ProbeRequests,
			Timeout:     cfg.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
		}),
	}
}

// Execute runs fn through the breaker. A cancelled context counts as
// a failure; an open circuit returns ErrCircuitOpen immediately.
func (b *Breaker) Execute(ctx context.Context, fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

// State reports "closed", "open", or "half-open".
func (b *Breaker) State() string {
	switch b.cb.State() {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}
