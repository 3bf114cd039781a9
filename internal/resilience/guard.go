// Package resilience bounds calls to external dependencies with a timeout,
// a rate limit and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ppiankov/claimguard/internal/model"
)

// Settings configure one Guard
type Settings struct {
	Name    string
	Timeout time.Duration
	Breaker model.BreakerConfig
}

// Guard wraps calls to a single external dependency. Every failure it
// returns is a *model.DependencyError naming that dependency.
type Guard struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	limiter *Limiter
}

// NewGuard builds a guard. limiter may be nil to disable rate limiting.
func NewGuard(settings Settings, limiter *Limiter) *Guard {
	cfg := settings.Breaker
	if cfg.FailureThreshold == 0 {
		cfg = model.DefaultBreaker()
	}
	threshold := cfg.FailureThreshold
	name := settings.Name

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			recordBreakerStateChange(name, from, to)
		},
	})
	recordBreakerState(name, breaker.State())

	return &Guard{
		name:    name,
		timeout: settings.Timeout,
		breaker: breaker,
		limiter: limiter,
	}
}

// Name returns the guarded dependency name
func (g *Guard) Name() string {
	return g.name
}

// State returns the current breaker state
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

// Call runs fn under the guard's timeout, rate limit and breaker
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if g == nil {
		return fn(ctx)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	recordBreakerRequest(g.name)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, g.name); err != nil {
			recordBreakerFailure(g.name)
			return zero, model.NewDependencyError(g.name, err)
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		recordBreakerFailure(g.name)
		return zero, model.NewDependencyError(g.name, err)
	}

	result, ok := out.(T)
	if !ok && out != nil {
		return zero, model.NewDependencyError(g.name, errors.New("unexpected result type"))
	}
	return result, nil
}

// Do runs fn for its error only
func Do(ctx context.Context, g *Guard, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// IsOpen reports whether err came from a rejected call on an open breaker
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
