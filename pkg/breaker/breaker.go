// Package breaker guards calls to flaky dependencies with named circuit breakers.
//
// Every breaker is obtained from a Registry, which is built once per process
// and handed to the components that need protection. Work runs through Run,
// which routes failures and short-circuits to a caller-supplied fallback.
package breaker

import (
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is passed to fallbacks when the breaker rejected the call
// without running the work.
var ErrCircuitOpen = errors.New("circuit breaker open")

// State is the externally visible breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

func stateOf(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

// Counts mirrors the tallies of the current generation.
type Counts struct {
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
}

// Breaker is a named circuit breaker. Safe for concurrent use.
type Breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// Name returns the registry key of the breaker.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() State {
	return stateOf(b.cb.State())
}

// Counts returns the current tallies.
func (b *Breaker) Counts() Counts {
	c := b.cb.Counts()
	return Counts{
		Requests:             c.Requests,
		TotalSuccesses:       c.TotalSuccesses,
		TotalFailures:        c.TotalFailures,
		ConsecutiveSuccesses: c.ConsecutiveSuccesses,
		ConsecutiveFailures:  c.ConsecutiveFailures,
	}
}

// Execute runs work through the breaker without a fallback. Rejections are
// reported as ErrCircuitOpen.
func (b *Breaker) Execute(work func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(work)
	if err != nil && (errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)) {
		return nil, fmt.Errorf("%w: %s: %w", ErrCircuitOpen, b.name, err)
	}
	return res, err
}

// Run executes work through b. When work fails or the breaker rejects the
// call, fallback receives the error and its result is returned instead.
// A nil fallback returns the error unchanged.
func Run[T any](b *Breaker, work func() (T, error), fallback func(error) (T, error)) (T, error) {
	res, err := b.Execute(func() (interface{}, error) {
		v, err := work()
		return v, err
	})
	if err != nil {
		if fallback == nil {
			var zero T
			return zero, err
		}
		return fallback(err)
	}

	v, _ := res.(T)
	return v, nil
}
