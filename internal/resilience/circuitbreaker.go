// Package resilience guards outbound venue calls. Every Polymarket API
// client routes its requests through a circuit breaker so a failing
// endpoint is backed off instead of hammered.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitState is the breaker's admission mode.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // Normal operation
	CircuitOpen     CircuitState = "OPEN"      // Failing, rejecting requests
	CircuitHalfOpen CircuitState = "HALF_OPEN" // Probing whether the endpoint recovered
)

// CircuitBreakerConfig tunes when a breaker trips and how it recovers.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	FailureThreshold int
	// SuccessThreshold is the number of successful probes in half-open
	// state before the circuit closes again.
	SuccessThreshold int
	// Timeout is how long an open circuit rejects requests before
	// allowing a probe.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns the defaults used for the venue
// REST clients.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// ErrCircuitOpen is returned when the circuit is rejecting requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker implements the circuit breaker pattern around a single
// upstream endpoint.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig

	mu              sync.RWMutex
	state           CircuitState
	failures        int
	successes       int
	probing         bool
	lastFailureTime time.Time

	totalRequests  int64
	totalFailures  int64
	totalSuccesses int64
	totalRejected  int64
}

// NewCircuitBreaker creates a circuit breaker named after the endpoint
// it protects.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  CircuitClosed,
	}
}

// Execute runs fn under the breaker. The request context is checked
// before the breaker admits the call so an already-expired context
// never consumes a half-open probe. A context cancellation reported by
// fn is the caller's doing, not the endpoint's, and does not count as
// a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	probe, err := cb.allowRequest()
	if err != nil {
		return err
	}

	err = fn()
	cb.record(err, probe)
	return err
}

// allowRequest reports whether the call may proceed and whether it is
// the half-open probe. In half-open state only one request is in
// flight at a time; the rest are rejected until the probe settles.
func (cb *CircuitBreaker) allowRequest() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	switch cb.state {
	case CircuitClosed:
		return false, nil
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.config.Timeout {
			cb.transitionTo(CircuitHalfOpen)
			cb.probing = true
			return true, nil
		}
		cb.totalRejected++
		return false, cb.reject()
	case CircuitHalfOpen:
		if cb.probing {
			cb.totalRejected++
			return false, cb.reject()
		}
		cb.probing = true
		return true, nil
	}

	return false, nil
}

// reject names the endpoint in the error so log lines from layered
// clients stay attributable.
func (cb *CircuitBreaker) reject() error {
	return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
}

func (cb *CircuitBreaker) record(err error, probe bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if probe {
		cb.probing = false
	}

	if err != nil && errors.Is(err, context.Canceled) {
		// Neither a success nor an endpoint failure.
		return
	}

	if err != nil {
		cb.totalFailures++
		cb.lastFailureTime = time.Now()
		switch cb.state {
		case CircuitClosed:
			cb.failures++
			if cb.failures >= cb.config.FailureThreshold {
				cb.transitionTo(CircuitOpen)
			}
		case CircuitHalfOpen:
			// A failed probe reopens the circuit.
			cb.transitionTo(CircuitOpen)
		}
		return
	}

	cb.totalSuccesses++
	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) transitionTo(state CircuitState) {
	cb.state = state
	cb.failures = 0
	cb.successes = 0
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// CircuitBreakerStats is a point-in-time counter snapshot.
type CircuitBreakerStats struct {
	State           CircuitState
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRejected   int64
	CurrentFailures int
}

// Stats snapshots the breaker's counters.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return CircuitBreakerStats{
		State:           cb.state,
		TotalRequests:   cb.totalRequests,
		TotalSuccesses:  cb.totalSuccesses,
		TotalFailures:   cb.totalFailures,
		TotalRejected:   cb.totalRejected,
		CurrentFailures: cb.failures,
	}
}
