package llm

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState is the current state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed means requests flow through normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the breaker has tripped and requests are blocked.
	CircuitOpen
	// CircuitHalfOpen means one probe request is testing recovery.
	CircuitHalfOpen
)

// String returns a human-readable state name.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	defaultBreakerThreshold  = 5
	defaultBreakerResetAfter = 30 * time.Second
)

// CircuitBreaker trips open after a run of consecutive provider failures and
// lets a single probe through once the reset window has passed. It keeps a
// flapping provider from absorbing every request's full retry budget.
type CircuitBreaker struct {
	mu               sync.RWMutex
	threshold        int
	resetAfter       time.Duration
	consecutiveFails int
	lastFailure      time.Time
	state            CircuitState
}

// NewCircuitBreaker creates a breaker that trips after threshold consecutive
// failures and probes again after resetAfter. Non-positive arguments fall
// back to defaults (5 failures, 30s).
func NewCircuitBreaker(threshold int, resetAfter time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	if resetAfter <= 0 {
		resetAfter = defaultBreakerResetAfter
	}
	return &CircuitBreaker{
		threshold:  threshold,
		resetAfter: resetAfter,
		state:      CircuitClosed,
	}
}

// Allow reports whether a request may proceed. A nil return means go ahead;
// otherwise the error explains why the breaker refused. An open breaker
// transitions to half-open once the reset window has passed, admitting one
// probe request.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return nil
		}
		return fmt.Errorf("circuit breaker open: provider failed %d times, last failure %v ago",
			cb.consecutiveFails, time.Since(cb.lastFailure).Round(time.Second))
	case CircuitHalfOpen:
		// One probe is already in flight.
		return fmt.Errorf("circuit breaker half-open: probing provider recovery")
	default:
		return fmt.Errorf("circuit breaker in unknown state %v", cb.state)
	}
}

// RecordSuccess clears the failure run and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure counts a failure, tripping the circuit at the threshold.
// A failed half-open probe reopens the circuit immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		return
	}
	if cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// ConsecutiveFailures returns the current failure run length.
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.consecutiveFails
}

// Reset forces the breaker back to closed. Intended for tests and manual
// intervention.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}
