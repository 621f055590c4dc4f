// Package resilience provides the circuit breaker guarding provider
// calls and the keyed rate limiter used by the tool layer.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker trips open after a run of consecutive failures and
// probes again once the open timeout elapses.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         circuitState
	failCount     int
	failThreshold int
	openTimeout   time.Duration
	openedAt      time.Time
}

// NewCircuitBreaker creates a breaker that opens after failThreshold
// consecutive failures and stays open for openTimeout.
func NewCircuitBreaker(failThreshold int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failThreshold: failThreshold,
		openTimeout:   openTimeout,
	}
}

// Execute runs fn unless the circuit is open. A success in half-open
// state closes the circuit; a failure reopens it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == stateOpen {
		if time.Since(cb.openedAt) <= cb.openTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = stateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failCount++
		if cb.failCount >= cb.failThreshold || cb.state == stateHalfOpen {
			cb.state = stateOpen
			cb.openedAt = time.Now()
		}
		return err
	}

	cb.failCount = 0
	cb.state = stateClosed
	return nil
}
