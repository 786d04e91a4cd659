package resilience

import (
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen lets requests through to probe recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if s < StateClosed || s > StateHalfOpen {
		return nil, fmt.Errorf("invalid circuit state %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "closed":
		*s = StateClosed
	case "open":
		*s = StateOpen
	case "half_open":
		*s = StateHalfOpen
	default:
		return fmt.Errorf("unknown circuit state %q", text)
	}
	return nil
}

// CircuitBreaker fails fast once failures cross a threshold and lets calls
// through again after a cool-down to test recovery.
//
// States:
//   - Closed: normal operation, each success resets the failure count
//   - Open: requests are rejected until Timeout has passed since the last failure
//   - Half-Open: requests pass; SuccessThreshold successes close the circuit,
//     any failure opens it again
//
// The open to half-open transition is evaluated lazily whenever state is
// read; no timer is involved.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	lastFailureTime time.Time
}

type transition struct {
	from, to State
}

// NewCircuitBreaker creates a closed circuit breaker.
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
		state:  StateClosed,
	}
}

// Name returns the circuit name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Execute runs fn if the circuit allows it and records the outcome.
// Returns a *CircuitBreakerOpenError if the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.AllowRequest() {
		return &CircuitBreakerOpenError{Name: cb.name, RetryAfter: cb.TimeUntilRetry()}
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return err
}

// AllowRequest reports whether a call may proceed. Every caller is let
// through while half-open.
func (cb *CircuitBreaker) AllowRequest() bool {
	if !cb.config.Enabled {
		return true
	}
	return cb.State() != StateOpen
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	if !cb.config.Enabled {
		return
	}

	var changes []transition
	cb.mu.Lock()
	switch cb.currentState(&changes) {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.toState(StateClosed, &changes)
		}
	}
	cb.mu.Unlock()

	cb.notify(changes)
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	if !cb.config.Enabled {
		return
	}

	var changes []transition
	cb.mu.Lock()
	state := cb.currentState(&changes)
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch state {
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.toState(StateOpen, &changes)
		}
	case StateHalfOpen:
		cb.toState(StateOpen, &changes)
	}
	cb.mu.Unlock()

	cb.notify(changes)
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	var changes []transition
	cb.mu.Lock()
	state := cb.currentState(&changes)
	cb.mu.Unlock()

	cb.notify(changes)
	return state
}

// TimeUntilRetry returns how long the circuit stays open, or 0 when it is
// not open.
func (cb *CircuitBreaker) TimeUntilRetry() time.Duration {
	var changes []transition
	cb.mu.Lock()
	var remaining time.Duration
	if cb.currentState(&changes) == StateOpen {
		remaining = max(0, cb.config.Timeout-time.Since(cb.lastFailureTime))
	}
	cb.mu.Unlock()

	cb.notify(changes)
	return remaining
}

// Reset forces the circuit closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	var changes []transition
	cb.mu.Lock()
	cb.toState(StateClosed, &changes)
	cb.failures = 0
	cb.successes = 0
	cb.lastFailureTime = time.Time{}
	cb.mu.Unlock()

	cb.notify(changes)
}

// Failures returns the current failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Successes returns the half-open success count.
func (cb *CircuitBreaker) Successes() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.successes
}

// Enabled reports whether the breaker tracks outcomes.
func (cb *CircuitBreaker) Enabled() bool {
	return cb.config.Enabled
}

// currentState returns the current state, handling the timeout transition.
// Callers hold mu.
func (cb *CircuitBreaker) currentState(changes *[]transition) State {
	if cb.state == StateOpen && time.Since(cb.lastFailureTime) >= cb.config.Timeout {
		cb.toState(StateHalfOpen, changes)
	}
	return cb.state
}

// toState transitions to a new state. Callers hold mu.
func (cb *CircuitBreaker) toState(to State, changes *[]transition) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
	case StateHalfOpen:
		cb.successes = 0
	case StateOpen:
		cb.successes = 0
	}

	*changes = append(*changes, transition{from: from, to: to})
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, c := range changes {
		cb.config.OnStateChange(cb.name, c.from, c.to)
	}
}
