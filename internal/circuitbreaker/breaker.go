// Package circuitbreaker short-circuits reads against a chain whose RPC keeps
// failing, so aggregation degrades that chain immediately instead of waiting
// for a timeout on every request.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrOpen is returned by Allow while the circuit is open
var ErrOpen = errors.New("circuit breaker open")

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, calls are rejected
	StateHalfOpen              // Probing whether the chain has recovered
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON responses
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreaker counts consecutive failures of one chain
type CircuitBreaker struct {
	name string

	// Consecutive failures that trip the circuit
	failureThreshold int

	// Successful probes needed in half-open to close again
	successThreshold int

	// Time the circuit stays open before probing
	resetDelay time.Duration

	mu           sync.RWMutex
	state        State
	failures     int
	successCount int
	lastTrip     time.Time
	lastErr      error
	probing      bool
	probeStart   time.Time
	seq          uint64

	// notifyMu serializes callbacks; notified is the last delivered seq
	notifyMu      sync.Mutex
	notified      uint64
	onStateChange func(name string, from, to State)

	now func() time.Time
}

// New creates a closed CircuitBreaker that trips after failureThreshold consecutive failures
func New(name string, failureThreshold int) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		successThreshold: 1,
		resetDelay:       30 * time.Second,
		state:            StateClosed,
		now:              time.Now,
	}
}

// WithResetDelay sets a custom reset delay and returns the circuit breaker
func (cb *CircuitBreaker) WithResetDelay(delay time.Duration) *CircuitBreaker {
	cb.resetDelay = delay
	return cb
}

// WithSuccessThreshold sets the number of successful probes needed to close the circuit
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	if threshold > 0 {
		cb.successThreshold = threshold
	}
	return cb
}

// WithStateCallback sets a function called on every state transition. It runs
// synchronously after the breaker's lock is released and must not change the
// breaker's state itself. A transition superseded by a later one before its
// callback ran is not delivered.
func (cb *CircuitBreaker) WithStateCallback(callback func(name string, from, to State)) *CircuitBreaker {
	cb.onStateChange = callback
	return cb
}

// Name returns the chain the breaker guards
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a call may proceed. An open circuit whose reset delay
// has elapsed moves to half-open and lets one call through as a probe; other
// calls are rejected until the probe's outcome is recorded. A probe whose
// outcome never arrives is abandoned after the reset delay.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	now := cb.now()

	switch cb.state {
	case StateClosed:
		cb.mu.Unlock()
		return nil
	case StateHalfOpen:
		if cb.probing && now.Sub(cb.probeStart) < cb.resetDelay {
			err := fmt.Errorf("%w for %s: probe in flight", ErrOpen, cb.name)
			cb.mu.Unlock()
			return err
		}
		cb.probing = true
		cb.probeStart = now
		cb.mu.Unlock()
		return nil
	}

	if now.Sub(cb.lastTrip) < cb.resetDelay {
		err := fmt.Errorf("%w for %s: %v", ErrOpen, cb.name, cb.lastErr)
		cb.mu.Unlock()
		return err
	}

	tr := cb.setState(StateHalfOpen)
	cb.successCount = 0
	cb.probing = true
	cb.probeStart = now
	cb.mu.Unlock()

	logrus.WithField("chain", cb.name).Info("Circuit breaker half-open: probing chain")
	cb.notify(tr)
	return nil
}

// RecordSuccess notes a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var tr transition
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.probing = false
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			tr = cb.setState(StateClosed)
			cb.successCount = 0
			cb.lastErr = nil
		}
	}
	cb.mu.Unlock()

	if tr.changed {
		logrus.WithField("chain", cb.name).Info("Circuit breaker closed: chain has recovered")
	}
	cb.notify(tr)
}

// RecordFailure notes a failed call and trips the circuit when the threshold is reached.
// Any failure while half-open trips it again.
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	var tr transition
	cb.lastErr = err
	cb.failures++
	if cb.state == StateHalfOpen || (cb.state == StateClosed && cb.failures >= cb.failureThreshold) {
		tr = cb.trip()
	}
	cb.mu.Unlock()

	if tr.changed {
		logrus.WithFields(logrus.Fields{
			"chain":  cb.name,
			"reason": err,
		}).Warn("Circuit breaker tripped")
	}
	cb.notify(tr)
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// LastError returns the error that last counted as a failure
func (cb *CircuitBreaker) LastError() error {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.lastErr
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	tr := cb.setState(StateClosed)
	cb.failures = 0
	cb.successCount = 0
	cb.lastErr = nil
	cb.probing = false
	cb.mu.Unlock()

	logrus.WithField("chain", cb.name).Info("Circuit breaker manually reset to closed state")
	cb.notify(tr)
}

type transition struct {
	from, to State
	seq      uint64
	changed  bool
}

// trip must be called with mu held
func (cb *CircuitBreaker) trip() transition {
	tr := cb.setState(StateOpen)
	cb.lastTrip = cb.now()
	cb.failures = 0
	cb.probing = false
	return tr
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(to State) transition {
	from := cb.state
	if from == to {
		return transition{}
	}
	cb.state = to
	cb.seq++
	return transition{from: from, to: to, seq: cb.seq, changed: true}
}

// notify must be called without mu held
func (cb *CircuitBreaker) notify(tr transition) {
	if !tr.changed || cb.onStateChange == nil {
		return
	}
	cb.notifyMu.Lock()
	defer cb.notifyMu.Unlock()
	if tr.seq <= cb.notified {
		return
	}
	cb.notified = tr.seq
	cb.onStateChange(cb.name, tr.from, tr.to)
}

// Set holds one breaker per chain. A nil *Set allows every call.
type Set struct {
	breakers map[string]*CircuitBreaker
}

// NewSet creates breakers for the named chains
func NewSet(names []string, failureThreshold int, resetDelay time.Duration, callback func(name string, from, to State)) *Set {
	s := &Set{breakers: make(map[string]*CircuitBreaker, len(names))}
	for _, n := range names {
		s.breakers[n] = New(n, failureThreshold).WithResetDelay(resetDelay).WithStateCallback(callback)
	}
	return s
}

// Get returns the breaker of a chain
func (s *Set) Get(name string) (*CircuitBreaker, bool) {
	if s == nil {
		return nil, false
	}
	cb, ok := s.breakers[name]
	return cb, ok
}

// Allow checks the breaker of a chain; chains without a breaker are always allowed
func (s *Set) Allow(name string) error {
	if cb, ok := s.Get(name); ok {
		return cb.Allow()
	}
	return nil
}

// Record feeds the outcome of a call into the chain's breaker
func (s *Set) Record(name string, err error) {
	cb, ok := s.Get(name)
	if !ok {
		return
	}
	if err != nil {
		cb.RecordFailure(err)
		return
	}
	cb.RecordSuccess()
}

// States returns the state of every breaker keyed by chain
func (s *Set) States() map[string]State {
	out := make(map[string]State)
	if s == nil {
		return out
	}
	for name, cb := range s.breakers {
		out[name] = cb.GetState()
	}
	return out
}

// Names returns the guarded chain names in sorted order
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.breakers))
	for n := range s.breakers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
