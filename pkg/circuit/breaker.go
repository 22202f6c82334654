package circuit

import (
	"fmt"
	"sync"
	"time"

	"github.com/T3-Labs/camera-hal/pkg/logger"
	"github.com/T3-Labs/camera-hal/pkg/metrics"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker keeps a persistently refusing platform allocator from being
// hammered with retries. Pool refill paths route their allocate calls
// through Call.
type Breaker struct {
	name              string
	maxFailures       int64
	halfOpenSuccesses int64

	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64

	mu             sync.RWMutex
	state          State
	failures       int64
	successes      int64
	currentBackoff time.Duration
	lastFailTime   time.Time
	lastStateTime  time.Time
}

func NewBreaker(name string, maxFailures int64, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		name:              name,
		maxFailures:       maxFailures,
		halfOpenSuccesses: 3,
		initialBackoff:    resetTimeout,
		maxBackoff:        10 * time.Minute,
		backoffMultiplier: 2.0,
		currentBackoff:    resetTimeout,
		state:             StateClosed,
		lastStateTime:     time.Now(),
	}
}

func (cb *Breaker) Call(fn func() error) error {
	if !cb.Allow() {
		return fmt.Errorf("circuit breaker %s open", cb.name)
	}

	err := fn()

	if err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

func (cb *Breaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Since(cb.lastFailTime) > cb.currentBackoff {
			cb.setState(StateHalfOpen)
			return true
		}
		return false

	case StateHalfOpen:
		return true

	default:
		return false
	}
}

func (cb *Breaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes++

	switch cb.state {
	case StateClosed:
		cb.failures = 0
		cb.currentBackoff = cb.initialBackoff

	case StateHalfOpen:
		if cb.successes >= cb.halfOpenSuccesses {
			cb.setState(StateClosed)
			cb.failures = 0
			cb.successes = 0
			cb.currentBackoff = cb.initialBackoff
		}
	}
}

func (cb *Breaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailTime = time.Now()
	cb.successes = 0

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.maxFailures {
			cb.setState(StateOpen)
			cb.growBackoff()
		}

	case StateHalfOpen:
		cb.setState(StateOpen)
		cb.growBackoff()
	}
}

func (cb *Breaker) growBackoff() {
	cb.currentBackoff = time.Duration(float64(cb.currentBackoff) * cb.backoffMultiplier)
	if cb.currentBackoff > cb.maxBackoff {
		cb.currentBackoff = cb.maxBackoff
	}
}

func (cb *Breaker) setState(newState State) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.lastStateTime = time.Now()
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(float64(newState))
	logger.Log.Infow("circuit breaker state changed",
		"breaker", cb.name, "from", oldState.String(), "to", newState.String(),
		"failures", cb.failures, "nextRetryIn", cb.currentBackoff)
}

func (cb *Breaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *Breaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.currentBackoff = cb.initialBackoff
}

type BreakerStats struct {
	Name            string
	State           State
	Failures        int64
	Successes       int64
	MaxFailures     int64
	CurrentBackoff  time.Duration
	LastFailTime    time.Time
	LastStateChange time.Time
}

func (bs BreakerStats) String() string {
	return fmt.Sprintf("Circuit[%s]: %s, Failures: %d/%d, Successes: %d, NextRetry: %v",
		bs.Name, bs.State, bs.Failures, bs.MaxFailures, bs.Successes, bs.CurrentBackoff)
}

func (cb *Breaker) Stats() BreakerStats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return BreakerStats{
		Name:            cb.name,
		State:           cb.state,
		Failures:        cb.failures,
		Successes:       cb.successes,
		MaxFailures:     cb.maxFailures,
		CurrentBackoff:  cb.currentBackoff,
		LastFailTime:    cb.lastFailTime,
		LastStateChange: cb.lastStateTime,
	}
}
