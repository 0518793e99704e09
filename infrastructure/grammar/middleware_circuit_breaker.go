package grammar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-essay-judge/internal/ports"
)

// ErrCircuitOpen is returned without calling the backend while the circuit
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState is the state of a CircuitBreaker.
type CircuitBreakerState int

// Circuit breaker states.
const (
	// StateClosed lets every check through.
	StateClosed CircuitBreakerState = iota

	// StateOpen rejects checks until the cooldown has elapsed.
	StateOpen

	// StateHalfOpen lets a single trial call through to test recovery.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s CircuitBreakerState) String() string {
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

// CircuitBreakerMetrics observes breaker behavior.
type CircuitBreakerMetrics interface {
	RecordState(state CircuitBreakerState)
	RecordTrip()
	RecordSuccess()
	RecordFailure()
}

// CircuitBreaker opens after maxFailures consecutive failures and, once the
// cooldown has elapsed, admits one trial call. A successful trial closes it; a
// failed trial reopens it. The lock is never held across a backend call.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitBreakerState
	failureCount     int
	maxFailures      int
	cooldownDuration time.Duration
	openedAt         time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(maxFailures int, cooldownDuration time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		state:            StateClosed,
		maxFailures:      maxFailures,
		cooldownDuration: cooldownDuration,
		now:              time.Now,
	}
}

// Allow reports whether a call may proceed. A true result must be followed
// by exactly one Record or Release.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldownDuration {
			return false
		}
		cb.state = StateHalfOpen
		cb.probing = true
		return true
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

// Record reports the outcome of an allowed call.
func (cb *CircuitBreaker) Record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failureCount = 0
		cb.state = StateClosed
		cb.probing = false
		return
	}

	cb.failureCount++
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
	cb.probing = false
}

// Release ends an allowed call without judging backend health.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

type circuitBreakerChecker struct {
	next    ports.GrammarChecker
	cb      *CircuitBreaker
	metrics CircuitBreakerMetrics
}

// CircuitBreakerMiddleware fails fast with ErrCircuitOpen while the backend
// is failing repeatedly. Context cancellation by the caller does not count
// as a backend failure.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return CircuitBreakerMiddlewareWithMetrics(maxFailures, cooldown, nil)
}

// CircuitBreakerMiddlewareWithMetrics is CircuitBreakerMiddleware with
// breaker metrics. metrics may be nil.
func CircuitBreakerMiddlewareWithMetrics(maxFailures int, cooldown time.Duration, metrics CircuitBreakerMetrics) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	return func(next ports.GrammarChecker) ports.GrammarChecker {
		return &circuitBreakerChecker{next: next, cb: cb, metrics: metrics}
	}
}

func (c *circuitBreakerChecker) Name() string { return c.next.Name() }

func (c *circuitBreakerChecker) CheckErrors(ctx context.Context, text string) (int, error) {
	if !c.cb.Allow() {
		if c.metrics != nil {
			c.metrics.RecordTrip()
			c.metrics.RecordState(c.cb.State())
		}
		return 0, ErrCircuitOpen
	}

	n, err := c.next.CheckErrors(ctx, text)
	if err != nil && ctx.Err() != nil {
		c.cb.Release()
	} else {
		c.cb.Record(err)
	}

	if c.metrics != nil {
		if err == nil {
			c.metrics.RecordSuccess()
		} else {
			c.metrics.RecordFailure()
		}
		c.metrics.RecordState(c.cb.State())
	}
	return n, err
}
