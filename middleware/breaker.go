package middleware

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is one of the circuit breaker's three states.
type BreakerState int

const (
	// Closed admits all calls and counts consecutive failures.
	Closed BreakerState = iota
	// Open rejects all calls until recoveryTime has elapsed since it opened.
	Open
	// HalfOpen admits a single trial call to decide whether to close or
	// reopen.
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Allow when the breaker is rejecting calls.
var ErrBreakerOpen = errors.New("middleware: circuit breaker open")

// CircuitBreaker is a per-backend failure guard: after threshold consecutive
// failures it opens and rejects calls for recoveryTime, then allows exactly
// one trial call (half-open); success closes it, failure reopens it and
// restarts the recovery timer.
type CircuitBreaker struct {
	mu          sync.Mutex
	threshold   int
	recoverTime time.Duration
	now         func() time.Time

	state         BreakerState
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// NewCircuitBreaker returns a CircuitBreaker that opens after threshold
// consecutive failures and stays open for recoveryTime.
func NewCircuitBreaker(threshold int, recoveryTime time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:   threshold,
		recoverTime: recoveryTime,
		now:         time.Now,
		state:       Closed,
	}
}

// Allow reports whether a call may proceed. If the breaker is open but
// recoveryTime has elapsed, Allow transitions it to half-open and admits
// exactly one caller as the trial; concurrent callers during that window
// are rejected until the trial reports its outcome via Report.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return nil
	case Open:
		if b.now().Sub(b.openedAt) < b.recoverTime {
			return ErrBreakerOpen
		}
		b.state = HalfOpen
		b.trialInFlight = true
		return nil
	case HalfOpen:
		if b.trialInFlight {
			return ErrBreakerOpen
		}
		b.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// Report records the outcome of a call previously admitted by Allow.
func (b *CircuitBreaker) Report(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.trialInFlight = false
		if success {
			b.state = Closed
			b.failures = 0
		} else {
			b.state = Open
			b.openedAt = b.now()
		}
	case Closed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.threshold {
			b.state = Open
			b.openedAt = b.now()
		}
	case Open:
		// A late report racing a state transition; nothing to do.
	}
}

// State returns the breaker's current state, mainly for observability and
// tests.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
