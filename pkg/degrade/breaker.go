package degrade

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half-open"
)

// Breaker trips after threshold consecutive failures and short-circuits
// calls until timeout has elapsed, then admits exactly one trial call.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	timeout   time.Duration

	state        BreakerState
	failureCount int
	lastFailure  time.Time

	now func() time.Time
}

type BreakerSnapshot struct {
	State        BreakerState `json:"state"`
	FailureCount int          `json:"failure_count"`
	LastFailure  time.Time    `json:"last_failure,omitempty"`
}

func NewBreaker(threshold int, timeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		timeout:   timeout,
		state:     StateClosed,
		now:       time.Now,
	}
}

// CanExecute reports whether a call may pass through. When the cooldown has
// elapsed the breaker moves to half-open and admits a single trial; further
// calls are rejected until that trial resolves via RecordSuccess or
// RecordFailure.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) > b.timeout {
			b.state = StateHalfOpen
			return true
		}
		return false
	case StateHalfOpen:
		return false
	default:
		return true
	}
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.state = StateClosed
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = b.now()

	if b.state == StateHalfOpen || b.failureCount >= b.threshold {
		if b.state != StateOpen {
			logrus.Warnf("[DEGRADE] Circuit breaker opened after %d failures", b.failureCount)
		}
		b.state = StateOpen
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerSnapshot{
		State:        b.state,
		FailureCount: b.failureCount,
		LastFailure:  b.lastFailure,
	}
}
