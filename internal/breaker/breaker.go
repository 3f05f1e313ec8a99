// Package breaker implements the consecutive-failure circuit breaker that
// guards the external classification service. After a configured number of
// consecutive failures the circuit opens and calls are short-circuited for
// a cooldown period, avoiding cascading latency under an outage.
package breaker

import (
	"sync"
	"time"
)

// Breaker is safe for concurrent use by many in-flight moderation requests.
type Breaker struct {
	mu        sync.Mutex
	failures  int
	openedAt  time.Time
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// New creates a breaker that opens after threshold consecutive failures and
// stays open for the cooldown period.
func New(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// NewWithClock injects a clock for tests
func NewWithClock(threshold int, cooldown time.Duration, now func() time.Time) *Breaker {
	b := New(threshold, cooldown)
	b.now = now
	return b
}

// Allow reports whether a call may proceed. When the cooldown has elapsed
// the breaker goes half-open: one probe is allowed through, and its outcome
// (Success or Failure) decides whether the circuit closes or re-opens.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.cooldown {
		// Half-open probe. Move the window forward so concurrent callers
		// don't all rush the recovering service.
		b.openedAt = b.now()
		return true
	}
	return false
}

// Success resets the failure count and closes the circuit
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// Failure records a failed call, opening the circuit at the threshold
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.openedAt = b.now()
	}
}

// Open reports whether the circuit is currently open
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && b.now().Sub(b.openedAt) < b.cooldown
}
