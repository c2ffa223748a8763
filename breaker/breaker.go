// Package breaker implements a three-state circuit breaker used by the
// dispatch engine to shed load when handlers fail repeatedly.
//
// The breaker tracks consecutive failures. Once the configured threshold is
// reached it opens and rejects admissions until the reset timeout elapses,
// then moves to half-open and admits requests as probes; the number of
// probes admitted in half-open is not limited. A successful probe closes the
// breaker; a failed probe re-opens it.
package breaker

import (
	"sync/atomic"
	"time"
)

// State is the current breaker state.
type State int32

const (
	// Closed admits every request.
	Closed State = iota
	// Open rejects every request until the reset timeout elapses.
	Open
	// HalfOpen admits probe requests after the reset timeout.
	HalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

const (
	// DefaultThreshold is the number of consecutive failures that trips the breaker.
	DefaultThreshold = 50
	// DefaultResetTimeout is how long the breaker stays open before probing.
	DefaultResetTimeout = 30 * time.Second
)

// Breaker is a lock-free circuit breaker. All transitions happen via
// compare-and-swap; the goroutine that wins a transition performs it, others
// observe the new state. The zero value is not usable; use New.
type Breaker struct {
	state     atomic.Int32
	errors    atomic.Int32
	openedAt  atomic.Int64 // unix nanos of the last closed->open or half-open->open transition
	enabled   atomic.Bool
	threshold atomic.Int32
	resetNs   atomic.Int64
}

// New returns a breaker with the given trip threshold and reset timeout.
// Non-positive arguments fall back to the defaults. The breaker starts
// disabled; call SetEnabled(true) to arm it.
func New(threshold int, resetTimeout time.Duration) *Breaker {
	b := &Breaker{}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = DefaultResetTimeout
	}
	b.threshold.Store(int32(threshold))
	b.resetNs.Store(int64(resetTimeout))
	b.state.Store(int32(Closed))
	return b
}

// SetEnabled arms or disarms the breaker. A disarmed breaker admits
// everything and ignores Success/Failure.
func (b *Breaker) SetEnabled(v bool) { b.enabled.Store(v) }

// Enabled reports whether the breaker is armed.
func (b *Breaker) Enabled() bool { return b.enabled.Load() }

// SetThreshold changes the consecutive-failure trip threshold.
func (b *Breaker) SetThreshold(n int) {
	if n > 0 {
		b.threshold.Store(int32(n))
	}
}

// SetResetTimeout changes the open -> half-open timeout.
func (b *Breaker) SetResetTimeout(d time.Duration) {
	if d > 0 {
		b.resetNs.Store(int64(d))
	}
}

// State returns the current state.
func (b *Breaker) State() State { return State(b.state.Load()) }

// Allow reports whether a request may be admitted. In the open state it
// transitions to half-open once the reset timeout has elapsed and admits the
// caller as the probe.
func (b *Breaker) Allow() bool {
	if !b.enabled.Load() {
		return true
	}
	switch State(b.state.Load()) {
	case Closed, HalfOpen:
		return true
	case Open:
		elapsed := time.Now().UnixNano() - b.openedAt.Load()
		if elapsed < b.resetNs.Load() {
			return false
		}
		if b.state.CompareAndSwap(int32(Open), int32(HalfOpen)) {
			b.errors.Store(0)
			return true
		}
		// Lost the race; the winner moved us to half-open.
		return State(b.state.Load()) != Open
	}
	return true
}

// Success records a successful request. It resets the consecutive-error
// counter in every state and closes the breaker from half-open.
func (b *Breaker) Success() {
	if !b.enabled.Load() {
		return
	}
	b.errors.Store(0)
	b.state.CompareAndSwap(int32(HalfOpen), int32(Closed))
}

// Failure records a failed request. In the closed state it trips the breaker
// once the threshold of consecutive failures is reached; in half-open it
// re-opens immediately.
func (b *Breaker) Failure() {
	if !b.enabled.Load() {
		return
	}
	switch State(b.state.Load()) {
	case Closed:
		if b.errors.Add(1) >= b.threshold.Load() {
			if b.state.CompareAndSwap(int32(Closed), int32(Open)) {
				b.openedAt.Store(time.Now().UnixNano())
				b.errors.Store(0)
			}
		}
	case HalfOpen:
		if b.state.CompareAndSwap(int32(HalfOpen), int32(Open)) {
			b.openedAt.Store(time.Now().UnixNano())
		}
	}
}

// Reset forces the breaker back to closed with a clean error counter.
func (b *Breaker) Reset() {
	b.errors.Store(0)
	b.state.Store(int32(Closed))
}
