// Package resilience provides the generic fault-tolerance primitives every
// collaborator wrapper uses (§4.H / §5): a circuit breaker, a retrier, a
// bounded queue, and a collaborator degradation registry. Grounded on the
// teacher's internal/circuit.CircuitBreaker, generalized from
// trading-domain loss/trade-count thresholds to a reusable
// success/failure-counted call wrapper any collaborator can sit behind.
package resilience

import (
	"sync"
	"time"
)

// BreakerState enumerates the three circuit-breaker states (§4.H).
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerConfig configures a Breaker's trip/recovery thresholds (§6:
// `breaker:{failure_threshold, recovery_seconds}` per collaborator).
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// DefaultBreakerConfig matches the teacher's trading circuit breaker
// defaults, generalized: 5 consecutive failures trips the breaker, 30
// seconds in the open state before a half-open probe is allowed.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, RecoveryTimeout: 30 * time.Second}
}

// Breaker is a generic 3-state circuit breaker guarding calls to one named
// collaborator (broker, store, bus). Safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	name   string
	config BreakerConfig

	state             BreakerState
	consecutiveFails  int
	lastTripTime      time.Time
	tripReason        string

	onTrip  func(reason string)
	onReset func()
}

// NewBreaker creates a Breaker named name (used in log/alert messages) with
// cfg's thresholds.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg = DefaultBreakerConfig()
	}
	return &Breaker{name: name, config: cfg, state: StateClosed}
}

// OnTrip registers a callback invoked when the breaker transitions to open.
func (b *Breaker) OnTrip(handler func(reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// OnReset registers a callback invoked when the breaker closes again.
func (b *Breaker) OnReset(handler func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReset = handler
}

// Allow reports whether a call may proceed, and moves Open -> HalfOpen once
// the recovery timeout has elapsed (§4.H).
func (b *Breaker) Allow() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastTripTime) < b.config.RecoveryTimeout {
			return false, b.tripReason
		}
		b.state = StateHalfOpen
		return true, ""
	default:
		return true, ""
	}
}

// RecordSuccess reports a successful call. The first success from
// HalfOpen closes the breaker (§4.H: "first success closes from
// half-open").
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	wasOpen := b.state != StateClosed
	b.state = StateClosed
	b.consecutiveFails = 0
	onReset := b.onReset
	b.mu.Unlock()

	if wasOpen && onReset != nil {
		onReset()
	}
}

// RecordFailure reports a failed call with a human-readable reason. The
// first failure in HalfOpen re-opens the breaker immediately (§4.H: "first
// failure re-opens"); in Closed, the breaker trips once consecutiveFails
// reaches the configured threshold.
func (b *Breaker) RecordFailure(reason string) {
	b.mu.Lock()
	b.consecutiveFails++

	trip := false
	if b.state == StateHalfOpen {
		trip = true
	} else if b.consecutiveFails >= b.config.FailureThreshold {
		trip = true
	}

	var onTrip func(string)
	if trip {
		b.state = StateOpen
		b.lastTripTime = time.Now()
		b.tripReason = reason
		onTrip = b.onTrip
	}
	b.mu.Unlock()

	if onTrip != nil {
		onTrip(reason)
	}
}

// Trip forces the breaker open immediately, regardless of failure count
// (§4.F/§4.G: fatal auth/permission errors trip the breaker directly).
func (b *Breaker) Trip(reason string) {
	b.mu.Lock()
	b.state = StateOpen
	b.lastTripTime = time.Now()
	b.tripReason = reason
	onTrip := b.onTrip
	b.mu.Unlock()

	if onTrip != nil {
		onTrip(reason)
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
