package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/kosheduteam/signalengine/internal/apperr"
)

// RetryConfig configures a Retrier (§6: `retry:{max_attempts, base_delay,
// max_delay}`).
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig matches config.Config's default retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Retrier retries a call with exponential backoff and jitter, but only for
// errors apperr classifies as Transient (§4.H / §7: "Transient: retried
// with backoff").
type Retrier struct {
	config RetryConfig
}

// NewRetrier creates a Retrier with cfg (zero-value MaxAttempts falls back
// to the default).
func NewRetrier(cfg RetryConfig) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	return &Retrier{config: cfg}
}

// Do calls fn up to config.MaxAttempts times, backing off exponentially
// with jitter between attempts. It stops retrying as soon as fn returns a
// non-retryable error (per apperr.IsRetryable) or succeeds.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !apperr.IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

// backoff computes attempt's exponential delay, capped at MaxDelay and
// jittered by +/-20% to avoid synchronized retries across symbols.
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.config.BaseDelay << uint(attempt-1)
	if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	jitterFrac := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(delay) * jitterFrac)
}
