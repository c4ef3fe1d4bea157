// Package retry provides bounded retry with optional backoff for PGW client requests.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
)

// Config holds retry configuration settings.
type Config struct {
	// InitialDelay is the pause before the second attempt. Zero resends immediately.
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between attempts.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// Jitter is the random jitter factor (0.0 to 1.0).
	Jitter float64
	// MaxAttempts is the total number of attempts, first one included (0 = unlimited).
	MaxAttempts int
}

// DefaultConfig returns the client's resend policy: five attempts, no pause
// beyond the per-attempt response timeout.
func DefaultConfig() *Config {
	return &Config{
		InitialDelay: 0,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		Jitter:       0,
		MaxAttempts:  5,
	}
}

// Retryer tracks attempts for one logical request.
type Retryer struct {
	config   *Config
	attempts int
	rng      *rand.Rand
	mu       sync.Mutex
}

// New creates a new Retryer with the given configuration.
func New(config *Config) *Retryer {
	if config == nil {
		config = DefaultConfig()
	}
	return &Retryer{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Reset resets the retry state.
func (r *Retryer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = 0
}

// Attempts returns the number of failed attempts so far.
func (r *Retryer) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// NextDelay records a failed attempt and returns the pause before the next one.
func (r *Retryer) NextDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++
	return backoff(r.attempts, r.config.InitialDelay, r.config.MaxDelay, r.config.Multiplier, r.config.Jitter, r.rng.Float64)
}

// ShouldRetry reports whether another attempt is allowed.
func (r *Retryer) ShouldRetry() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.MaxAttempts <= 0 {
		return true
	}
	return r.attempts < r.config.MaxAttempts
}

// Wait records a failed attempt and sleeps for the backoff delay.
// It returns ErrMaxRetries once the attempt budget is spent.
func (r *Retryer) Wait(ctx context.Context) error {
	delay := r.NextDelay()
	if !r.ShouldRetry() {
		return pgwerrors.ErrMaxRetries
	}
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryFunc is a function that can be retried.
type RetryFunc func(ctx context.Context) error

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent. The final error wraps both ErrMaxRetries and the
// last failure.
func (r *Retryer) Do(ctx context.Context, fn RetryFunc) error {
	_, err := DoWithResult(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryFuncWithResult is a retryable function returning a value.
type RetryFuncWithResult[T any] func(ctx context.Context) (T, error)

// DoWithResult executes the function with retries and returns the result.
func DoWithResult[T any](ctx context.Context, r *Retryer, fn RetryFuncWithResult[T]) (T, error) {
	var zero T
	for {
		result, err := fn(ctx)
		if err == nil {
			r.Reset()
			return result, nil
		}

		if !pgwerrors.IsRetryable(err) {
			return zero, err
		}

		if waitErr := r.Wait(ctx); waitErr != nil {
			if waitErr == pgwerrors.ErrMaxRetries {
				return zero, fmt.Errorf("%w after %d attempts: %w", pgwerrors.ErrMaxRetries, r.Attempts(), err)
			}
			return zero, waitErr
		}
	}
}

// backoff returns the pause after the given failed attempt: initialDelay
// grown by multiplier per attempt, spread by jitter, capped at maxDelay.
func backoff(attempt int, initialDelay, maxDelay time.Duration, multiplier, jitter float64, random func() float64) time.Duration {
	if attempt <= 0 {
		return initialDelay
	}

	delay := float64(initialDelay) * math.Pow(multiplier, float64(attempt-1))

	if jitter > 0 {
		jitterRange := delay * jitter
		delay += (random() * 2 * jitterRange) - jitterRange
	}

	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	return time.Duration(delay)
}
