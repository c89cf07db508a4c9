// Package retry re-runs an operation under a bounded backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"solana-wallet-inspector/internal/solana"
)

// Class tells Do whether an error is worth another attempt.
type Class int

const (
	Retryable Class = iota
	Fatal
)

// Rate-limit policy defaults, matching the provider's per-second quota window.
const (
	DefaultRateLimitAttempts = 5
	DefaultRateLimitDelay    = 1200 * time.Millisecond
)

// ErrExhausted marks an error returned after the last attempt failed retryably.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy configures Do.
type Policy struct {
	MaxAttempts int           // Default: 1
	BaseDelay   time.Duration // Default: 100ms
	MaxDelay    time.Duration // Default: 5s; equal to BaseDelay gives a constant delay
	Jitter      time.Duration // random extra wait in [0, Jitter)

	// Classify decides whether an error is retryable.
	// If nil, every non-nil error is retried.
	Classify func(error) Class

	// OnRetry is called before each wait.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// RateLimitPolicy retries only rate-limit errors, with a constant delay.
func RateLimitPolicy(attempts int, delay time.Duration) Policy {
	if attempts <= 0 {
		attempts = DefaultRateLimitAttempts
	}
	if delay <= 0 {
		delay = DefaultRateLimitDelay
	}
	return Policy{
		MaxAttempts: attempts,
		BaseDelay:   delay,
		MaxDelay:    delay,
		Classify:    RateLimitOnly,
	}
}

// RateLimitOnly classifies solana.ErrRateLimited as retryable and everything else as fatal.
func RateLimitOnly(err error) Class {
	if errors.Is(err, solana.ErrRateLimited) {
		return Retryable
	}
	return Fatal
}

// Do calls fn until it succeeds, returns a fatal error, or MaxAttempts is reached.
// After the last retryable failure the returned error wraps both ErrExhausted and
// that failure. Context cancellation during a wait returns ctx.Err().
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}

	classify := p.Classify
	if classify == nil {
		classify = func(error) Class { return Retryable }
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if classify(err) == Fatal {
			return err
		}
		if attempt == p.MaxAttempts {
			break
		}

		// exponential backoff with cap + jitter
		wait := p.BaseDelay << (attempt - 1)
		if wait > p.MaxDelay || wait <= 0 {
			wait = p.MaxDelay
		}
		if p.Jitter > 0 {
			wait += time.Duration(rand.Int63n(int64(p.Jitter)))
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &exhaustedError{attempts: p.MaxAttempts, err: lastErr}
}

type exhaustedError struct {
	attempts int
	err      error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrExhausted, e.attempts, e.err)
}

func (e *exhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.err}
}
