// Package httpx provides the bounded retry policy shared by the
// upstream clients. Transient failures (throttling, server-side 5xx,
// network timeouts) are retried with exponential backoff; anything
// else propagates immediately.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// TransientError wraps a failure worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// IsTransient reports whether err should be retried. Explicit
// TransientError marks and network timeouts qualify.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Policy is a bounded retry policy: up to MaxAttempts calls, sleeping
// BaseDelay*Growth^n between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Growth      float64
}

// DefaultPolicy mirrors the upstream tolerance: 3 attempts with
// 300ms base delay doubling per attempt.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 300 * time.Millisecond, Growth: 2}
}

// ZeroDelay keeps the attempt bound but sleeps nothing, for tests.
func ZeroDelay() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 0, Growth: 1}
}

// Do runs fn until it succeeds, fails fatally, or the attempt bound is
// reached. The context cancels both the waits and further attempts.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := p.BaseDelay
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt >= attempts {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * p.Growth)
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
