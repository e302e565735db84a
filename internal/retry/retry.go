// Package retry runs operations with a bounded attempt budget and
// exponential backoff. An operation can override the next wait (for
// server-directed delays like Retry-After) or abort the budget entirely.
package retry

import (
	"context"
	"errors"
	"time"
)

// Func is a retryable operation.
type Func func(ctx context.Context) error

// Policy controls the attempt budget and the wait schedule between attempts.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // wait before the second attempt, doubled after
	MaxDelay    time.Duration // cap on the exponential schedule
}

// DefaultPolicy mirrors the service's tolerated retry budget.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 6,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: Execute returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type delayedError struct {
	err  error
	wait time.Duration
}

func (e *delayedError) Error() string { return e.err.Error() }
func (e *delayedError) Unwrap() error { return e.err }

// After marks err as retryable with an explicit wait before the next
// attempt, overriding the exponential schedule.
func After(err error, wait time.Duration) error {
	if err == nil {
		return nil
	}
	return &delayedError{err: err, wait: wait}
}

// Execute runs op until it succeeds, exhausts the attempt budget, or returns
// a permanent error. The error handed back to the caller is always the
// operation's own error, never a marker.
func (p Policy) Execute(ctx context.Context, op Func) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		wait := p.delay(attempt)
		var delayed *delayedError
		if errors.As(err, &delayed) {
			wait = delayed.wait
			err = delayed.err
		}
		lastErr = err

		if attempt >= attempts {
			return lastErr
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// delay returns the exponential wait after the given attempt number.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
