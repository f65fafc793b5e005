// Package retry runs an operation with a fixed delay between attempts.
package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 4
	DefaultDelay       = time.Second
)

// Policy configures Do. The zero value means DefaultMaxAttempts with
// DefaultDelay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration

	// Sleep waits for d or until ctx is done. Tests replace it to avoid
	// real delays.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each delayed retry with the attempt that just
	// failed (1-based) and its error.
	OnRetry func(attempt int, err error)
}

// Default returns the policy used for every AI operation.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay}
}

// WithOnRetry returns a copy of p that calls fn before each delayed retry,
// after any hook p already has.
func (p Policy) WithOnRetry(fn func(attempt int, err error)) Policy {
	prev := p.OnRetry
	p.OnRetry = func(attempt int, err error) {
		if prev != nil {
			prev(attempt, err)
		}
		fn(attempt, err)
	}
	return p
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		if p.MaxAttempts == 0 {
			return DefaultMaxAttempts
		}
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) delay() time.Duration {
	if p.Delay < 0 {
		return 0
	}
	if p.Delay == 0 && p.MaxAttempts == 0 {
		return DefaultDelay
	}
	return p.Delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op until it succeeds or the attempts are exhausted. Any error is
// retried. When every attempt fails the last error is returned as is, so
// callers can compare it by identity. A context cancelled while waiting
// stops further attempts and also returns the last operation error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	maxAttempts := p.attempts()
	delay := p.delay()

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt == maxAttempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if sleep(ctx, delay) != nil {
			break
		}
	}
	var zero T
	return zero, err
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
