package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep counts waits and records the requested delays.
type recordingSleep struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return r.err
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	rec := &recordingSleep{}
	var retries []int
	p := Policy{
		MaxAttempts: 4,
		Delay:       time.Second,
		Sleep:       rec.sleep,
		OnRetry:     func(attempt int, err error) { retries = append(retries, attempt) },
	}

	calls := 0
	got, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503 unavailable")
		}
		return "Kennesaw, GA", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "Kennesaw, GA", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, rec.delays)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDoReturnsLastErrorUnchanged(t *testing.T) {
	rec := &recordingSleep{}
	p := Policy{MaxAttempts: 4, Delay: time.Second, Sleep: rec.sleep}

	var errs []error
	calls := 0
	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		calls++
		e := errors.New("attempt failed")
		errs = append(errs, e)
		return 0, e
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Len(t, rec.delays, 3)
	assert.Same(t, errs[len(errs)-1], err)
}

func TestDoFirstAttemptSuccessDoesNotSleep(t *testing.T) {
	rec := &recordingSleep{}
	got, err := Do(context.Background(), Policy{MaxAttempts: 4, Delay: time.Second, Sleep: rec.sleep},
		func(ctx context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
	assert.Empty(t, rec.delays)
}

func TestDoStopsWhenContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opErr := errors.New("timeout")
	calls := 0
	p := Policy{
		MaxAttempts: 4,
		Delay:       time.Hour,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	_, err := Do(ctx, p, func(ctx context.Context) (int, error) {
		calls++
		return 0, opErr
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, opErr, err)
}

func TestPolicyDefaults(t *testing.T) {
	assert.Equal(t, Policy{MaxAttempts: 4, Delay: time.Second}, Default())

	var zero Policy
	assert.Equal(t, DefaultMaxAttempts, zero.attempts())
	assert.Equal(t, DefaultDelay, zero.delay())

	assert.Equal(t, 1, Policy{MaxAttempts: -3}.attempts())
	assert.Equal(t, time.Duration(0), Policy{MaxAttempts: 2, Delay: -time.Second}.delay())
	assert.Equal(t, time.Duration(0), Policy{MaxAttempts: 2}.delay())
}

func TestSleepContextRealTimer(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

func TestRun(t *testing.T) {
	calls := 0
	err := Run(context.Background(), Policy{MaxAttempts: 2, Sleep: (&recordingSleep{}).sleep},
		func(ctx context.Context) error {
			calls++
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithOnRetryChainsHooks(t *testing.T) {
	var order []string
	base := Policy{
		MaxAttempts: 2,
		Sleep:       (&recordingSleep{}).sleep,
		OnRetry:     func(int, error) { order = append(order, "base") },
	}
	p := base.WithOnRetry(func(attempt int, err error) {
		order = append(order, "added")
		assert.Equal(t, 1, attempt)
	})

	_ = Run(context.Background(), p, func(ctx context.Context) error { return errors.New("boom") })
	assert.Equal(t, []string{"base", "added"}, order)

	// The original policy is unchanged.
	order = nil
	_ = Run(context.Background(), base, func(ctx context.Context) error { return errors.New("boom") })
	assert.Equal(t, []string{"base"}, order)
}
