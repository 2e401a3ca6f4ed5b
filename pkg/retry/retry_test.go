package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errConflict = errors.New("conflict")

func fast(opts ...Option) *Retrier {
	return New(append([]Option{WithInitialDelay(0), WithJitter(0)}, opts...)...)
}

func TestDo_SucceedsAfterRetryableErrors(t *testing.T) {
	calls := 0
	err := fast(WithMaxAttempts(5)).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errConflict)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := fast().Do(context.Background(), func(context.Context) error {
		calls++
		return errConflict
	})

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsUnwrappedErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := fast(WithMaxAttempts(2)).Do(context.Background(), func(context.Context) error {
		calls++
		return Retryable(errConflict)
	})

	assert.Equal(t, errConflict, err)
	assert.Equal(t, 2, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := fast(WithRetryIf(func(error) bool { return true })).Do(context.Background(), func(context.Context) error {
		calls++
		return Permanent(errConflict)
	})

	assert.Equal(t, errConflict, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryIfAndOnRetry(t *testing.T) {
	var retried []int
	r := ConflictRetrier(4, func(err error) bool { return errors.Is(err, errConflict) }).
		With(WithInitialDelay(0), WithOnRetry(func(attempt int, _ error, _ time.Duration) {
			retried = append(retried, attempt)
		}))

	calls := 0
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errConflict
	})

	assert.ErrorIs(t, err, errConflict)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, retried)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fast().Do(ctx, func(context.Context) error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestCalculateDelay_Capped(t *testing.T) {
	r := New(WithInitialDelay(time.Second), WithMaxDelay(3*time.Second), WithJitter(0))

	assert.Equal(t, time.Second, r.calculateDelay(1))
	assert.Equal(t, 2*time.Second, r.calculateDelay(2))
	assert.Equal(t, 3*time.Second, r.calculateDelay(5))
}
