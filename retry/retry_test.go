package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Success(t *testing.T) {
	attempts := 0
	err := Fixed(3, 10*time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestPolicy_EventualSuccess(t *testing.T) {
	attempts := 0
	err := Fixed(5, time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestPolicy_SucceedsOnLastAttempt(t *testing.T) {
	attempts := 0
	err := Fixed(20, time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 20 {
			return errors.New("down")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, attempts)
}

func TestPolicy_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := Fixed(3, time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return expectedErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, expectedErr, "should wrap the last error")
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestPolicy_NonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	policy := Fixed(10, time.Millisecond).WithRetryable(func(err error) bool {
		return !errors.Is(err, fatal)
	})

	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatal
	})
	require.Error(t, err)
	assert.Equal(t, fatal, err)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, attempts)
}

func TestPolicy_FixedDelay(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastTime := time.Now()

	err := Fixed(4, 20*time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		return errors.New("error")
	})
	require.ErrorIs(t, err, ErrExhausted)
	require.Len(t, delays, 3, "should sleep between attempts but not after the last one")

	for _, d := range delays {
		assert.GreaterOrEqual(t, d, 20*time.Millisecond)
	}
}

func TestPolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Fixed(10, 10*time.Millisecond).Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2, "should stop when context is canceled")
}

func TestPolicy_InvalidMaxAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		attempts := 0
		err := Fixed(n, time.Millisecond).Do(context.Background(), func(ctx context.Context) error {
			attempts++
			return nil
		})
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Equal(t, 0, attempts)
	}
}
