package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opalhq/walletd/internal/util/retry"
)

func TestDoReturnsImmediatelyWhenAlreadyDone(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 60, Interval: time.Hour}

	calls := 0
	start := time.Now()
	err := policy.Do(context.Background(), func(_ context.Context) (bool, error) {
		calls++
		return true, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoExhaustsAfterExactlyMaxAttempts(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 5, Interval: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func(_ context.Context) (bool, error) {
		calls++
		return false, nil
	})

	require.ErrorIs(t, err, retry.ErrAttemptsExhausted)
	assert.Equal(t, 5, calls)
}

func TestDoStopsOnOperationError(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 5, Interval: time.Millisecond}
	boom := errors.New("boom")

	calls := 0
	err := policy.Do(context.Background(), func(_ context.Context) (bool, error) {
		calls++
		return false, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 10, Interval: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := policy.Do(ctx, func(_ context.Context) (bool, error) {
		return false, nil
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestDoRejectsNonPositiveBudget(t *testing.T) {
	policy := retry.Policy{MaxAttempts: 0, Interval: time.Millisecond}

	err := policy.Do(context.Background(), func(_ context.Context) (bool, error) {
		return true, nil
	})
	require.Error(t, err)
}
