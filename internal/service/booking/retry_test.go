package booking

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
)

func TestBoundedRetry(t *testing.T) {
	ctx := context.Background()
	conflict := errors.NewConcurrentConflictError("slot taken")

	t.Run("success on first attempt", func(t *testing.T) {
		calls := 0
		err := boundedRetry{MaxRetries: 1}.Do(ctx, func(ctx context.Context, attempt int) error {
			calls++
			assert.Equal(t, 0, attempt)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("conflict retried exactly once", func(t *testing.T) {
		calls := 0
		err := boundedRetry{MaxRetries: 1}.Do(ctx, func(ctx context.Context, attempt int) error {
			assert.Equal(t, calls, attempt)
			calls++
			return conflict
		})
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, "CONCURRENT_CONFLICT"))
		assert.Equal(t, 2, calls)
	})

	t.Run("retry can succeed", func(t *testing.T) {
		calls := 0
		err := boundedRetry{MaxRetries: 1}.Do(ctx, func(ctx context.Context, attempt int) error {
			calls++
			if attempt == 0 {
				return conflict
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("non-conflict errors surface immediately", func(t *testing.T) {
		calls := 0
		boom := fmt.Errorf("database down")
		err := boundedRetry{MaxRetries: 3}.Do(ctx, func(ctx context.Context, attempt int) error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("policy rejections are not retried", func(t *testing.T) {
		calls := 0
		err := boundedRetry{MaxRetries: 3}.Do(ctx, func(ctx context.Context, attempt int) error {
			calls++
			return errors.NewPolicyRejectedError("weather", "unsafe")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops the loop", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		err := boundedRetry{MaxRetries: 3}.Do(cancelled, func(ctx context.Context, attempt int) error {
			calls++
			return conflict
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, calls)
	})
}
