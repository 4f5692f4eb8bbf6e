package booking

import (
	"context"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
)

// boundedRetry re-runs an operation a fixed number of times when it fails
// with a retryable conflict. The bound is explicit so it can be tested
// independently of the orchestrator's control flow.
type boundedRetry struct {
	// MaxRetries is the number of re-attempts after the first try.
	MaxRetries int
}

// Do runs op until it succeeds, fails with a non-conflict error, or the
// retry budget is spent. Only concurrent conflicts are retried; every other
// failure surfaces immediately.
func (r boundedRetry) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	var err error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = op(ctx, attempt)
		if err == nil {
			return nil
		}
		if !errors.IsCode(err, "CONCURRENT_CONFLICT") {
			return err
		}
	}
	return err
}
