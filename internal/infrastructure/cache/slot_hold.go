package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
)

// holdTTL bounds how long a crashed holder can keep a calendar locked.
const holdTTL = 30 * time.Second

// acquirePollInterval is the retry cadence while waiting for a held lock.
const acquirePollInterval = 25 * time.Millisecond

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// SlotHoldLocker serializes per-professional reservation across service
// instances using a Redis lock with an owner token. Single-instance
// deployments can use the in-process locker instead.
type SlotHoldLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSlotHoldLocker creates a Redis-backed professional locker.
func NewSlotHoldLocker(cache *RedisCache, logger *zap.Logger) *SlotHoldLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotHoldLocker{client: cache.Client(), logger: logger}
}

// Acquire takes the professional's lock, polling until the wait bound. A
// timed-out acquire fails with a concurrent conflict so the caller's bounded
// retry can recompute against fresh state.
func (l *SlotHoldLocker) Acquire(ctx context.Context, professionalID uuid.UUID, wait time.Duration) (func(), error) {
	key := lockKey(professionalID)
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, holdTTL).Result()
		if err != nil {
			return nil, errors.NewInternalError("failed to acquire calendar lock").WithCause(err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.NewConcurrentConflictError("professional calendar is busy").
				WithDetails(map[string]interface{}{"professional_id": professionalID.String()})
		}

		select {
		case <-time.After(acquirePollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (l *SlotHoldLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
		// The TTL still bounds how long the lock can linger.
		l.logger.Warn("failed to release calendar lock", zap.String("key", key), zap.Error(err))
	}
}

func lockKey(professionalID uuid.UUID) string {
	return fmt.Sprintf("schedule:lock:%s", professionalID)
}
