package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/cache"
)

func testLocker(t *testing.T) (*cache.SlotHoldLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewSlotHoldLocker(cache.NewRedisCacheFromClient(client, nil), nil), mr
}

func TestSlotHoldLocker_Acquire(t *testing.T) {
	locker, _ := testLocker(t)
	prof := uuid.New()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, prof, time.Second)
	require.NoError(t, err)

	// A second holder times out with a retryable conflict.
	_, err = locker.Acquire(ctx, prof, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, "CONCURRENT_CONFLICT"))

	// Releasing frees the calendar for the next holder.
	release()
	again, err := locker.Acquire(ctx, prof, 50*time.Millisecond)
	require.NoError(t, err)
	again()
}

func TestSlotHoldLocker_IndependentProfessionals(t *testing.T) {
	locker, _ := testLocker(t)
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, uuid.New(), 50*time.Millisecond)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(ctx, uuid.New(), 50*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}

func TestSlotHoldLocker_ExpiredHoldIsReclaimed(t *testing.T) {
	locker, mr := testLocker(t)
	prof := uuid.New()
	ctx := context.Background()

	_, err := locker.Acquire(ctx, prof, time.Second)
	require.NoError(t, err)

	// A crashed holder never releases; the TTL bounds the damage.
	mr.FastForward(31 * time.Second)

	release, err := locker.Acquire(ctx, prof, 50*time.Millisecond)
	require.NoError(t, err)
	release()
}

func TestSlotHoldLocker_StaleReleaseKeepsNewOwner(t *testing.T) {
	locker, mr := testLocker(t)
	prof := uuid.New()
	ctx := context.Background()

	staleRelease, err := locker.Acquire(ctx, prof, time.Second)
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)

	_, err = locker.Acquire(ctx, prof, 50*time.Millisecond)
	require.NoError(t, err)

	// The expired holder's release must not free the new owner's lock.
	staleRelease()
	_, err = locker.Acquire(ctx, prof, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, "CONCURRENT_CONFLICT"))
}

func TestSlotHoldLocker_ContextCancellation(t *testing.T) {
	locker, _ := testLocker(t)
	prof := uuid.New()

	_, err := locker.Acquire(context.Background(), prof, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err = locker.Acquire(ctx, prof, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}
