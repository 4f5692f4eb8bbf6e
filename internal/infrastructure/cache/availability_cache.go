package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/service/booking"
)

// AvailabilityCache decorates the slot finder with a short-TTL Redis cache.
// Each professional carries a version counter; bumping it on booking
// mutation invalidates every cached search that involved them without any
// key scanning.
type AvailabilityCache struct {
	inner  booking.SlotFinder
	cache  *RedisCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAvailabilityCache wraps a slot finder with caching.
func NewAvailabilityCache(inner booking.SlotFinder, cache *RedisCache, ttl time.Duration, logger *zap.Logger) *AvailabilityCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityCache{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

// FindSlots serves cached results when the request and every involved
// professional's version match; cache failures fall through to the inner
// finder.
func (c *AvailabilityCache) FindSlots(ctx context.Context, req schedule.ServiceRequest, candidates []*schedule.Professional) ([]schedule.TimeSlot, error) {
	key, ok := c.cacheKey(ctx, req, candidates)
	if ok {
		var cached []schedule.TimeSlot
		err := c.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if _, miss := err.(ErrCacheKeyNotFound); !miss {
			c.logger.Warn("availability cache read failed", zap.Error(err))
		}
	}

	slots, err := c.inner.FindSlots(ctx, req, candidates)
	if err != nil {
		return nil, err
	}

	if ok {
		if err := c.cache.SetJSON(ctx, key, slots, c.ttl); err != nil {
			c.logger.Warn("availability cache write failed", zap.Error(err))
		}
	}
	return slots, nil
}

// Invalidate bumps the professional's version counter, orphaning every
// cached search result that involved them.
func (c *AvailabilityCache) Invalidate(ctx context.Context, professionalID uuid.UUID) {
	key := versionKey(professionalID)
	if _, err := c.cache.Increment(ctx, key); err != nil {
		c.logger.Warn("availability cache invalidation failed",
			zap.String("professional_id", professionalID.String()), zap.Error(err))
		return
	}
	// Version keys expire with the longest plausible cache lifetime so idle
	// professionals do not accumulate counters.
	_ = c.cache.Client().Expire(ctx, key, 24*time.Hour).Err()
}

// cacheKey builds a deterministic key from the request and the version of
// every candidate. Returns false when versions cannot be read; the search
// then bypasses the cache entirely.
func (c *AvailabilityCache) cacheKey(ctx context.Context, req schedule.ServiceRequest, candidates []*schedule.Professional) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	keys := make([]string, len(candidates))
	for i, p := range candidates {
		keys[i] = versionKey(p.ID)
	}
	versions, err := c.cache.Client().MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("availability cache version read failed", zap.Error(err))
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%d|%d|%d",
		req.ServiceType, req.Location.Address,
		req.Earliest.UnixNano(), req.Latest.UnixNano(),
		req.Duration, req.Priority)
	if req.PreferredProfessional != nil {
		fmt.Fprintf(&b, "|pref=%s", req.PreferredProfessional)
	}
	// A reschedule search sees through its own held booking, so it must not
	// share cache entries with plain searches over the same window.
	if req.ReschedulingOf != nil {
		fmt.Fprintf(&b, "|resched=%s", req.ReschedulingOf)
	}
	for i, p := range candidates {
		ver := "0"
		if s, okv := versions[i].(string); okv {
			ver = s
		}
		fmt.Fprintf(&b, "|%s@%s", p.ID, ver)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return "schedule:slots:" + hex.EncodeToString(sum[:16]), true
}

func versionKey(professionalID uuid.UUID) string {
	return fmt.Sprintf("schedule:slots:ver:%s", professionalID)
}
