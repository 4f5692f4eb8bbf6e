package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
)

// keyedLocker implements ProfessionalLocker with in-process mutexes keyed by
// professional id. Requests targeting different professionals never block
// each other. Suitable for single-instance deployments; multi-instance
// deployments use the redis slot-hold locker instead.
type keyedLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker creates an in-process per-professional locker.
func NewKeyedLocker() ProfessionalLocker {
	return &keyedLocker{locks: make(map[uuid.UUID]*lockEntry)}
}

// Acquire enters the professional's exclusive section, waiting at most the
// given bound. A timed-out acquire fails with a concurrent conflict so the
// caller's bounded retry can recompute against fresh state.
func (l *keyedLocker) Acquire(ctx context.Context, professionalID uuid.UUID, wait time.Duration) (func(), error) {
	entry := l.ref(professionalID)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.ch
				l.unref(professionalID)
			})
		}
		return release, nil
	case <-timer.C:
		l.unref(professionalID)
		return nil, errors.NewConcurrentConflictError("professional calendar is busy").
			WithDetails(map[string]interface{}{"professional_id": professionalID.String()})
	case <-ctx.Done():
		l.unref(professionalID)
		return nil, ctx.Err()
	}
}

func (l *keyedLocker) ref(id uuid.UUID) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (l *keyedLocker) unref(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, id)
	}
}
