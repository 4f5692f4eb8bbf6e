package conflict_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/service/conflict"
)

func interval(t *testing.T, prof uuid.UUID, start time.Time, d time.Duration, status schedule.Status) *schedule.BookingInterval {
	t.Helper()
	b, err := schedule.NewBookingInterval(prof, uuid.New(), start, start.Add(d), schedule.Location{}, schedule.TierNormal)
	require.NoError(t, err)
	b.Status = status
	return b
}

func TestDetector_Check(t *testing.T) {
	prof := uuid.New()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	buffer := 15 * time.Minute

	existing := interval(t, prof, base, 2*time.Hour, schedule.StatusConfirmed) // 10:00-12:00

	tests := []struct {
		name     string
		proposed *schedule.BookingInterval
		want     conflict.Kind
	}{
		{
			name:     "overlapping interval conflicts",
			proposed: interval(t, prof, base.Add(time.Hour), time.Hour, schedule.StatusTentative),
			want:     conflict.KindTimeOverlap,
		},
		{
			name:     "inside the buffer zone conflicts",
			proposed: interval(t, prof, base.Add(2*time.Hour+5*time.Minute), time.Hour, schedule.StatusTentative),
			want:     conflict.KindTimeOverlap,
		},
		{
			name:     "exactly one buffer after is free",
			proposed: interval(t, prof, base.Add(2*time.Hour+buffer), time.Hour, schedule.StatusTentative),
			want:     conflict.KindNone,
		},
		{
			name:     "different professional never conflicts",
			proposed: interval(t, uuid.New(), base.Add(time.Hour), time.Hour, schedule.StatusTentative),
			want:     conflict.KindNone,
		},
	}

	d := conflict.NewDetector(buffer, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Check(tt.proposed, []*schedule.BookingInterval{existing})
			assert.Equal(t, tt.want, res.Kind)
			if tt.want != conflict.KindNone {
				assert.Equal(t, existing.ID, res.ConflictingID)
				assert.Same(t, existing, res.Conflicting)
			}
		})
	}

	t.Run("cancelled intervals are ignored", func(t *testing.T) {
		cancelled := interval(t, prof, base, 2*time.Hour, schedule.StatusCancelled)
		proposed := interval(t, prof, base.Add(time.Hour), time.Hour, schedule.StatusTentative)
		assert.True(t, d.Check(proposed, []*schedule.BookingInterval{cancelled}).OK())
	})

	t.Run("re-checking an interval against itself passes", func(t *testing.T) {
		assert.True(t, d.Check(existing, []*schedule.BookingInterval{existing}).OK())
	})
}

type fixedRegistry struct {
	claims map[uuid.UUID][]string
}

func (f fixedRegistry) ClaimedBy(b *schedule.BookingInterval) []string {
	return f.claims[b.ID]
}

func TestDetector_ResourceConflicts(t *testing.T) {
	prof := uuid.New()
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	// Same crane claimed by another professional's overlapping job.
	other := interval(t, uuid.New(), base, 2*time.Hour, schedule.StatusConfirmed)
	proposed := interval(t, prof, base.Add(time.Hour), time.Hour, schedule.StatusTentative)

	registry := fixedRegistry{claims: map[uuid.UUID][]string{
		other.ID:    {"crane-1"},
		proposed.ID: {"crane-1"},
	}}

	d := conflict.NewDetector(0, registry)
	res := d.Check(proposed, []*schedule.BookingInterval{other})
	assert.Equal(t, conflict.KindResource, res.Kind)
	assert.Equal(t, other.ID, res.ConflictingID)

	t.Run("disjoint windows share the resource freely", func(t *testing.T) {
		later := interval(t, prof, base.Add(5*time.Hour), time.Hour, schedule.StatusTentative)
		registry.claims[later.ID] = []string{"crane-1"}
		assert.True(t, d.Check(later, []*schedule.BookingInterval{other}).OK())
	})
}
