package schedule_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

func TestNewBookingInterval(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		professionalID uuid.UUID
		start, end     time.Time
		tier           schedule.PriorityTier
		wantErr        bool
	}{
		{
			name:           "creates tentative interval",
			professionalID: uuid.New(),
			start:          start,
			end:            start.Add(2 * time.Hour),
			tier:           schedule.TierNormal,
		},
		{
			name:           "rejects nil professional",
			professionalID: uuid.Nil,
			start:          start,
			end:            start.Add(time.Hour),
			tier:           schedule.TierNormal,
			wantErr:        true,
		},
		{
			name:           "rejects end before start",
			professionalID: uuid.New(),
			start:          start,
			end:            start.Add(-time.Hour),
			tier:           schedule.TierNormal,
			wantErr:        true,
		},
		{
			name:           "rejects zero-length window",
			professionalID: uuid.New(),
			start:          start,
			end:            start,
			tier:           schedule.TierEmergency,
			wantErr:        true,
		},
		{
			name:           "rejects unknown tier",
			professionalID: uuid.New(),
			start:          start,
			end:            start.Add(time.Hour),
			tier:           schedule.PriorityTier(42),
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := schedule.NewBookingInterval(tt.professionalID, uuid.New(), tt.start, tt.end, schedule.Location{}, tt.tier)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, schedule.StatusTentative, b.Status)
			assert.NotEqual(t, uuid.Nil, b.ID)
		})
	}
}

func TestBookingInterval_Transitions(t *testing.T) {
	mockClock := &schedule.MockClock{CurrentTime: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	schedule.SetClock(mockClock)
	defer schedule.ResetClock()

	b, err := schedule.NewBookingInterval(uuid.New(), uuid.New(),
		mockClock.CurrentTime.Add(time.Hour), mockClock.CurrentTime.Add(3*time.Hour),
		schedule.Location{}, schedule.TierNormal)
	require.NoError(t, err)
	created := b.UpdatedAt

	mockClock.Advance(time.Minute)
	b.Confirm()
	assert.Equal(t, schedule.StatusConfirmed, b.Status)
	assert.True(t, b.UpdatedAt.After(created))
	assert.True(t, b.Active())

	b.MarkTentative()
	assert.Equal(t, schedule.StatusTentative, b.Status)
	assert.True(t, b.Active())

	b.Cancel()
	assert.Equal(t, schedule.StatusCancelled, b.Status)
	assert.False(t, b.Active())
}

func TestBookingInterval_BufferedWindow(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	b, err := schedule.NewBookingInterval(uuid.New(), uuid.New(), start, start.Add(2*time.Hour), schedule.Location{}, schedule.TierNormal)
	require.NoError(t, err)

	buffered := b.BufferedWindow(15 * time.Minute)
	assert.Equal(t, start.Add(-15*time.Minute), buffered.Start)
	assert.Equal(t, start.Add(2*time.Hour+15*time.Minute), buffered.End)

	// Zero buffer returns the raw window.
	assert.Equal(t, b.Window(), b.BufferedWindow(0))
}

func TestBookingInterval_SameDay(t *testing.T) {
	start := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	b, err := schedule.NewBookingInterval(uuid.New(), uuid.New(), start, start.Add(2*time.Hour), schedule.Location{}, schedule.TierNormal)
	require.NoError(t, err)

	assert.True(t, b.SameDay(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	// The booking runs past midnight but starts on March 2.
	assert.False(t, b.SameDay(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
}

func TestGeoPoint_DistanceKm(t *testing.T) {
	// Paris to London is roughly 344 km great-circle.
	paris := schedule.GeoPoint{Latitude: 48.8566, Longitude: 2.3522}
	london := schedule.GeoPoint{Latitude: 51.5074, Longitude: -0.1278}

	d := paris.DistanceKm(london)
	assert.InDelta(t, 344, d, 5)
	assert.InDelta(t, d, london.DistanceKm(paris), 0.001)
	assert.Zero(t, paris.DistanceKm(paris))
}

func TestServiceRequest_Validate(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	valid := schedule.ServiceRequest{
		ServiceType: "hvac",
		Earliest:    base,
		Latest:      base.Add(8 * time.Hour),
		Duration:    2 * time.Hour,
		Priority:    schedule.TierNormal,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *schedule.ServiceRequest)
	}{
		{"zero duration", func(r *schedule.ServiceRequest) { r.Duration = 0 }},
		{"latest before earliest", func(r *schedule.ServiceRequest) { r.Latest = base.Add(-time.Hour) }},
		{"window shorter than duration", func(r *schedule.ServiceRequest) { r.Latest = base.Add(time.Hour) }},
		{"invalid tier", func(r *schedule.ServiceRequest) { r.Priority = schedule.PriorityTier(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}
