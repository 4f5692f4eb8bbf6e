package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/config"
	"github.com/fieldserve/scheduling-backend/internal/service/availability"
	"github.com/fieldserve/scheduling-backend/internal/service/policy"
)

type fakeCalendar struct {
	intervals map[uuid.UUID][]*schedule.BookingInterval
}

func (f *fakeCalendar) ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, window schedule.TimeWindow) ([]*schedule.BookingInterval, error) {
	var out []*schedule.BookingInterval
	for _, b := range f.intervals[professionalID] {
		if b.Active() && b.Window().Overlaps(window) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeTravel struct {
	duration time.Duration
}

func (f fakeTravel) EstimateTravel(ctx context.Context, origin, dest schedule.GeoPoint) (availability.TravelEstimate, error) {
	return availability.TravelEstimate{Duration: f.duration, DistanceKm: origin.DistanceKm(dest)}, nil
}

var siteA = schedule.Location{Address: "12 Oak St", Coordinate: schedule.GeoPoint{Latitude: 40.0, Longitude: -75.0}}

func newProfessional(t *testing.T, name string) *schedule.Professional {
	t.Helper()
	p, err := schedule.NewProfessional(uuid.New(), name, siteA, schedule.UniformHours(8*60, 18*60))
	require.NoError(t, err)
	return p
}

func schedulingConfig() config.SchedulingConfig {
	return config.SchedulingConfig{
		BufferMinutes:       0,
		MaxDailyJobs:        0,
		SearchWindowDays:    7,
		TimeProximityWeight: 1.0,
		TravelBurdenWeight:  1.0,
	}
}

func newEngine(cal *fakeCalendar, travel fakeTravel, cfg config.SchedulingConfig) availability.Engine {
	return availability.NewEngine(cal, travel, policy.New(cfg), nil)
}

func TestFindSlots_GapWalk(t *testing.T) {
	prof := newProfessional(t, "Ada")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday

	booked, err := schedule.NewBookingInterval(prof.ID, uuid.New(),
		day.Add(10*time.Hour), day.Add(12*time.Hour), siteA, schedule.TierNormal)
	require.NoError(t, err)
	booked.Confirm()

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{
		prof.ID: {booked},
	}}
	engine := newEngine(cal, fakeTravel{duration: 15 * time.Minute}, schedulingConfig())

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.Add(18 * time.Hour),
		Duration:    2 * time.Hour,
		Priority:    schedule.TierNormal,
	}

	slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	// The morning gap (8:00-10:00) cannot hold travel in, two hours of work,
	// and travel out to the 10:00 job. The first feasible slot starts after
	// the existing job plus 15 minutes of travel.
	first := slots[0]
	assert.Equal(t, day.Add(12*time.Hour+15*time.Minute), first.Start)
	assert.Equal(t, day.Add(14*time.Hour+15*time.Minute), first.End)
	assert.Equal(t, 15*time.Minute, first.TravelIn)
	assert.Equal(t, time.Duration(0), first.TravelOut)

	// No slot may overlap the existing booking.
	for _, s := range slots {
		assert.False(t, s.Window().Overlaps(booked.Window()),
			"slot %v overlaps existing booking", s.Window())
	}
}

func TestFindSlots_EmptyCalendarStartsAtOpen(t *testing.T) {
	prof := newProfessional(t, "Ada")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{}}
	engine := newEngine(cal, fakeTravel{duration: 10 * time.Minute}, schedulingConfig())

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.Add(18 * time.Hour),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, day.Add(8*time.Hour+10*time.Minute), slots[0].Start)
}

func TestFindSlots_DeterministicOrdering(t *testing.T) {
	profA := newProfessional(t, "Ada")
	profB := newProfessional(t, "Brin")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Brin already has a morning job, so her first gap starts later and
	// scores worse on time proximity.
	busy, err := schedule.NewBookingInterval(profB.ID, uuid.New(),
		day.Add(8*time.Hour), day.Add(11*time.Hour), siteA, schedule.TierNormal)
	require.NoError(t, err)
	busy.Confirm()

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{
		profB.ID: {busy},
	}}
	engine := newEngine(cal, fakeTravel{duration: 0}, schedulingConfig())

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.Add(18 * time.Hour),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	candidates := []*schedule.Professional{profB, profA}
	slots, err := engine.FindSlots(context.Background(), req, candidates)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(slots), 2)

	assert.Equal(t, profA.ID, slots[0].ProfessionalID)
	assert.True(t, slots[0].Score <= slots[1].Score)

	// The ordering is stable across candidate order.
	again, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{profA, profB})
	require.NoError(t, err)
	assert.Equal(t, slots, again)
}

func TestFindSlots_Eligibility(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{}}
	engine := newEngine(cal, fakeTravel{}, schedulingConfig())

	req := schedule.ServiceRequest{
		ServiceType: "electrical",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.Add(18 * time.Hour),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	t.Run("skill mismatch excluded", func(t *testing.T) {
		prof := newProfessional(t, "Ada")
		prof.Skills = []string{"plumbing"}
		slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("emergency-only excluded from normal tier", func(t *testing.T) {
		prof := newProfessional(t, "Ada")
		prof.EmergencyOnly = true
		slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
		require.NoError(t, err)
		assert.Empty(t, slots)

		emergency := req
		emergency.Priority = schedule.TierEmergency
		slots, err = engine.FindSlots(context.Background(), emergency, []*schedule.Professional{prof})
		require.NoError(t, err)
		assert.NotEmpty(t, slots)
	})

	t.Run("preferred professional filters the rest", func(t *testing.T) {
		profA := newProfessional(t, "Ada")
		profB := newProfessional(t, "Brin")
		preferred := req
		preferred.PreferredProfessional = &profA.ID

		slots, err := engine.FindSlots(context.Background(), preferred, []*schedule.Professional{profA, profB})
		require.NoError(t, err)
		require.NotEmpty(t, slots)
		for _, s := range slots {
			assert.Equal(t, profA.ID, s.ProfessionalID)
		}
	})
}

func TestFindSlots_DailyCap(t *testing.T) {
	prof := newProfessional(t, "Ada")
	prof.MaxDailyJobs = 1
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	booked, err := schedule.NewBookingInterval(prof.ID, uuid.New(),
		day.Add(9*time.Hour), day.Add(10*time.Hour), siteA, schedule.TierNormal)
	require.NoError(t, err)
	booked.Confirm()

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{
		prof.ID: {booked},
	}}
	cfg := schedulingConfig()
	cfg.MaxDailyJobs = 6
	engine := newEngine(cal, fakeTravel{}, cfg)

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.Add(18 * time.Hour),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
	require.NoError(t, err)
	assert.Empty(t, slots, "capped day must yield no normal-tier slots")

	emergency := req
	emergency.Priority = schedule.TierEmergency
	slots, err = engine.FindSlots(context.Background(), emergency, []*schedule.Professional{prof})
	require.NoError(t, err)
	assert.NotEmpty(t, slots, "emergency tier may exceed the cap by one")
}

func TestFindSlots_DailyCapCountsWholeDay(t *testing.T) {
	prof := newProfessional(t, "Ada")
	prof.MaxDailyJobs = 2
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Two morning jobs fill the cap; neither overlaps the afternoon search
	// window, so the cap must be counted over the whole day, not just the
	// requested hours.
	first, err := schedule.NewBookingInterval(prof.ID, uuid.New(),
		day.Add(8*time.Hour), day.Add(9*time.Hour), siteA, schedule.TierNormal)
	require.NoError(t, err)
	first.Confirm()
	second, err := schedule.NewBookingInterval(prof.ID, uuid.New(),
		day.Add(9*time.Hour+30*time.Minute), day.Add(10*time.Hour+30*time.Minute), siteA, schedule.TierNormal)
	require.NoError(t, err)
	second.Confirm()

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{
		prof.ID: {first, second},
	}}
	cfg := schedulingConfig()
	cfg.MaxDailyJobs = 6
	engine := newEngine(cal, fakeTravel{}, cfg)

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(14 * time.Hour),
		Latest:      day.Add(17 * time.Hour),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
	require.NoError(t, err)
	assert.Empty(t, slots, "an afternoon-only search must still see the morning jobs against the cap")

	emergency := req
	emergency.Priority = schedule.TierEmergency
	slots, err = engine.FindSlots(context.Background(), emergency, []*schedule.Professional{prof})
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
}

func TestFindSlots_RescheduleSeesThroughHeldBooking(t *testing.T) {
	prof := newProfessional(t, "Ada")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// The booking being moved holds the whole day tentative.
	held, err := schedule.NewBookingInterval(prof.ID, uuid.New(),
		day.Add(8*time.Hour), day.Add(18*time.Hour), siteA, schedule.TierNormal)
	require.NoError(t, err)

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{
		prof.ID: {held},
	}}
	engine := newEngine(cal, fakeTravel{}, schedulingConfig())

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.Add(18 * time.Hour),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
	require.NoError(t, err)
	assert.Empty(t, slots, "a plain normal-tier search must treat the hold as booked")

	resched := req
	resched.ReschedulingOf = &held.ID
	slots, err = engine.FindSlots(context.Background(), resched, []*schedule.Professional{prof})
	require.NoError(t, err)
	require.NotEmpty(t, slots, "the replacement search must reuse the held booking's own slot")
	assert.Equal(t, day.Add(8*time.Hour), slots[0].Start)
}

func TestFindSlots_EmergencySeesThroughTentative(t *testing.T) {
	prof := newProfessional(t, "Ada")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// The whole working day is held tentatively at normal tier.
	held, err := schedule.NewBookingInterval(prof.ID, uuid.New(),
		day.Add(8*time.Hour), day.Add(18*time.Hour), siteA, schedule.TierNormal)
	require.NoError(t, err)

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{
		prof.ID: {held},
	}}
	engine := newEngine(cal, fakeTravel{}, schedulingConfig())

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.Add(18 * time.Hour),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
	require.NoError(t, err)
	assert.Empty(t, slots, "normal tier must not see bumpable slots")

	emergency := req
	emergency.Priority = schedule.TierEmergency
	slots, err = engine.FindSlots(context.Background(), emergency, []*schedule.Professional{prof})
	require.NoError(t, err)
	require.NotEmpty(t, slots, "emergency tier searches through tentative holds")
	assert.Equal(t, day.Add(8*time.Hour), slots[0].Start)
}

func TestFindSlots_SearchWindowBound(t *testing.T) {
	prof := newProfessional(t, "Ada")
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	cal := &fakeCalendar{intervals: map[uuid.UUID][]*schedule.BookingInterval{}}
	cfg := schedulingConfig()
	cfg.SearchWindowDays = 2
	engine := newEngine(cal, fakeTravel{}, cfg)

	req := schedule.ServiceRequest{
		ServiceType: "hvac",
		Location:    siteA,
		Earliest:    day.Add(8 * time.Hour),
		Latest:      day.AddDate(0, 0, 30),
		Duration:    time.Hour,
		Priority:    schedule.TierNormal,
	}

	slots, err := engine.FindSlots(context.Background(), req, []*schedule.Professional{prof})
	require.NoError(t, err)
	horizon := req.Earliest.AddDate(0, 0, 2)
	for _, s := range slots {
		assert.False(t, s.End.After(horizon.Add(24*time.Hour)),
			"slot %v beyond the search horizon", s.Start)
	}
}

func TestFindSlots_InvalidRequest(t *testing.T) {
	engine := newEngine(&fakeCalendar{}, fakeTravel{}, schedulingConfig())
	_, err := engine.FindSlots(context.Background(), schedule.ServiceRequest{}, nil)
	require.Error(t, err)
}
