package availability

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/service/policy"
)

// engine implements the Engine interface
type engine struct {
	calendar CalendarReader
	travel   TravelEstimator
	pol      *policy.Policy
	logger   *slog.Logger
}

// NewEngine creates a new availability engine
func NewEngine(calendar CalendarReader, travel TravelEstimator, pol *policy.Policy, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &engine{
		calendar: calendar,
		travel:   travel,
		pol:      pol,
		logger:   logger,
	}
}

// freeGap is a contiguous unbooked span inside one working-hours window,
// with the bookings that bound it on either side (nil at the edges).
type freeGap struct {
	window schedule.TimeWindow
	prev   *schedule.BookingInterval
	next   *schedule.BookingInterval
}

// FindSlots walks each candidate's working-hours windows inside the request
// window, subtracts buffer-expanded active bookings, and keeps gaps large
// enough to hold travel in, the service itself, and travel out.
func (e *engine) FindSlots(ctx context.Context, req schedule.ServiceRequest, candidates []*schedule.Professional) ([]schedule.TimeSlot, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewValidationError("INVALID_REQUEST", err.Error()).WithCause(err)
	}

	// Bound the walk so an open-ended request cannot scan unbounded days.
	latest := req.Latest
	if horizon := req.Earliest.AddDate(0, 0, e.pol.Config().SearchWindowDays); latest.After(horizon) {
		latest = horizon
	}

	var slots []schedule.TimeSlot
	for _, prof := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.eligible(req, prof) {
			continue
		}

		profSlots, err := e.slotsForProfessional(ctx, req, prof, latest)
		if err != nil {
			return nil, err
		}
		slots = append(slots, profSlots...)
	}

	sortSlots(slots)
	return slots, nil
}

func (e *engine) eligible(req schedule.ServiceRequest, prof *schedule.Professional) bool {
	if req.PreferredProfessional != nil && *req.PreferredProfessional != prof.ID {
		return false
	}
	if prof.EmergencyOnly && req.Priority != schedule.TierEmergency {
		return false
	}
	return prof.HasSkill(req.ServiceType)
}

func (e *engine) slotsForProfessional(ctx context.Context, req schedule.ServiceRequest, prof *schedule.Professional, latest time.Time) ([]schedule.TimeSlot, error) {
	buffer := e.pol.Config().Buffer()

	// One calendar read covers the whole search window, expanded to full
	// days so the daily-cap count sees bookings outside the requested hours,
	// and by buffer so bookings just outside the window still shrink edge
	// gaps.
	fetchWindow := schedule.TimeWindow{
		Start: startOfDay(req.Earliest),
		End:   startOfDay(latest).AddDate(0, 0, 1),
	}
	if s := req.Earliest.Add(-buffer); s.Before(fetchWindow.Start) {
		fetchWindow.Start = s
	}
	if end := latest.Add(buffer); end.After(fetchWindow.End) {
		fetchWindow.End = end
	}
	booked, err := e.calendar.ListActiveIntervals(ctx, prof.ID, fetchWindow)
	if err != nil {
		return nil, errors.NewInternalError("failed to read calendar").WithCause(err)
	}
	booked = dropReplaced(req, booked)

	var slots []schedule.TimeSlot
	for day := startOfDay(req.Earliest); !day.After(latest); day = day.AddDate(0, 0, 1) {
		if !e.dayOpenFor(req, prof, booked, day) {
			continue
		}
		for _, window := range prof.Hours.WindowsFor(day) {
			clipped := window.Intersect(schedule.TimeWindow{Start: req.Earliest, End: latest})
			if clipped.Empty() || clipped.Duration() < req.Duration {
				continue
			}
			for _, gap := range carveGaps(clipped, e.blocking(req, booked), buffer) {
				slot, ok := e.fitSlot(ctx, req, prof, gap)
				if ok {
					slots = append(slots, slot)
				}
			}
		}
	}
	return slots, nil
}

// dropReplaced removes the booking a reschedule holds tentative: the slot it
// occupies is exactly what the replacement search is trying to reuse, and it
// must not count toward the daily cap either.
func dropReplaced(req schedule.ServiceRequest, booked []*schedule.BookingInterval) []*schedule.BookingInterval {
	if req.ReschedulingOf == nil {
		return booked
	}
	out := make([]*schedule.BookingInterval, 0, len(booked))
	for _, b := range booked {
		if req.Excludes(b.ID) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// blocking drops bookings the request is allowed to bump, so an emergency
// search can propose slots held by tentative normal bookings. The actual
// bump happens at reservation time, inside the professional's lock.
func (e *engine) blocking(req schedule.ServiceRequest, booked []*schedule.BookingInterval) []*schedule.BookingInterval {
	out := make([]*schedule.BookingInterval, 0, len(booked))
	for _, b := range booked {
		if e.pol.CanBump(req, b) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// dayOpenFor applies the daily job cap. Emergency tier may exceed the cap by
// exactly one job; the override is logged for audit.
func (e *engine) dayOpenFor(req schedule.ServiceRequest, prof *schedule.Professional, booked []*schedule.BookingInterval, day time.Time) bool {
	count := 0
	for _, b := range booked {
		if b.Active() && b.SameDay(day) {
			count++
		}
	}
	if e.pol.DailyCapReached(prof, count, req.Priority) {
		return false
	}
	if cap := e.pol.MaxDailyJobs(prof); cap > 0 && req.Priority == schedule.TierEmergency && count >= cap {
		e.logger.Warn("emergency override of daily job cap",
			"audit", "daily_cap_override",
			"professional_id", prof.ID,
			"day", day.Format("2006-01-02"),
			"booked", count,
			"cap", e.pol.MaxDailyJobs(prof))
	}
	return true
}

// carveGaps subtracts buffer-expanded bookings from a working window and
// returns the remaining free gaps with their neighboring bookings.
func carveGaps(window schedule.TimeWindow, booked []*schedule.BookingInterval, buffer time.Duration) []freeGap {
	active := make([]*schedule.BookingInterval, 0, len(booked))
	for _, b := range booked {
		if b.Active() && b.BufferedWindow(buffer).Overlaps(window) {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].StartTime.Before(active[j].StartTime)
	})

	var gaps []freeGap
	cursor := window.Start
	var prev *schedule.BookingInterval
	for _, b := range active {
		buffered := b.BufferedWindow(buffer)
		if buffered.Start.After(cursor) {
			end := buffered.Start
			if end.After(window.End) {
				end = window.End
			}
			gaps = append(gaps, freeGap{
				window: schedule.TimeWindow{Start: cursor, End: end},
				prev:   prev,
				next:   b,
			})
		}
		if buffered.End.After(cursor) {
			cursor = buffered.End
		}
		prev = b
	}
	if cursor.Before(window.End) {
		gaps = append(gaps, freeGap{
			window: schedule.TimeWindow{Start: cursor, End: window.End},
			prev:   prev,
		})
	}
	return gaps
}

// fitSlot checks whether a gap can hold travel in, the service, and travel
// out, and scores the resulting slot.
func (e *engine) fitSlot(ctx context.Context, req schedule.ServiceRequest, prof *schedule.Professional, gap freeGap) (schedule.TimeSlot, bool) {
	if gap.window.Duration() < req.Duration {
		return schedule.TimeSlot{}, false
	}

	origin := prof.BaseLocation
	if gap.prev != nil {
		origin = gap.prev.Location
	}
	travelIn := e.estimate(ctx, origin, req.Location)

	var travelOut time.Duration
	if gap.next != nil {
		travelOut = e.estimate(ctx, req.Location, gap.next.Location)
	}

	required := travelIn + req.Duration + travelOut
	if gap.window.Duration() < required {
		return schedule.TimeSlot{}, false
	}

	start := gap.window.Start.Add(travelIn)
	end := start.Add(req.Duration)
	slack := gap.window.Duration() - required

	return schedule.TimeSlot{
		ProfessionalID: prof.ID,
		Start:          start,
		End:            end,
		TravelIn:       travelIn,
		TravelOut:      travelOut,
		Score:          e.score(req, start, travelIn+travelOut),
		Confidence:     confidence(slack, req.Duration),
	}, true
}

// estimate returns the travel duration for one leg. Estimator failures are
// logged and treated as zero travel rather than failing the search.
func (e *engine) estimate(ctx context.Context, from, to schedule.Location) time.Duration {
	if from.Coordinate.IsZero() || to.Coordinate.IsZero() {
		return 0
	}
	est, err := e.travel.EstimateTravel(ctx, from.Coordinate, to.Coordinate)
	if err != nil {
		e.logger.Warn("travel estimate unavailable, assuming zero travel",
			"from", from.Address, "to", to.Address, "error", err)
		return 0
	}
	if est.Degraded {
		e.logger.Debug("travel estimate degraded to straight-line",
			"from", from.Address, "to", to.Address)
	}
	return est.Duration
}

// score combines proximity to the requested earliest time with the travel
// burden the slot adds; lower is better. Weights are policy-tunable.
func (e *engine) score(req schedule.ServiceRequest, start time.Time, travel time.Duration) float64 {
	cfg := e.pol.Config()
	wait := start.Sub(req.Earliest)
	return cfg.TimeProximityWeight*wait.Minutes() + cfg.TravelBurdenWeight*travel.Minutes()
}

// confidence maps gap slack to [0, 1]: a slot with slack of at least one
// service duration is fully confident, a zero-slack slot barely fits.
func confidence(slack, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	if slack >= duration {
		return 1.0
	}
	return float64(slack) / float64(duration)
}

// sortSlots orders by score, then earliest start, then professional id, so
// equal-score results are deterministic.
func sortSlots(slots []schedule.TimeSlot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Score != slots[j].Score {
			return slots[i].Score < slots[j].Score
		}
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return strings.Compare(slots[i].ProfessionalID.String(), slots[j].ProfessionalID.String()) < 0
	})
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
