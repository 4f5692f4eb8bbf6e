package policy

import (
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/infrastructure/config"
)

// Policy encodes the scheduling business rules as a pure function set.
// No method mutates state.
type Policy struct {
	cfg config.SchedulingConfig
}

// New creates a policy from the scheduling configuration.
func New(cfg config.SchedulingConfig) *Policy {
	return &Policy{cfg: cfg}
}

// Config exposes the underlying tunables.
func (p *Policy) Config() config.SchedulingConfig {
	return p.cfg
}

// IsWithinWorkingHours reports whether the interval lies fully inside one of
// the professional's open windows on its day. Overnight jobs are rejected
// unless explicitly allowed.
func (p *Policy) IsWithinWorkingHours(prof *schedule.Professional, window schedule.TimeWindow) bool {
	if p.cfg.AllowOvernight {
		// Overnight spans may cross a day boundary; check each day's
		// windows for partial containment instead.
		return p.overnightWithinHours(prof, window)
	}
	for _, open := range prof.Hours.WindowsFor(window.Start) {
		if open.Contains(window) {
			return true
		}
	}
	return false
}

func (p *Policy) overnightWithinHours(prof *schedule.Professional, window schedule.TimeWindow) bool {
	day := window.Start
	remaining := window
	for !remaining.Empty() {
		covered := false
		for _, open := range prof.Hours.WindowsFor(day) {
			clipped := remaining.Intersect(open)
			if clipped.Empty() {
				continue
			}
			if clipped.Start.Equal(remaining.Start) {
				remaining.Start = clipped.End
				covered = true
			}
		}
		if !covered {
			return false
		}
		day = day.AddDate(0, 0, 1)
	}
	return true
}

// IsWeatherAcceptable applies the weather gate. Emergency tier always
// passes. Normal tier fails on unsafe and passes with a warning on caution.
// The warning return is meaningful only when acceptable.
func (p *Policy) IsWeatherAcceptable(verdict schedule.WeatherSafetyVerdict, tier schedule.PriorityTier) (acceptable, warning bool) {
	if !p.cfg.WeatherGating || tier == schedule.TierEmergency {
		return true, false
	}
	switch verdict {
	case schedule.WeatherUnsafe:
		return false, false
	case schedule.WeatherCaution:
		return true, true
	default:
		return true, false
	}
}

// EmergencyOverride reports whether the request is allowed to bump a
// lower-priority tentative booking that blocks the only feasible slot.
// Confirmed normal bookings are never bumped without explicit reschedule
// consent; those cases surface as no availability and escalate to a
// dispatcher.
func (p *Policy) EmergencyOverride(req schedule.ServiceRequest) bool {
	return req.Priority == schedule.TierEmergency
}

// CanBump reports whether an emergency request may displace the given
// blocking interval.
func (p *Policy) CanBump(req schedule.ServiceRequest, blocking *schedule.BookingInterval) bool {
	if !p.EmergencyOverride(req) || blocking == nil {
		return false
	}
	return blocking.Status == schedule.StatusTentative && blocking.Priority == schedule.TierNormal
}

// MaxDailyJobs returns the effective daily cap for a professional.
func (p *Policy) MaxDailyJobs(prof *schedule.Professional) int {
	if prof != nil && prof.MaxDailyJobs > 0 {
		return prof.MaxDailyJobs
	}
	return p.cfg.MaxDailyJobs
}

// DailyCapReached reports whether a professional is excluded from candidate
// search for a day carrying the given booking count. Emergency tier may
// exceed the cap by exactly one job.
func (p *Policy) DailyCapReached(prof *schedule.Professional, booked int, tier schedule.PriorityTier) bool {
	cap := p.MaxDailyJobs(prof)
	if cap <= 0 {
		return false
	}
	if tier == schedule.TierEmergency {
		return booked >= cap+1
	}
	return booked >= cap
}
