package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Professional is a field technician whose calendar the scheduling core owns.
// The linked user identity is owned externally and referenced by id only.
type Professional struct {
	ID           uuid.UUID    `json:"id"`
	UserID       uuid.UUID    `json:"user_id"`
	Name         string       `json:"name"`
	BaseLocation Location     `json:"base_location"`
	Hours        WorkingHours `json:"working_hours"`
	Skills       []string     `json:"skills,omitempty"`

	// EmergencyOnly professionals are excluded from normal-tier searches.
	EmergencyOnly bool `json:"emergency_only"`

	// MaxDailyJobs overrides the policy default when > 0.
	MaxDailyJobs int `json:"max_daily_jobs,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProfessional creates a professional with a validated working-hours profile.
func NewProfessional(userID uuid.UUID, name string, base Location, hours WorkingHours) (*Professional, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID cannot be nil")
	}
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if err := hours.Validate(); err != nil {
		return nil, fmt.Errorf("invalid working hours: %w", err)
	}

	now := clock.Now()
	return &Professional{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		BaseLocation: base,
		Hours:        hours,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasSkill reports whether the professional carries the given service tag.
// An empty skill list means the professional accepts any service type.
func (p *Professional) HasSkill(skill string) bool {
	if len(p.Skills) == 0 {
		return true
	}
	for _, s := range p.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// DayProfile is the open/close schedule for one weekday, in minutes from
// midnight local time. A zero-valued profile means the day is closed.
type DayProfile struct {
	OpenMinute  int `json:"open_minute"`
	CloseMinute int `json:"close_minute"`

	// Optional midday break carved out of the open window.
	BreakStartMinute int `json:"break_start_minute,omitempty"`
	BreakEndMinute   int `json:"break_end_minute,omitempty"`
}

// Closed reports whether the day has no open window.
func (d DayProfile) Closed() bool {
	return d.OpenMinute == 0 && d.CloseMinute == 0
}

// HasBreak reports whether a midday break is configured.
func (d DayProfile) HasBreak() bool {
	return d.BreakEndMinute > d.BreakStartMinute
}

// WorkingHours maps each weekday to its open/close profile.
type WorkingHours struct {
	Days map[time.Weekday]DayProfile `json:"days"`
}

// Validate checks internal consistency of every configured day.
func (w WorkingHours) Validate() error {
	for day, profile := range w.Days {
		if profile.Closed() {
			continue
		}
		if profile.OpenMinute < 0 || profile.CloseMinute > 24*60 {
			return fmt.Errorf("%s: window outside the day", day)
		}
		if profile.CloseMinute <= profile.OpenMinute {
			return fmt.Errorf("%s: close %d not after open %d", day, profile.CloseMinute, profile.OpenMinute)
		}
		if profile.HasBreak() {
			if profile.BreakStartMinute < profile.OpenMinute || profile.BreakEndMinute > profile.CloseMinute {
				return fmt.Errorf("%s: break outside open window", day)
			}
		}
	}
	return nil
}

// TimeWindow is a half-open [Start, End) span of wall-clock time.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the window length.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether the other window lies fully inside this one.
func (w TimeWindow) Contains(other TimeWindow) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// Overlaps reports whether two half-open windows intersect.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Intersect clips the window to the given bounds. The returned window may be
// empty (End not after Start) when there is no intersection.
func (w TimeWindow) Intersect(bounds TimeWindow) TimeWindow {
	out := w
	if bounds.Start.After(out.Start) {
		out.Start = bounds.Start
	}
	if bounds.End.Before(out.End) {
		out.End = bounds.End
	}
	return out
}

// Empty reports whether the window has no positive duration.
func (w TimeWindow) Empty() bool {
	return !w.End.After(w.Start)
}

// WindowsFor instantiates the open windows for a calendar day, splitting
// around the midday break when one is configured. Slots never cross these
// boundaries unless policy explicitly allows overnight jobs.
func (w WorkingHours) WindowsFor(day time.Time) []TimeWindow {
	profile, ok := w.Days[day.Weekday()]
	if !ok || profile.Closed() {
		return nil
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	open := midnight.Add(time.Duration(profile.OpenMinute) * time.Minute)
	close := midnight.Add(time.Duration(profile.CloseMinute) * time.Minute)

	if !profile.HasBreak() {
		return []TimeWindow{{Start: open, End: close}}
	}

	breakStart := midnight.Add(time.Duration(profile.BreakStartMinute) * time.Minute)
	breakEnd := midnight.Add(time.Duration(profile.BreakEndMinute) * time.Minute)

	windows := make([]TimeWindow, 0, 2)
	if breakStart.After(open) {
		windows = append(windows, TimeWindow{Start: open, End: breakStart})
	}
	if close.After(breakEnd) {
		windows = append(windows, TimeWindow{Start: breakEnd, End: close})
	}
	return windows
}

// UniformHours builds a profile with the same open/close window every day of
// the week. Convenience for configuration and tests.
func UniformHours(openMinute, closeMinute int) WorkingHours {
	days := make(map[time.Weekday]DayProfile, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		days[d] = DayProfile{OpenMinute: openMinute, CloseMinute: closeMinute}
	}
	return WorkingHours{Days: days}
}
