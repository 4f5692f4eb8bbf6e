package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ServiceRequest describes the job a caller wants scheduled.
type ServiceRequest struct {
	ServiceType string       `json:"service_type"`
	Location    Location     `json:"location"`
	Earliest    time.Time    `json:"earliest"`
	Latest      time.Time    `json:"latest"`
	Duration    time.Duration `json:"duration"`
	Priority    PriorityTier `json:"priority"`

	// PreferredProfessional restricts the candidate search when set.
	PreferredProfessional *uuid.UUID `json:"preferred_professional,omitempty"`

	// JobID links the booking to the externally owned job record.
	JobID uuid.UUID `json:"job_id"`

	// ReschedulingOf names the booking this request replaces. The interval
	// it holds neither blocks the search nor counts toward conflict and
	// daily-cap checks. Set internally by the reschedule flow, never by
	// callers.
	ReschedulingOf *uuid.UUID `json:"-"`
}

// Excludes reports whether the given booking is the one this request is
// replacing.
func (r ServiceRequest) Excludes(id uuid.UUID) bool {
	return r.ReschedulingOf != nil && *r.ReschedulingOf == id
}

// Validate checks the request is internally consistent.
func (r ServiceRequest) Validate() error {
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if !r.Latest.After(r.Earliest) {
		return fmt.Errorf("latest %s not after earliest %s", r.Latest, r.Earliest)
	}
	if r.Latest.Sub(r.Earliest) < r.Duration {
		return fmt.Errorf("window shorter than requested duration")
	}
	switch r.Priority {
	case TierNormal, TierEmergency:
	default:
		return fmt.Errorf("invalid priority tier")
	}
	return nil
}

// Window returns the acceptable time window for the job.
func (r ServiceRequest) Window() TimeWindow {
	return TimeWindow{Start: r.Earliest, End: r.Latest}
}

// TimeSlot is a candidate bookable window for one professional. Derived,
// never persisted.
type TimeSlot struct {
	ProfessionalID uuid.UUID     `json:"professional_id"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	TravelIn       time.Duration `json:"travel_in"`
	TravelOut      time.Duration `json:"travel_out"`

	// Score ranks candidates; lower sorts first.
	Score float64 `json:"score"`

	// Confidence reflects how tightly the slot fits around existing
	// bookings and travel buffers, in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Window returns the slot's service span.
func (s TimeSlot) Window() TimeWindow {
	return TimeWindow{Start: s.Start, End: s.End}
}
