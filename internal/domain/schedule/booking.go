package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookingInterval is a reserved span on one professional's calendar.
// Created by the booking orchestrator, mutated only through the reschedule
// coordinator or cancellation.
type BookingInterval struct {
	ID             uuid.UUID    `json:"id"`
	ProfessionalID uuid.UUID    `json:"professional_id"`
	JobID          uuid.UUID    `json:"job_id"`
	StartTime      time.Time    `json:"start_time"`
	EndTime        time.Time    `json:"end_time"`
	Location       Location     `json:"location"`
	Priority       PriorityTier `json:"priority"`
	Status         Status       `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Status int

const (
	StatusTentative Status = iota
	StatusConfirmed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusTentative:
		return "tentative"
	case StatusConfirmed:
		return "confirmed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type PriorityTier int

const (
	TierNormal PriorityTier = iota
	TierEmergency
)

func (t PriorityTier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// NewBookingInterval creates a tentative interval for a professional's calendar.
func NewBookingInterval(professionalID, jobID uuid.UUID, start, end time.Time, loc Location, tier PriorityTier) (*BookingInterval, error) {
	if professionalID == uuid.Nil {
		return nil, fmt.Errorf("professional ID cannot be nil")
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end %s not after start %s", end, start)
	}
	switch tier {
	case TierNormal, TierEmergency:
	default:
		return nil, fmt.Errorf("invalid priority tier")
	}

	now := clock.Now()
	return &BookingInterval{
		ID:             uuid.New(),
		ProfessionalID: professionalID,
		JobID:          jobID,
		StartTime:      start,
		EndTime:        end,
		Location:       loc,
		Priority:       tier,
		Status:         StatusTentative,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Confirm marks the interval as confirmed.
func (b *BookingInterval) Confirm() {
	b.Status = StatusConfirmed
	b.UpdatedAt = clock.Now()
}

// MarkTentative frees the slot for search without treating it as gone.
// Used while a reschedule is in flight.
func (b *BookingInterval) MarkTentative() {
	b.Status = StatusTentative
	b.UpdatedAt = clock.Now()
}

// Cancel soft-deletes the interval.
func (b *BookingInterval) Cancel() {
	b.Status = StatusCancelled
	b.UpdatedAt = clock.Now()
}

// Active reports whether the interval still occupies calendar time.
func (b *BookingInterval) Active() bool {
	return b.Status != StatusCancelled
}

// Window returns the booked span as a time window.
func (b *BookingInterval) Window() TimeWindow {
	return TimeWindow{Start: b.StartTime, End: b.EndTime}
}

// BufferedWindow returns the booked span expanded by the idle buffer on both
// sides. Conflict checks always compare buffered windows.
func (b *BookingInterval) BufferedWindow(buffer time.Duration) TimeWindow {
	return TimeWindow{Start: b.StartTime.Add(-buffer), End: b.EndTime.Add(buffer)}
}

// Duration returns the booked service length.
func (b *BookingInterval) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// SameDay reports whether the interval starts on the given calendar day.
func (b *BookingInterval) SameDay(day time.Time) bool {
	y1, m1, d1 := b.StartTime.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
