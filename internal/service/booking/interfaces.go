package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// Service is the transactional entry point for the scheduling core. All
// booking state mutation flows through it.
type Service interface {
	// SearchAvailability returns candidate slots for a request, best first.
	SearchAvailability(ctx context.Context, req schedule.ServiceRequest) ([]schedule.TimeSlot, error)
	// Book reserves a slot for the request. When chosen is nil the
	// best-scored slot is taken.
	Book(ctx context.Context, req schedule.ServiceRequest, chosen *schedule.TimeSlot) (*Result, error)
	// Reschedule moves an existing booking, holding the original slot until
	// a replacement is confirmed.
	Reschedule(ctx context.Context, bookingID uuid.UUID, req schedule.ServiceRequest) (*Result, error)
	// Cancel soft-deletes a booking. Unknown ids fail with not found;
	// cancelling twice is a no-op.
	Cancel(ctx context.Context, bookingID uuid.UUID) error
	// EmergencyDispatch books at emergency tier: weather gating is bypassed
	// and tentative normal bookings may be bumped.
	EmergencyDispatch(ctx context.Context, req schedule.ServiceRequest) (*Result, error)
	// Execute dispatches a typed scheduling command.
	Execute(ctx context.Context, cmd Command) (*CommandResult, error)
}

// Result is the outcome of a successful booking attempt.
type Result struct {
	Booking *schedule.BookingInterval

	// JobRecordID references the externally persisted job record.
	JobRecordID uuid.UUID

	// Warnings carries non-blocking policy notes (for example a caution
	// weather verdict).
	Warnings []string

	// Bumped lists tentative bookings displaced by an emergency override.
	Bumped []uuid.UUID
}

// CalendarStore is the durable per-professional set of booked intervals.
// It is the single source of truth; only this service writes to it.
type CalendarStore interface {
	// GetByID retrieves a booking interval.
	GetByID(ctx context.Context, id uuid.UUID) (*schedule.BookingInterval, error)
	// ListActiveIntervals returns non-cancelled intervals for a professional
	// intersecting the window, ordered by start time.
	ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, window schedule.TimeWindow) ([]*schedule.BookingInterval, error)
	// Create persists a new interval.
	Create(ctx context.Context, interval *schedule.BookingInterval) error
	// Update persists status and window changes to an existing interval.
	Update(ctx context.Context, interval *schedule.BookingInterval) error
}

// ProfessionalRepository resolves booking candidates.
type ProfessionalRepository interface {
	// GetByID retrieves a professional.
	GetByID(ctx context.Context, id uuid.UUID) (*schedule.Professional, error)
	// ListByService returns professionals able to take the service type.
	ListByService(ctx context.Context, serviceType string) ([]*schedule.Professional, error)
}

// SlotFinder computes candidate slots; satisfied by the availability engine.
type SlotFinder interface {
	FindSlots(ctx context.Context, req schedule.ServiceRequest, candidates []*schedule.Professional) ([]schedule.TimeSlot, error)
}

// WeatherAssessor classifies weather safety for a location and window.
// Implementations fail open to safe.
type WeatherAssessor interface {
	Assess(ctx context.Context, loc schedule.Location, window schedule.TimeWindow) (schedule.WeatherSafetyVerdict, error)
}

// JobRecorder hands a confirmed booking to the external job persistence
// collaborator.
type JobRecorder interface {
	CreateJobRecord(ctx context.Context, interval *schedule.BookingInterval) (uuid.UUID, error)
}

// EventPublisher emits fire-and-forget booking lifecycle events. The
// scheduling core never blocks on delivery.
type EventPublisher interface {
	PublishBookingConfirmed(interval *schedule.BookingInterval)
	PublishBookingCancelled(interval *schedule.BookingInterval)
}

// ProfessionalLocker serializes reservation per professional. Acquire fails
// when the exclusive section cannot be entered within the wait bound.
type ProfessionalLocker interface {
	// Acquire enters the professional's exclusive section, returning a
	// release function. The wait is bounded; no unbounded queueing.
	Acquire(ctx context.Context, professionalID uuid.UUID, wait time.Duration) (release func(), err error)
}

// SlotCacheInvalidator drops cached availability results for a professional
// after a booking mutation.
type SlotCacheInvalidator interface {
	Invalidate(ctx context.Context, professionalID uuid.UUID)
}

// MetricsCollector records booking pipeline metrics.
type MetricsCollector interface {
	RecordBookingDecision(ctx context.Context, outcome string, tier schedule.PriorityTier)
	RecordBookingLatency(ctx context.Context, outcome string, latency time.Duration)
}
