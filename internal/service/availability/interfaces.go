package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// Engine computes candidate free slots for a service request.
type Engine interface {
	// FindSlots returns usable slots for the candidate professionals,
	// ordered best-first. An empty result is a valid outcome, not an error.
	FindSlots(ctx context.Context, req schedule.ServiceRequest, candidates []*schedule.Professional) ([]schedule.TimeSlot, error)
}

// CalendarReader is the read side of the calendar store. Slot computation
// never mutates booking state.
type CalendarReader interface {
	// ListActiveIntervals returns non-cancelled intervals for a professional
	// that intersect the given window, ordered by start time.
	ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, window schedule.TimeWindow) ([]*schedule.BookingInterval, error)
}

// TravelEstimate is the provider's answer for one leg.
type TravelEstimate struct {
	Duration   time.Duration
	DistanceKm float64

	// Degraded marks an estimate produced by the straight-line fallback
	// after the routing provider failed.
	Degraded bool
}

// TravelEstimator estimates travel between two coordinates. Implementations
// must degrade to a straight-line estimate rather than fail the pipeline.
type TravelEstimator interface {
	EstimateTravel(ctx context.Context, origin, dest schedule.GeoPoint) (TravelEstimate, error)
}
