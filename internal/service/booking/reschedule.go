package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// Reschedule moves an existing booking to a slot matching the new request.
// The original interval is held tentative while the replacement is booked:
// the slot it occupies is released to the search but not yet given away. On
// any failure the original is restored to confirmed, so a failed reschedule
// leaves the calendar exactly as it was.
func (s *service) Reschedule(ctx context.Context, bookingID uuid.UUID, req schedule.ServiceRequest) (*Result, error) {
	original, err := s.calendar.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if original.Status == schedule.StatusCancelled {
		return nil, errors.NewNotFoundError("booking").
			WithDetails(map[string]interface{}{"booking_id": bookingID.String()})
	}

	if err := s.holdOriginal(ctx, original); err != nil {
		return nil, err
	}

	// The held original must not block its own replacement: the search and
	// the reservation re-checks both skip it, so moving a job within its
	// current window works.
	req.ReschedulingOf = &original.ID

	res, err := s.book(ctx, req, nil)
	if err != nil {
		s.restoreOriginal(ctx, original)
		return nil, err
	}

	s.retireOriginal(ctx, original)
	return res, nil
}

// holdOriginal marks the booking tentative under the professional's lock so
// the replacement search can reuse its slot.
func (s *service) holdOriginal(ctx context.Context, original *schedule.BookingInterval) error {
	release, err := s.locker.Acquire(ctx, original.ProfessionalID, s.pol.Config().LockWait)
	if err != nil {
		return err
	}
	defer release()

	original.MarkTentative()
	if err := s.calendar.Update(ctx, original); err != nil {
		return errors.NewInternalError("failed to hold booking for reschedule").WithCause(err)
	}
	return nil
}

// restoreOriginal puts a held booking back to confirmed after a failed
// reschedule. A failed restore is logged loudly; the interval still occupies
// calendar time either way, so no slot is lost.
func (s *service) restoreOriginal(ctx context.Context, original *schedule.BookingInterval) {
	release, err := s.locker.Acquire(ctx, original.ProfessionalID, s.pol.Config().LockWait)
	if err != nil {
		s.logger.Error("failed to lock calendar while restoring held booking",
			"booking_id", original.ID, "error", err)
		return
	}
	defer release()

	original.Confirm()
	if err := s.calendar.Update(ctx, original); err != nil {
		s.logger.Error("failed to restore held booking to confirmed",
			"booking_id", original.ID, "error", err)
	}
}

// retireOriginal cancels the old booking once its replacement is confirmed.
func (s *service) retireOriginal(ctx context.Context, original *schedule.BookingInterval) {
	release, err := s.locker.Acquire(ctx, original.ProfessionalID, s.pol.Config().LockWait)
	if err != nil {
		s.logger.Error("failed to lock calendar while retiring rescheduled booking",
			"booking_id", original.ID, "error", err)
		return
	}
	defer release()

	original.Cancel()
	if err := s.calendar.Update(ctx, original); err != nil {
		s.logger.Error("failed to cancel rescheduled booking",
			"booking_id", original.ID, "error", err)
		return
	}

	s.events.PublishBookingCancelled(original)
	s.invalidate(ctx, original.ProfessionalID)
}
