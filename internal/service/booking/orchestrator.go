package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/service/conflict"
	"github.com/fieldserve/scheduling-backend/internal/service/policy"
)

// Deps wires the orchestrator's collaborators. Metrics and Cache are
// optional; everything else is required.
type Deps struct {
	Calendar      CalendarStore
	Professionals ProfessionalRepository
	Finder        SlotFinder
	Weather       WeatherAssessor
	Jobs          JobRecorder
	Events        EventPublisher
	Locker        ProfessionalLocker
	Policy        *policy.Policy
	Detector      *conflict.Detector
	Metrics       MetricsCollector
	Cache         SlotCacheInvalidator
	Logger        *slog.Logger
}

// service implements the Service interface
type service struct {
	calendar      CalendarStore
	professionals ProfessionalRepository
	finder        SlotFinder
	weather       WeatherAssessor
	jobs          JobRecorder
	events        EventPublisher
	locker        ProfessionalLocker
	pol           *policy.Policy
	detector      *conflict.Detector
	metrics       MetricsCollector
	cache         SlotCacheInvalidator
	logger        *slog.Logger
	retry         boundedRetry
}

// NewService creates the booking orchestrator.
func NewService(deps Deps) Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		calendar:      deps.Calendar,
		professionals: deps.Professionals,
		finder:        deps.Finder,
		weather:       deps.Weather,
		jobs:          deps.Jobs,
		events:        deps.Events,
		locker:        deps.Locker,
		pol:           deps.Policy,
		detector:      deps.Detector,
		metrics:       deps.Metrics,
		cache:         deps.Cache,
		logger:        logger,
		// Exactly one internal re-attempt on a concurrent conflict.
		retry: boundedRetry{MaxRetries: 1},
	}
}

// SearchAvailability computes candidate slots for the request.
func (s *service) SearchAvailability(ctx context.Context, req schedule.ServiceRequest) ([]schedule.TimeSlot, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewValidationError("INVALID_REQUEST", err.Error()).WithCause(err)
	}
	candidates, err := s.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.finder.FindSlots(ctx, req, candidates)
}

// Book reserves a slot for the request. The reservation step re-validates
// conflicts against current calendar state inside the professional's
// exclusive section; a concurrent conflict is retried once with a freshly
// recomputed slot before surfacing.
func (s *service) Book(ctx context.Context, req schedule.ServiceRequest, chosen *schedule.TimeSlot) (*Result, error) {
	start := time.Now()
	res, err := s.book(ctx, req, chosen)
	s.record(ctx, req, res, err, time.Since(start))
	return res, err
}

// EmergencyDispatch books at emergency tier regardless of the request's
// stated priority.
func (s *service) EmergencyDispatch(ctx context.Context, req schedule.ServiceRequest) (*Result, error) {
	req.Priority = schedule.TierEmergency
	return s.Book(ctx, req, nil)
}

// Cancel soft-deletes a booking. Cancelling an already-cancelled booking is
// a no-op; unknown ids fail with not found.
func (s *service) Cancel(ctx context.Context, bookingID uuid.UUID) error {
	interval, err := s.calendar.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if interval.Status == schedule.StatusCancelled {
		return nil
	}

	release, err := s.locker.Acquire(ctx, interval.ProfessionalID, s.pol.Config().LockWait)
	if err != nil {
		return err
	}
	defer release()

	interval.Cancel()
	if err := s.calendar.Update(ctx, interval); err != nil {
		return errors.NewInternalError("failed to cancel booking").WithCause(err)
	}

	s.events.PublishBookingCancelled(interval)
	s.invalidate(ctx, interval.ProfessionalID)
	return nil
}

func (s *service) book(ctx context.Context, req schedule.ServiceRequest, chosen *schedule.TimeSlot) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.NewValidationError("INVALID_REQUEST", err.Error()).WithCause(err)
	}
	candidates, err := s.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.NewNoAvailabilityError("no professionals available for service type").
			WithDetails(map[string]interface{}{"service_type": req.ServiceType})
	}

	var res *Result
	err = s.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		slot := chosen
		// The retry always recomputes: the chosen slot was computed against
		// a snapshot that just proved stale.
		if slot == nil || attempt > 0 {
			slots, ferr := s.finder.FindSlots(ctx, req, candidates)
			if ferr != nil {
				return ferr
			}
			if len(slots) == 0 {
				return errors.NewNoAvailabilityError("no feasible slot in requested window")
			}
			slot = &slots[0]
		}
		var rerr error
		res, rerr = s.reserve(ctx, req, *slot)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// reserve runs the Validated → Reserved → Confirmed transition inside the
// professional's exclusive section.
func (s *service) reserve(ctx context.Context, req schedule.ServiceRequest, slot schedule.TimeSlot) (*Result, error) {
	prof, err := s.professionals.GetByID(ctx, slot.ProfessionalID)
	if err != nil {
		return nil, err
	}

	interval, err := schedule.NewBookingInterval(prof.ID, req.JobID, slot.Start, slot.End, req.Location, req.Priority)
	if err != nil {
		return nil, errors.NewValidationError("INVALID_SLOT", err.Error()).WithCause(err)
	}

	if !s.pol.IsWithinWorkingHours(prof, interval.Window()) {
		return nil, errors.NewPolicyRejectedError("working_hours",
			fmt.Sprintf("slot outside working hours of %s", prof.Name)).
			WithDetails(map[string]interface{}{"professional_id": prof.ID.String()})
	}

	result := &Result{}
	verdict := s.assessWeather(ctx, req.Location, interval.Window())
	acceptable, warning := s.pol.IsWeatherAcceptable(verdict, req.Priority)
	if !acceptable {
		return nil, errors.NewPolicyRejectedError("weather",
			fmt.Sprintf("weather verdict %s blocks normal-priority booking", verdict)).
			WithDetails(map[string]interface{}{
				"professional_id": prof.ID.String(),
				"verdict":         verdict.String(),
			})
	}
	if warning {
		result.Warnings = append(result.Warnings, fmt.Sprintf("weather verdict is %s for the requested window", verdict))
	}

	release, err := s.locker.Acquire(ctx, prof.ID, s.pol.Config().LockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-check against current state: the slot was computed from a
	// possibly-stale snapshot. The fetch covers the proposal's whole day so
	// the daily cap sees bookings that do not overlap the slot itself.
	buffer := s.pol.Config().Buffer()
	fetch := interval.BufferedWindow(buffer)
	dayStart := startOfDay(interval.StartTime)
	if dayStart.Before(fetch.Start) {
		fetch.Start = dayStart
	}
	if dayEnd := dayStart.AddDate(0, 0, 1); dayEnd.After(fetch.End) {
		fetch.End = dayEnd
	}
	existing, err := s.calendar.ListActiveIntervals(ctx, prof.ID, fetch)
	if err != nil {
		return nil, errors.NewInternalError("failed to read calendar").WithCause(err)
	}
	// A reschedule's held original does not block its own replacement and
	// does not count toward the cap; it is cancelled once the new booking
	// is confirmed.
	if req.ReschedulingOf != nil {
		existing = withoutInterval(existing, *req.ReschedulingOf)
	}

	if err := s.applyDailyCap(req, prof, existing, interval); err != nil {
		return nil, err
	}

	existing, err = s.resolveConflicts(ctx, req, interval, existing, result)
	if err != nil {
		return nil, err
	}

	interval.Confirm()
	if err := s.calendar.Create(ctx, interval); err != nil {
		return nil, errors.NewInternalError("failed to persist booking").WithCause(err)
	}

	result.Booking = interval
	s.finishBooking(ctx, interval, result)
	return result, nil
}

// resolveConflicts runs the advisory detector against current state. An
// emergency request may bump tentative normal bookings that block it;
// anything else is a concurrent conflict.
func (s *service) resolveConflicts(ctx context.Context, req schedule.ServiceRequest, interval *schedule.BookingInterval, existing []*schedule.BookingInterval, result *Result) ([]*schedule.BookingInterval, error) {
	for {
		check := s.detector.Check(interval, existing)
		if check.OK() {
			return existing, nil
		}
		if check.Kind == conflict.KindTimeOverlap && s.pol.CanBump(req, check.Conflicting) {
			bumped := check.Conflicting
			bumped.Cancel()
			if err := s.calendar.Update(ctx, bumped); err != nil {
				return nil, errors.NewInternalError("failed to bump tentative booking").WithCause(err)
			}
			s.logger.Warn("emergency booking bumped tentative booking",
				"audit", "tentative_bump",
				"bumped_booking_id", bumped.ID,
				"professional_id", bumped.ProfessionalID)
			s.events.PublishBookingCancelled(bumped)
			result.Bumped = append(result.Bumped, bumped.ID)
			existing = withoutInterval(existing, bumped.ID)
			continue
		}
		return nil, errors.NewConcurrentConflictError("slot no longer free").
			WithDetails(map[string]interface{}{
				"professional_id": interval.ProfessionalID.String(),
				"conflicting_id":  check.ConflictingID.String(),
				"conflict_kind":   check.Kind.String(),
			})
	}
}

// applyDailyCap re-validates the daily job cap at reservation time, since a
// caller-chosen slot may bypass the engine's per-day exclusion.
func (s *service) applyDailyCap(req schedule.ServiceRequest, prof *schedule.Professional, existing []*schedule.BookingInterval, interval *schedule.BookingInterval) error {
	count := 0
	for _, b := range existing {
		if b.Active() && b.SameDay(interval.StartTime) {
			count++
		}
	}
	if s.pol.DailyCapReached(prof, count, req.Priority) {
		return errors.NewPolicyRejectedError("daily_cap",
			fmt.Sprintf("daily job cap reached for %s", prof.Name)).
			WithDetails(map[string]interface{}{
				"professional_id": prof.ID.String(),
				"booked":          count,
			})
	}
	return nil
}

// finishBooking runs the post-commit steps: external job record, events,
// cache invalidation. None of these can fail the booking.
func (s *service) finishBooking(ctx context.Context, interval *schedule.BookingInterval, result *Result) {
	jobID, err := s.jobs.CreateJobRecord(ctx, interval)
	if err != nil {
		s.logger.Error("failed to create external job record",
			"booking_id", interval.ID, "error", err)
	} else {
		result.JobRecordID = jobID
	}

	s.events.PublishBookingConfirmed(interval)
	s.invalidate(ctx, interval.ProfessionalID)
}

func (s *service) candidates(ctx context.Context, req schedule.ServiceRequest) ([]*schedule.Professional, error) {
	if req.PreferredProfessional != nil {
		prof, err := s.professionals.GetByID(ctx, *req.PreferredProfessional)
		if err != nil {
			return nil, err
		}
		return []*schedule.Professional{prof}, nil
	}
	return s.professionals.ListByService(ctx, req.ServiceType)
}

// assessWeather consults the provider, failing open to safe. A degraded
// provider is logged, never propagated.
func (s *service) assessWeather(ctx context.Context, loc schedule.Location, window schedule.TimeWindow) schedule.WeatherSafetyVerdict {
	verdict, err := s.weather.Assess(ctx, loc, window)
	if err != nil {
		degraded := errors.NewProviderDegradedError("weather", "assessment unavailable, failing open to safe").WithCause(err)
		s.logger.Warn("weather provider degraded", "error", degraded)
		return schedule.WeatherSafe
	}
	return verdict
}

func (s *service) invalidate(ctx context.Context, professionalID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, professionalID)
	}
}

func (s *service) record(ctx context.Context, req schedule.ServiceRequest, res *Result, err error, latency time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "confirmed"
	if res != nil && len(res.Bumped) > 0 {
		outcome = "confirmed_with_bump"
	}
	if err != nil {
		outcome = "error"
		var appErr *errors.AppError
		if e, ok := err.(*errors.AppError); ok {
			appErr = e
		}
		if appErr != nil {
			outcome = appErr.Code
		}
	}
	s.metrics.RecordBookingDecision(ctx, outcome, req.Priority)
	s.metrics.RecordBookingLatency(ctx, outcome, latency)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func withoutInterval(intervals []*schedule.BookingInterval, id uuid.UUID) []*schedule.BookingInterval {
	out := intervals[:0]
	for _, b := range intervals {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}
