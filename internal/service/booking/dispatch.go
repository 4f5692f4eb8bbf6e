package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// CommandType selects the scheduling operation a Command carries.
type CommandType string

const (
	CommandSearchAvailability CommandType = "search_availability"
	CommandBook               CommandType = "book"
	CommandReschedule         CommandType = "reschedule"
	CommandCancel             CommandType = "cancel"
	CommandEmergencyDispatch  CommandType = "emergency_dispatch"
)

// Command is a tagged scheduling operation. Request is required for every
// type except cancel; BookingID is required for reschedule and cancel.
type Command struct {
	Type      CommandType             `json:"type"`
	Request   *schedule.ServiceRequest `json:"request,omitempty"`
	BookingID uuid.UUID               `json:"booking_id,omitempty"`

	// ChosenSlot pins a book command to a specific slot instead of the
	// best-scored one.
	ChosenSlot *schedule.TimeSlot `json:"chosen_slot,omitempty"`
}

// CommandResult is the union of the operations' outcomes. Slots is set for
// searches, Booking for the mutating operations.
type CommandResult struct {
	Slots   []schedule.TimeSlot `json:"slots,omitempty"`
	Booking *Result             `json:"booking,omitempty"`
}

// Execute dispatches a typed scheduling command to the matching operation.
func (s *service) Execute(ctx context.Context, cmd Command) (*CommandResult, error) {
	switch cmd.Type {
	case CommandSearchAvailability:
		req, err := cmd.request()
		if err != nil {
			return nil, err
		}
		slots, err := s.SearchAvailability(ctx, req)
		if err != nil {
			return nil, err
		}
		return &CommandResult{Slots: slots}, nil

	case CommandBook:
		req, err := cmd.request()
		if err != nil {
			return nil, err
		}
		res, err := s.Book(ctx, req, cmd.ChosenSlot)
		if err != nil {
			return nil, err
		}
		return &CommandResult{Booking: res}, nil

	case CommandReschedule:
		req, err := cmd.request()
		if err != nil {
			return nil, err
		}
		if cmd.BookingID == uuid.Nil {
			return nil, errors.NewValidationError("INVALID_COMMAND", "reschedule requires a booking id")
		}
		res, err := s.Reschedule(ctx, cmd.BookingID, req)
		if err != nil {
			return nil, err
		}
		return &CommandResult{Booking: res}, nil

	case CommandCancel:
		if cmd.BookingID == uuid.Nil {
			return nil, errors.NewValidationError("INVALID_COMMAND", "cancel requires a booking id")
		}
		if err := s.Cancel(ctx, cmd.BookingID); err != nil {
			return nil, err
		}
		return &CommandResult{}, nil

	case CommandEmergencyDispatch:
		req, err := cmd.request()
		if err != nil {
			return nil, err
		}
		res, err := s.EmergencyDispatch(ctx, req)
		if err != nil {
			return nil, err
		}
		return &CommandResult{Booking: res}, nil

	default:
		return nil, errors.NewValidationError("INVALID_COMMAND", "unknown command type").
			WithDetails(map[string]interface{}{"type": string(cmd.Type)})
	}
}

func (c Command) request() (schedule.ServiceRequest, error) {
	if c.Request == nil {
		return schedule.ServiceRequest{}, errors.NewValidationError("INVALID_COMMAND", "command requires a service request")
	}
	return *c.Request, nil
}
