package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/service/booking"
)

// ResponseEnvelope wraps all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta contains response metadata
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse provides detailed error information
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Fields  map[string]string      `json:"fields,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// SlotResponse is one candidate slot in an availability response.
type SlotResponse struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	TravelInMins   int       `json:"travel_in_minutes"`
	TravelOutMins  int       `json:"travel_out_minutes"`
	Score          float64   `json:"score"`
	Confidence     float64   `json:"confidence"`
}

// AvailabilityResponse lists candidate slots, best first.
type AvailabilityResponse struct {
	Slots []SlotResponse `json:"slots"`
}

// BookingResponse describes a confirmed booking.
type BookingResponse struct {
	ID             uuid.UUID   `json:"id"`
	ProfessionalID uuid.UUID   `json:"professional_id"`
	JobID          uuid.UUID   `json:"job_id"`
	JobRecordID    uuid.UUID   `json:"job_record_id,omitempty"`
	Start          time.Time   `json:"start"`
	End            time.Time   `json:"end"`
	Status         string      `json:"status"`
	Priority       string      `json:"priority"`
	Warnings       []string    `json:"warnings,omitempty"`
	Bumped         []uuid.UUID `json:"bumped_booking_ids,omitempty"`
}

func toSlotResponse(s schedule.TimeSlot) SlotResponse {
	return SlotResponse{
		ProfessionalID: s.ProfessionalID,
		Start:          s.Start,
		End:            s.End,
		TravelInMins:   int(s.TravelIn.Minutes()),
		TravelOutMins:  int(s.TravelOut.Minutes()),
		Score:          s.Score,
		Confidence:     s.Confidence,
	}
}

func toAvailabilityResponse(slots []schedule.TimeSlot) AvailabilityResponse {
	out := AvailabilityResponse{Slots: make([]SlotResponse, 0, len(slots))}
	for _, s := range slots {
		out.Slots = append(out.Slots, toSlotResponse(s))
	}
	return out
}

func toBookingResponse(res *booking.Result) BookingResponse {
	b := res.Booking
	return BookingResponse{
		ID:             b.ID,
		ProfessionalID: b.ProfessionalID,
		JobID:          b.JobID,
		JobRecordID:    res.JobRecordID,
		Start:          b.StartTime,
		End:            b.EndTime,
		Status:         b.Status.String(),
		Priority:       b.Priority.String(),
		Warnings:       res.Warnings,
		Bumped:         res.Bumped,
	}
}
