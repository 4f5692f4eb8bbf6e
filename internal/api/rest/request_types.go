package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// ServiceRequestBody is the wire form of a scheduling request, shared by
// search, book, reschedule, and emergency dispatch.
type ServiceRequestBody struct {
	ServiceType string  `json:"service_type" validate:"required"`
	Address     string  `json:"address" validate:"required"`
	Latitude    float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude   float64 `json:"longitude" validate:"gte=-180,lte=180"`

	Earliest        time.Time `json:"earliest" validate:"required"`
	Latest          time.Time `json:"latest" validate:"required,gtfield=Earliest"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`

	Priority string `json:"priority,omitempty" validate:"omitempty,oneof=normal emergency"`

	PreferredProfessionalID *uuid.UUID `json:"preferred_professional_id,omitempty"`
	JobID                   uuid.UUID  `json:"job_id,omitempty"`
}

func (b ServiceRequestBody) toDomain() schedule.ServiceRequest {
	priority := schedule.TierNormal
	if b.Priority == "emergency" {
		priority = schedule.TierEmergency
	}
	return schedule.ServiceRequest{
		ServiceType: b.ServiceType,
		Location: schedule.Location{
			Address: b.Address,
			Coordinate: schedule.GeoPoint{
				Latitude:  b.Latitude,
				Longitude: b.Longitude,
			},
		},
		Earliest:              b.Earliest,
		Latest:                b.Latest,
		Duration:              time.Duration(b.DurationMinutes) * time.Minute,
		Priority:              priority,
		PreferredProfessional: b.PreferredProfessionalID,
		JobID:                 b.JobID,
	}
}

// BookRequestBody books a slot for a request. ChosenSlot pins a specific
// candidate from a prior search; when omitted the best-scored slot is taken.
type BookRequestBody struct {
	Request    ServiceRequestBody `json:"request" validate:"required"`
	ChosenSlot *ChosenSlotBody    `json:"chosen_slot,omitempty"`
}

// ChosenSlotBody identifies the slot the caller picked.
type ChosenSlotBody struct {
	ProfessionalID uuid.UUID `json:"professional_id" validate:"required"`
	Start          time.Time `json:"start" validate:"required"`
	End            time.Time `json:"end" validate:"required,gtfield=Start"`
}

func (b *ChosenSlotBody) toDomain() *schedule.TimeSlot {
	if b == nil {
		return nil
	}
	return &schedule.TimeSlot{
		ProfessionalID: b.ProfessionalID,
		Start:          b.Start,
		End:            b.End,
	}
}

// RescheduleRequestBody moves an existing booking.
type RescheduleRequestBody struct {
	Request ServiceRequestBody `json:"request" validate:"required"`
}
