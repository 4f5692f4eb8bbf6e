package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	domainErrors "github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
	"github.com/fieldserve/scheduling-backend/internal/service/booking"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Handler serves the scheduling API.
type Handler struct {
	bookings booking.Service
	calendar booking.CalendarStore
	validate *validator.Validate
	logger   *slog.Logger
	version  string
}

// NewHandler creates the API handler.
func NewHandler(bookings booking.Service, calendar booking.CalendarStore, logger *slog.Logger, version string) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		bookings: bookings,
		calendar: calendar,
		validate: validator.New(),
		logger:   logger,
		version:  version,
	}
}

// Routes registers all API routes on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/availability/search", h.handleSearchAvailability)
	mux.HandleFunc("POST /api/v1/bookings", h.handleBook)
	mux.HandleFunc("GET /api/v1/bookings/{id}", h.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/reschedule", h.handleReschedule)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", h.handleCancel)
	mux.HandleFunc("POST /api/v1/dispatch/emergency", h.handleEmergencyDispatch)
	mux.HandleFunc("GET /api/v1/professionals/{id}/schedule", h.handleDailySchedule)
	mux.HandleFunc("GET /health", h.handleHealth)
	return mux
}

func (h *Handler) handleSearchAvailability(w http.ResponseWriter, r *http.Request) {
	var body ServiceRequestBody
	if err := h.decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	slots, err := h.bookings.SearchAvailability(r.Context(), body.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, toAvailabilityResponse(slots))
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	var body BookRequestBody
	if err := h.decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.bookings.Book(r.Context(), body.Request.toDomain(), body.ChosenSlot.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusCreated, toBookingResponse(res))
}

func (h *Handler) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	interval, err := h.calendar.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, toBookingResponse(&booking.Result{Booking: interval}))
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var body RescheduleRequestBody
	if err := h.decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.bookings.Reschedule(r.Context(), id, body.Request.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, toBookingResponse(res))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.bookings.Cancel(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handler) handleEmergencyDispatch(w http.ResponseWriter, r *http.Request) {
	var body ServiceRequestBody
	if err := h.decode(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.bookings.EmergencyDispatch(r.Context(), body.toDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusCreated, toBookingResponse(res))
}

// handleDailySchedule lists a professional's active bookings for one day.
func (h *Handler) handleDailySchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			h.writeError(w, r, domainErrors.NewValidationError("INVALID_DATE", "date must be YYYY-MM-DD"))
			return
		}
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	window := schedule.TimeWindow{Start: dayStart, End: dayStart.AddDate(0, 0, 1)}

	intervals, err := h.calendar.ListActiveIntervals(r.Context(), id, window)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]BookingResponse, 0, len(intervals))
	for _, b := range intervals {
		out = append(out, toBookingResponse(&booking.Result{Booking: b}))
	}
	h.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"bookings": out})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads, parses, and validates a JSON body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return err
	}
	return h.validate.Struct(dest)
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domainErrors.NewValidationError("INVALID_ID", "path id must be a UUID")
	}
	return id, nil
}

func (h *Handler) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	h.writeEnvelope(w, r, status, ResponseEnvelope{
		Success: true,
		Data:    data,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	if body != nil {
		body.TraceID = requestID(r.Context())
	}
	h.writeEnvelope(w, r, status, ResponseEnvelope{
		Success: false,
		Error:   body,
	})
}

func (h *Handler) writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env ResponseEnvelope) {
	env.Meta = ResponseMeta{
		RequestID: requestID(r.Context()),
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
