package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainerrors "github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// CalendarRepository implements the booking calendar store using PostgreSQL
type CalendarRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db *sql.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// NewCalendarRepositoryWithTx creates a calendar repository bound to a transaction
func NewCalendarRepositoryWithTx(tx *sql.Tx) *CalendarRepository {
	return &CalendarRepository{db: tx}
}

// Create inserts a new booking interval
func (r *CalendarRepository) Create(ctx context.Context, b *schedule.BookingInterval) error {
	if b.ProfessionalID == uuid.Nil {
		return errors.New("professional_id cannot be nil")
	}

	query := `
		INSERT INTO bookings (
			id, professional_id, job_id, start_time, end_time,
			address, latitude, longitude, priority, status,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.ProfessionalID, b.JobID, b.StartTime, b.EndTime,
		b.Location.Address, b.Location.Coordinate.Latitude, b.Location.Coordinate.Longitude,
		b.Priority.String(), b.Status.String(),
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("booking %s already exists: %w", b.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking interval by its ID
func (r *CalendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*schedule.BookingInterval, error) {
	query := `
		SELECT id, professional_id, job_id, start_time, end_time,
			address, latitude, longitude, priority, status,
			created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	b, err := r.scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NewNotFoundError("booking").
				WithDetails(map[string]interface{}{"booking_id": id.String()})
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// ListActiveIntervals returns non-cancelled bookings for a professional
// intersecting the window, ordered by start time.
func (r *CalendarRepository) ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, window schedule.TimeWindow) ([]*schedule.BookingInterval, error) {
	query := `
		SELECT id, professional_id, job_id, start_time, end_time,
			address, latitude, longitude, priority, status,
			created_at, updated_at
		FROM bookings
		WHERE professional_id = $1
			AND status != 'cancelled'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time
	`

	rows, err := r.db.QueryContext(ctx, query, professionalID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var intervals []*schedule.BookingInterval
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		intervals = append(intervals, b)
	}
	return intervals, rows.Err()
}

// Update persists status and window changes to an existing booking
func (r *CalendarRepository) Update(ctx context.Context, b *schedule.BookingInterval) error {
	query := `
		UPDATE bookings
		SET start_time = $2, end_time = $3,
			address = $4, latitude = $5, longitude = $6,
			priority = $7, status = $8, updated_at = $9
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		b.ID, b.StartTime, b.EndTime,
		b.Location.Address, b.Location.Coordinate.Latitude, b.Location.Coordinate.Longitude,
		b.Priority.String(), b.Status.String(), b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domainerrors.NewNotFoundError("booking").
			WithDetails(map[string]interface{}{"booking_id": b.ID.String()})
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *CalendarRepository) scanBooking(row rowScanner) (*schedule.BookingInterval, error) {
	var b schedule.BookingInterval
	var priorityStr, statusStr string

	err := row.Scan(
		&b.ID, &b.ProfessionalID, &b.JobID, &b.StartTime, &b.EndTime,
		&b.Location.Address, &b.Location.Coordinate.Latitude, &b.Location.Coordinate.Longitude,
		&priorityStr, &statusStr,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Priority = parsePriority(priorityStr)
	b.Status = parseStatus(statusStr)
	return &b, nil
}

func parsePriority(s string) schedule.PriorityTier {
	if s == "emergency" {
		return schedule.TierEmergency
	}
	return schedule.TierNormal
}

func parseStatus(s string) schedule.Status {
	switch s {
	case "confirmed":
		return schedule.StatusConfirmed
	case "cancelled":
		return schedule.StatusCancelled
	default:
		return schedule.StatusTentative
	}
}
