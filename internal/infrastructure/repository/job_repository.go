package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// JobRepository persists the job record created for each confirmed booking.
// Job lifecycle beyond creation is owned elsewhere; the scheduling core only
// hands off.
type JobRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewJobRepository creates a new job record repository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJobRecord inserts the job record for a confirmed booking and returns
// its id.
func (r *JobRepository) CreateJobRecord(ctx context.Context, b *schedule.BookingInterval) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO job_records (
			id, booking_id, job_id, professional_id,
			scheduled_start, scheduled_end, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		id, b.ID, b.JobID, b.ProfessionalID, b.StartTime, b.EndTime,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job record: %w", err)
	}
	return id, nil
}

// MemoryJobRecorder records job ids in memory for tests and local development.
type MemoryJobRecorder struct{}

func (MemoryJobRecorder) CreateJobRecord(ctx context.Context, b *schedule.BookingInterval) (uuid.UUID, error) {
	return uuid.New(), nil
}
