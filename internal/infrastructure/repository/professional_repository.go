package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainerrors "github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// ProfessionalRepository implements the professional roster using PostgreSQL.
// Working hours and skills are stored as JSONB; the scheduling core never
// queries inside them.
type ProfessionalRepository struct {
	db interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
}

// NewProfessionalRepository creates a new professional repository
func NewProfessionalRepository(db *sql.DB) *ProfessionalRepository {
	return &ProfessionalRepository{db: db}
}

// Create inserts a new professional
func (r *ProfessionalRepository) Create(ctx context.Context, p *schedule.Professional) error {
	hoursJSON, err := json.Marshal(p.Hours)
	if err != nil {
		return fmt.Errorf("failed to marshal working hours: %w", err)
	}
	skillsJSON, err := json.Marshal(p.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}

	query := `
		INSERT INTO professionals (
			id, user_id, name, address, latitude, longitude,
			working_hours, skills, emergency_only, max_daily_jobs,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.Name,
		p.BaseLocation.Address, p.BaseLocation.Coordinate.Latitude, p.BaseLocation.Coordinate.Longitude,
		hoursJSON, skillsJSON, p.EmergencyOnly, p.MaxDailyJobs,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if IsDuplicateKeyViolation(err) {
			return fmt.Errorf("professional %s already exists: %w", p.ID, ErrDuplicateKey)
		}
		return fmt.Errorf("failed to create professional: %w", err)
	}
	return nil
}

// GetByID retrieves a professional by ID
func (r *ProfessionalRepository) GetByID(ctx context.Context, id uuid.UUID) (*schedule.Professional, error) {
	query := `
		SELECT id, user_id, name, address, latitude, longitude,
			working_hours, skills, emergency_only, max_daily_jobs,
			created_at, updated_at
		FROM professionals
		WHERE id = $1
	`

	p, err := r.scanProfessional(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainerrors.NewNotFoundError("professional").
				WithDetails(map[string]interface{}{"professional_id": id.String()})
		}
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}
	return p, nil
}

// ListByService returns professionals able to take the given service type.
// An empty skills list means the professional accepts any service.
func (r *ProfessionalRepository) ListByService(ctx context.Context, serviceType string) ([]*schedule.Professional, error) {
	query := `
		SELECT id, user_id, name, address, latitude, longitude,
			working_hours, skills, emergency_only, max_daily_jobs,
			created_at, updated_at
		FROM professionals
		WHERE skills = '[]'::jsonb OR skills @> to_jsonb($1::text)
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, serviceType)
	if err != nil {
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	defer rows.Close()

	var professionals []*schedule.Professional
	for rows.Next() {
		p, err := r.scanProfessional(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan professional: %w", err)
		}
		professionals = append(professionals, p)
	}
	return professionals, rows.Err()
}

// Update persists changes to an existing professional
func (r *ProfessionalRepository) Update(ctx context.Context, p *schedule.Professional) error {
	hoursJSON, err := json.Marshal(p.Hours)
	if err != nil {
		return fmt.Errorf("failed to marshal working hours: %w", err)
	}
	skillsJSON, err := json.Marshal(p.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}

	query := `
		UPDATE professionals
		SET name = $2, address = $3, latitude = $4, longitude = $5,
			working_hours = $6, skills = $7, emergency_only = $8,
			max_daily_jobs = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name,
		p.BaseLocation.Address, p.BaseLocation.Coordinate.Latitude, p.BaseLocation.Coordinate.Longitude,
		hoursJSON, skillsJSON, p.EmergencyOnly, p.MaxDailyJobs, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update professional: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return domainerrors.NewNotFoundError("professional").
			WithDetails(map[string]interface{}{"professional_id": p.ID.String()})
	}
	return nil
}

func (r *ProfessionalRepository) scanProfessional(row rowScanner) (*schedule.Professional, error) {
	var p schedule.Professional
	var hoursJSON, skillsJSON []byte

	err := row.Scan(
		&p.ID, &p.UserID, &p.Name,
		&p.BaseLocation.Address, &p.BaseLocation.Coordinate.Latitude, &p.BaseLocation.Coordinate.Longitude,
		&hoursJSON, &skillsJSON, &p.EmergencyOnly, &p.MaxDailyJobs,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(hoursJSON, &p.Hours); err != nil {
		return nil, fmt.Errorf("failed to unmarshal working hours: %w", err)
	}
	if len(skillsJSON) > 0 {
		if err := json.Unmarshal(skillsJSON, &p.Skills); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
		}
	}
	return &p, nil
}
