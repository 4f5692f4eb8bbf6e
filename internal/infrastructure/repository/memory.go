package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	domainerrors "github.com/fieldserve/scheduling-backend/internal/domain/errors"
	"github.com/fieldserve/scheduling-backend/internal/domain/schedule"
)

// MemoryCalendarStore is an in-memory booking calendar for tests and local
// development. Values are copied on the way in and out so callers cannot
// mutate stored state.
type MemoryCalendarStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]schedule.BookingInterval
}

// NewMemoryCalendarStore creates an empty in-memory calendar.
func NewMemoryCalendarStore() *MemoryCalendarStore {
	return &MemoryCalendarStore{bookings: make(map[uuid.UUID]schedule.BookingInterval)}
}

func (s *MemoryCalendarStore) Create(ctx context.Context, b *schedule.BookingInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bookings[b.ID]; exists {
		return ErrDuplicateKey
	}
	s.bookings[b.ID] = *b
	return nil
}

func (s *MemoryCalendarStore) GetByID(ctx context.Context, id uuid.UUID) (*schedule.BookingInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domainerrors.NewNotFoundError("booking").
			WithDetails(map[string]interface{}{"booking_id": id.String()})
	}
	out := b
	return &out, nil
}

func (s *MemoryCalendarStore) ListActiveIntervals(ctx context.Context, professionalID uuid.UUID, window schedule.TimeWindow) ([]*schedule.BookingInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var intervals []*schedule.BookingInterval
	for _, b := range s.bookings {
		if b.ProfessionalID != professionalID || !b.Active() {
			continue
		}
		if !b.Window().Overlaps(window) {
			continue
		}
		out := b
		intervals = append(intervals, &out)
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].StartTime.Before(intervals[j].StartTime)
	})
	return intervals, nil
}

func (s *MemoryCalendarStore) Update(ctx context.Context, b *schedule.BookingInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return domainerrors.NewNotFoundError("booking").
			WithDetails(map[string]interface{}{"booking_id": b.ID.String()})
	}
	s.bookings[b.ID] = *b
	return nil
}

// MemoryProfessionalRepository is an in-memory professional roster for tests
// and local development.
type MemoryProfessionalRepository struct {
	mu            sync.RWMutex
	professionals map[uuid.UUID]schedule.Professional
}

// NewMemoryProfessionalRepository creates an empty in-memory roster.
func NewMemoryProfessionalRepository() *MemoryProfessionalRepository {
	return &MemoryProfessionalRepository{professionals: make(map[uuid.UUID]schedule.Professional)}
}

func (r *MemoryProfessionalRepository) Create(ctx context.Context, p *schedule.Professional) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.professionals[p.ID]; exists {
		return ErrDuplicateKey
	}
	r.professionals[p.ID] = *p
	return nil
}

func (r *MemoryProfessionalRepository) GetByID(ctx context.Context, id uuid.UUID) (*schedule.Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.professionals[id]
	if !ok {
		return nil, domainerrors.NewNotFoundError("professional").
			WithDetails(map[string]interface{}{"professional_id": id.String()})
	}
	out := p
	return &out, nil
}

func (r *MemoryProfessionalRepository) ListByService(ctx context.Context, serviceType string) ([]*schedule.Professional, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*schedule.Professional
	for _, p := range r.professionals {
		if p.HasSkill(serviceType) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryProfessionalRepository) Update(ctx context.Context, p *schedule.Professional) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.professionals[p.ID]; !ok {
		return domainerrors.NewNotFoundError("professional").
			WithDetails(map[string]interface{}{"professional_id": p.ID.String()})
	}
	r.professionals[p.ID] = *p
	return nil
}
