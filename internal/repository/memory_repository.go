package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/queue-service/internal/domain"
)

// memoryRepository keeps appointments in process memory. It backs the service
// when no Postgres DSN is configured and is the store the unit tests run
// against. A single mutex serializes every operation, which trivially satisfies
// the per-date allocation discipline and the reminder compare-and-set.
type memoryRepository struct {
	mu           sync.Mutex
	appointments map[string]*domain.Appointment
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() AppointmentRepository {
	return &memoryRepository{
		appointments: make(map[string]*domain.Appointment),
	}
}

func (r *memoryRepository) Create(_ context.Context, appt *domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, existing := range r.appointments {
		if existing.Date == appt.Date {
			count++
		}
	}
	appt.QueueNumber = count + 1

	stored := *appt
	r.appointments[appt.ID] = &stored
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return clone(appt), nil
}

func (r *memoryRepository) ListPending(_ context.Context) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listByStatusLocked(domain.StatusPending), nil
}

func (r *memoryRepository) ClaimNextPending(_ context.Context, at time.Time) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var next *domain.Appointment
	for _, appt := range r.appointments {
		if appt.Status != domain.StatusPending {
			continue
		}
		if next == nil || appt.CreatedAt.Before(next.CreatedAt) {
			next = appt
		}
	}
	if next == nil {
		return nil, pgx.ErrNoRows
	}

	calledAt := at
	next.Status = domain.StatusCalled
	next.CalledAt = &calledAt
	return clone(next), nil
}

func (r *memoryRepository) MarkServed(_ context.Context, id string, at time.Time) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if appt.Status != domain.StatusServed {
		servedAt := at
		appt.Status = domain.StatusServed
		appt.ServedAt = &servedAt
	}
	return clone(appt), nil
}

func (r *memoryRepository) ListReminderCandidates(_ context.Context) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Appointment
	for _, appt := range r.appointments {
		if appt.Status == domain.StatusPending && !appt.ReminderSent {
			result = append(result, *clone(appt))
		}
	}
	sortByCreation(result)
	return result, nil
}

func (r *memoryRepository) ClaimReminder(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if appt.Status != domain.StatusPending || appt.ReminderSent {
		return false, nil
	}
	appt.ReminderSent = true
	return true, nil
}

func (r *memoryRepository) Search(_ context.Context, query string) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(query))
	var result []domain.Appointment
	for _, appt := range r.appointments {
		if strings.Contains(strings.ToLower(appt.Name), term) ||
			strings.Contains(strings.ToLower(appt.Phone), term) ||
			strings.Contains(strconv.Itoa(appt.QueueNumber), term) {
			result = append(result, *clone(appt))
		}
	}
	sortByCreation(result)
	return result, nil
}

func (r *memoryRepository) listByStatusLocked(status domain.AppointmentStatus) []domain.Appointment {
	var result []domain.Appointment
	for _, appt := range r.appointments {
		if appt.Status == status {
			result = append(result, *clone(appt))
		}
	}
	sortByCreation(result)
	return result
}

func sortByCreation(appts []domain.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].CreatedAt.Before(appts[j].CreatedAt)
	})
}

func clone(appt *domain.Appointment) *domain.Appointment {
	copied := *appt
	if appt.CalledAt != nil {
		calledAt := *appt.CalledAt
		copied.CalledAt = &calledAt
	}
	if appt.ServedAt != nil {
		servedAt := *appt.ServedAt
		copied.ServedAt = &servedAt
	}
	return &copied
}
