package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/queue-service/internal/domain"
	"github.com/spec-kit/queue-service/internal/events"
	"github.com/spec-kit/queue-service/internal/observability"
	"github.com/spec-kit/queue-service/internal/repository"
	apperrors "github.com/spec-kit/queue-service/pkg/util"
)

// QueueService coordinates booking, queue advancement and serving.
type QueueService struct {
	appointments repository.AppointmentRepository
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	now          func() time.Time
}

// QueueDependencies bundles collaborators for the queue service.
type QueueDependencies struct {
	AppointmentRepo repository.AppointmentRepository
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Now             func() time.Time
}

// BookInput describes a booking payload.
type BookInput struct {
	Name    string
	Phone   string
	Service string
	Date    string
	Time    string
}

// NewQueueService constructs the service.
func NewQueueService(deps QueueDependencies) *QueueService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &QueueService{
		appointments: deps.AppointmentRepo,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		now:          now,
	}
}

// Book validates the input, allocates a queue number for the date and persists
// the appointment as pending. The confirmation notification happens through the
// event dispatcher and never affects the booking outcome.
func (s *QueueService) Book(ctx context.Context, input BookInput) (*domain.Appointment, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Service = strings.TrimSpace(input.Service)
	input.Date = strings.TrimSpace(input.Date)
	input.Time = strings.TrimSpace(input.Time)

	if err := validateBookInput(input); err != nil {
		return nil, err
	}

	appt := &domain.Appointment{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Phone:     input.Phone,
		Service:   input.Service,
		Date:      input.Date,
		Time:      input.Time,
		Status:    domain.StatusPending,
		CreatedAt: s.now(),
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}
	s.metrics.RecordBooking()

	s.publishEvent(ctx, events.Event{
		Type:          events.EventAppointmentBooked,
		AppointmentID: appt.ID,
		Payload: events.AppointmentBookedPayload{
			Name:        appt.Name,
			Phone:       appt.Phone,
			Service:     appt.Service,
			Date:        appt.Date,
			Time:        appt.Time,
			QueueNumber: appt.QueueNumber,
		},
	})
	return appt, nil
}

// ListQueue returns pending appointments, oldest created first.
func (s *QueueService) ListQueue(ctx context.Context) ([]domain.Appointment, error) {
	return s.appointments.ListPending(ctx)
}

// CallNext advances the globally oldest pending appointment to called and
// stamps calledAt. The paging notification is best-effort.
func (s *QueueService) CallNext(ctx context.Context) (*domain.Appointment, error) {
	appt, err := s.appointments.ClaimNextPending(ctx, s.now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewEmptyQueue()
		}
		return nil, err
	}
	s.metrics.RecordCall()

	s.publishEvent(ctx, events.Event{
		Type:          events.EventQueueCalled,
		AppointmentID: appt.ID,
		Payload: events.QueueCalledPayload{
			Name:        appt.Name,
			Phone:       appt.Phone,
			QueueNumber: appt.QueueNumber,
		},
	})
	return appt, nil
}

// MarkServed moves the appointment to served. The transition is forward-only
// and idempotent: serving twice keeps the first servedAt stamp.
func (s *QueueService) MarkServed(ctx context.Context, id string) (*domain.Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id required", nil)
	}
	appt, err := s.appointments.MarkServed(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("appointment", map[string]any{"id": id})
		}
		return nil, err
	}
	s.metrics.RecordServe()
	return appt, nil
}

// Search matches appointments by name, phone or queue number, case-insensitive
// substring. An empty query returns no results.
func (s *QueueService) Search(ctx context.Context, query string) ([]domain.Appointment, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.Appointment{}, nil
	}
	return s.appointments.Search(ctx, query)
}

func validateBookInput(input BookInput) error {
	missing := map[string]any{}
	if input.Name == "" {
		missing["name"] = "required"
	}
	if input.Phone == "" {
		missing["phone"] = "required"
	}
	if input.Service == "" {
		missing["service"] = "required"
	}
	if input.Date == "" {
		missing["date"] = "required"
	}
	if input.Time == "" {
		missing["time"] = "required"
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing fields", missing)
	}

	if _, err := time.Parse(domain.DateLayout, input.Date); err != nil {
		return apperrors.NewValidationError("invalid date, expected YYYY-MM-DD", map[string]any{"date": input.Date})
	}
	if _, err := time.Parse(domain.TimeLayout, input.Time); err != nil {
		return apperrors.NewValidationError("invalid time, expected HH:MM", map[string]any{"time": input.Time})
	}
	return nil
}

func (s *QueueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
