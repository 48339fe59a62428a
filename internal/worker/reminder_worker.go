package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/queue-service/internal/domain"
	"github.com/spec-kit/queue-service/internal/events"
	"github.com/spec-kit/queue-service/internal/observability"
	"github.com/spec-kit/queue-service/internal/repository"
)

// ReminderWorker periodically scans pending appointments and fires at most one
// reminder per appointment. The trigger is monotonic: a reminder fires once the
// time until the appointment drops to or below the configured window, so no
// tick spacing can cause a miss. The reminder_sent compare-and-set is claimed
// before dispatch, which makes delivery at-most-once even if ticks overlap.
type ReminderWorker struct {
	repo        repository.AppointmentRepository
	dispatcher  events.Dispatcher
	lease       *TickLease
	logger      *zap.Logger
	metrics     *observability.Metrics
	hoursBefore float64
	interval    time.Duration
	location    *time.Location
	now         func() time.Time
}

// ReminderWorkerConfig bundles tuning values for the worker.
type ReminderWorkerConfig struct {
	HoursBefore float64
	Interval    time.Duration
	Location    *time.Location
	Now         func() time.Time
}

// NewReminderWorker constructs the worker.
func NewReminderWorker(repo repository.AppointmentRepository, dispatcher events.Dispatcher, lease *TickLease, logger *zap.Logger, metrics *observability.Metrics, cfg ReminderWorkerConfig) *ReminderWorker {
	if cfg.HoursBefore <= 0 {
		cfg.HoursBefore = 24
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ReminderWorker{
		repo:        repo,
		dispatcher:  dispatcher,
		lease:       lease,
		logger:      logger,
		metrics:     metrics,
		hoursBefore: cfg.HoursBefore,
		interval:    cfg.Interval,
		location:    cfg.Location,
		now:         cfg.Now,
	}
}

// Run ticks until the context is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started",
		zap.Float64("hours_before", w.hoursBefore),
		zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.Error("reminder tick failed", zap.Error(err))
			}
		}
	}
}

// Tick runs one reminder scan. A failure on one appointment never aborts the
// rest of the scan.
func (w *ReminderWorker) Tick(ctx context.Context) error {
	release, ok := w.lease.Acquire(ctx)
	if !ok {
		w.logger.Debug("reminder tick skipped; lease held elsewhere")
		return nil
	}
	defer release()

	candidates, err := w.repo.ListReminderCandidates(ctx)
	if err != nil {
		return err
	}

	now := w.now()
	for i := range candidates {
		if err := w.evaluate(ctx, &candidates[i], now); err != nil {
			w.logger.Warn("skipping appointment in reminder scan",
				zap.String("appointment_id", candidates[i].ID),
				zap.Error(err))
		}
	}
	return nil
}

func (w *ReminderWorker) evaluate(ctx context.Context, appt *domain.Appointment, now time.Time) error {
	scheduledAt, err := appt.ScheduledAt(w.location)
	if err != nil {
		return err
	}

	hoursUntil := scheduledAt.Sub(now).Hours()
	// Already elapsed appointments are stale; a reminder would be meaningless.
	if hoursUntil <= 0 || hoursUntil > w.hoursBefore {
		return nil
	}

	// An appointment booked after its window opened never crossed the
	// threshold while pending, so it gets no reminder.
	windowOpens := scheduledAt.Add(-time.Duration(w.hoursBefore * float64(time.Hour)))
	if !appt.CreatedAt.Before(windowOpens) {
		return nil
	}

	claimed, err := w.repo.ClaimReminder(ctx, appt.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	w.metrics.RecordReminderSent()
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:            uuid.NewString(),
		Type:          events.EventReminderDue,
		AppointmentID: appt.ID,
		Timestamp:     now,
		Payload: events.ReminderDuePayload{
			Phone:       appt.Phone,
			Service:     appt.Service,
			Date:        appt.Date,
			Time:        appt.Time,
			QueueNumber: appt.QueueNumber,
		},
	})
	w.logger.Info("reminder fired",
		zap.String("appointment_id", appt.ID),
		zap.Float64("hours_until", hoursUntil))
	return nil
}
