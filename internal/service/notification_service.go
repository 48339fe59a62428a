package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/queue-service/internal/events"
	"github.com/spec-kit/queue-service/internal/notify"
	"github.com/spec-kit/queue-service/internal/observability"
	apperrors "github.com/spec-kit/queue-service/pkg/util"
)

// NotificationService turns domain events into SMS messages. Delivery failures
// are logged and counted, never propagated: the state transition that produced
// the event is the source of truth.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     notify.Sender
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender notify.Sender, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAppointmentBooked, n.handleAppointmentBooked)
	n.dispatcher.Subscribe(events.EventQueueCalled, n.handleQueueCalled)
	n.dispatcher.Subscribe(events.EventReminderDue, n.handleReminderDue)
}

func (n *NotificationService) handleAppointmentBooked(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AppointmentBookedPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Your appointment is confirmed. Service: %s. Date: %s %s. Queue #: %d.",
		payload.Service, payload.Date, payload.Time, payload.QueueNumber)
	n.send(ctx, event, payload.Phone, body)
	return nil
}

func (n *NotificationService) handleQueueCalled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.QueueCalledPayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Dear %s, your queue number %d is being called. Please proceed to the counter.",
		payload.Name, payload.QueueNumber)
	n.send(ctx, event, payload.Phone, body)
	return nil
}

func (n *NotificationService) handleReminderDue(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReminderDuePayload)
	if !ok {
		return nil
	}
	body := fmt.Sprintf("Reminder: Your appointment for %s is on %s %s. Queue #: %d.",
		payload.Service, payload.Date, payload.Time, payload.QueueNumber)
	n.send(ctx, event, payload.Phone, body)
	return nil
}

func (n *NotificationService) send(ctx context.Context, event events.Event, phone, body string) {
	reference, err := n.sender.Send(ctx, phone, body)
	if err != nil {
		dispatchErr := apperrors.NewDispatchError(err)
		n.metrics.RecordDispatchFailure()
		n.logger.Warn("notification dispatch failed",
			zap.String("appointment_id", event.AppointmentID),
			zap.String("event_type", string(event.Type)),
			zap.Error(dispatchErr))
		return
	}
	n.logger.Info("notification sent",
		zap.String("appointment_id", event.AppointmentID),
		zap.String("event_type", string(event.Type)),
		zap.String("reference", reference))
}
