package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/queue-service/internal/events"
	"github.com/spec-kit/queue-service/internal/observability"
)

type fakeSender struct {
	sent []struct{ to, body string }
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, struct{ to, body string }{to, body})
	return "REF-1", nil
}

func publishTestEvent(t *testing.T, dispatcher events.Dispatcher, eventType events.EventType, payload interface{}) {
	t.Helper()
	err := dispatcher.Publish(context.Background(), events.Event{
		ID:            "evt-1",
		Type:          eventType,
		AppointmentID: "appt-1",
		Timestamp:     time.Now(),
		Payload:       payload,
	})
	require.NoError(t, err)
}

func TestNotification_BookedMessage(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &fakeSender{}
	svc := NewNotificationService(dispatcher, sender, zap.NewNop(), observability.NewMetrics())
	svc.RegisterHandlers()

	publishTestEvent(t, dispatcher, events.EventAppointmentBooked, events.AppointmentBookedPayload{
		Name:        "Alice",
		Phone:       "555-0100",
		Service:     "license renewal",
		Date:        "2025-06-01",
		Time:        "10:00",
		QueueNumber: 3,
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "555-0100", sender.sent[0].to)
	assert.Equal(t, "Your appointment is confirmed. Service: license renewal. Date: 2025-06-01 10:00. Queue #: 3.", sender.sent[0].body)
}

func TestNotification_CalledMessage(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &fakeSender{}
	svc := NewNotificationService(dispatcher, sender, zap.NewNop(), observability.NewMetrics())
	svc.RegisterHandlers()

	publishTestEvent(t, dispatcher, events.EventQueueCalled, events.QueueCalledPayload{
		Name:        "Bob",
		Phone:       "555-0101",
		QueueNumber: 7,
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Dear Bob, your queue number 7 is being called. Please proceed to the counter.", sender.sent[0].body)
}

func TestNotification_ReminderMessage(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &fakeSender{}
	svc := NewNotificationService(dispatcher, sender, zap.NewNop(), observability.NewMetrics())
	svc.RegisterHandlers()

	publishTestEvent(t, dispatcher, events.EventReminderDue, events.ReminderDuePayload{
		Phone:       "555-0102",
		Service:     "permit pickup",
		Date:        "2025-06-01",
		Time:        "09:30",
		QueueNumber: 2,
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Reminder: Your appointment for permit pickup is on 2025-06-01 09:30. Queue #: 2.", sender.sent[0].body)
}

func TestNotification_DispatchFailureSwallowed(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	sender := &fakeSender{err: errors.New("gateway timeout")}
	metrics := observability.NewMetrics()
	svc := NewNotificationService(dispatcher, sender, zap.NewNop(), metrics)
	svc.RegisterHandlers()

	// Publish must succeed even though delivery fails.
	publishTestEvent(t, dispatcher, events.EventQueueCalled, events.QueueCalledPayload{
		Name:        "Bob",
		Phone:       "555-0101",
		QueueNumber: 7,
	})

	assert.Empty(t, sender.sent)
	assert.Equal(t, int64(1), metrics.Snapshot()["dispatch_failures"])
}
