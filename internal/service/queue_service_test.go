package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/queue-service/internal/domain"
	"github.com/spec-kit/queue-service/internal/events"
	"github.com/spec-kit/queue-service/internal/observability"
	"github.com/spec-kit/queue-service/internal/repository"
	apperrors "github.com/spec-kit/queue-service/pkg/util"
)

// testClock hands out strictly increasing timestamps so creation order is
// unambiguous.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{t: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService() (*QueueService, events.Dispatcher, *observability.Metrics) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	clock := newTestClock(time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC))
	svc := NewQueueService(QueueDependencies{
		AppointmentRepo: repository.NewMemoryRepository(),
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Now:             clock.Now,
	})
	return svc, dispatcher, metrics
}

func validBooking(name string) BookInput {
	return BookInput{
		Name:    name,
		Phone:   "555-0100",
		Service: "license renewal",
		Date:    "2025-06-01",
		Time:    "10:00",
	}
}

func TestBook_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		input BookInput
	}{
		{"missing name", BookInput{Phone: "1", Service: "s", Date: "2025-06-01", Time: "10:00"}},
		{"missing phone", BookInput{Name: "n", Service: "s", Date: "2025-06-01", Time: "10:00"}},
		{"missing service", BookInput{Name: "n", Phone: "1", Date: "2025-06-01", Time: "10:00"}},
		{"bad date", BookInput{Name: "n", Phone: "1", Service: "s", Date: "01/06/2025", Time: "10:00"}},
		{"bad time", BookInput{Name: "n", Phone: "1", Service: "s", Date: "2025-06-01", Time: "10am"}},
		{"whitespace only", BookInput{Name: "   ", Phone: "1", Service: "s", Date: "2025-06-01", Time: "10:00"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(ctx, tc.input)
			require.Error(t, err)
			var domainErr *apperrors.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
		})
	}
}

func TestQueueLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Book(ctx, validBooking("Alice"))
	require.NoError(t, err)
	assert.Equal(t, 1, a.QueueNumber)
	assert.Equal(t, domain.StatusPending, a.Status)

	b, err := svc.Book(ctx, validBooking("Bob"))
	require.NoError(t, err)
	assert.Equal(t, 2, b.QueueNumber)

	queue, err := svc.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, a.ID, queue[0].ID)
	assert.Equal(t, b.ID, queue[1].ID)

	called, err := svc.CallNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, called.ID)
	assert.Equal(t, domain.StatusCalled, called.Status)
	require.NotNil(t, called.CalledAt)

	served, err := svc.MarkServed(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusServed, served.Status)
	require.NotNil(t, served.ServedAt)

	// Serving again must not fail and keeps the first stamp.
	again, err := svc.MarkServed(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusServed, again.Status)
	assert.True(t, again.ServedAt.Equal(*served.ServedAt))

	queue, err = svc.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, b.ID, queue[0].ID)
}

func TestCallNext_EmptyQueue(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CallNext(context.Background())
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMPTY_QUEUE", domainErr.Code)
}

func TestMarkServed_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.MarkServed(context.Background(), "nope")
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestBook_PublishesEvent(t *testing.T) {
	svc, dispatcher, _ := newTestService()
	ctx := context.Background()

	var received []events.Event
	dispatcher.Subscribe(events.EventAppointmentBooked, func(_ context.Context, e events.Event) error {
		received = append(received, e)
		return nil
	})

	appt, err := svc.Book(ctx, validBooking("Alice"))
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, appt.ID, received[0].AppointmentID)
	payload, ok := received[0].Payload.(events.AppointmentBookedPayload)
	require.True(t, ok)
	assert.Equal(t, 1, payload.QueueNumber)
	assert.Equal(t, "555-0100", payload.Phone)
}

func TestCallNext_HandlerFailureDoesNotRollBack(t *testing.T) {
	svc, dispatcher, _ := newTestService()
	ctx := context.Background()

	dispatcher.Subscribe(events.EventQueueCalled, func(_ context.Context, _ events.Event) error {
		return errors.New("carrier down")
	})

	appt, err := svc.Book(ctx, validBooking("Alice"))
	require.NoError(t, err)

	called, err := svc.CallNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, called.ID)
	assert.Equal(t, domain.StatusCalled, called.Status)
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Book(ctx, validBooking("Alice"))
	require.NoError(t, err)

	results, err := svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.Search(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
