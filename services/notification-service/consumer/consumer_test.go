package consumer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/pkg/queue"
	"github.com/paygate/backend/services/notification-service/consumer"
	"github.com/paygate/backend/services/notification-service/models"
	"github.com/paygate/backend/services/notification-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ProcessPaymentEvent(ctx context.Context, e evt.PaymentEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *mockService) SendNotification(context.Context, models.NotificationRequest) *services.ServiceError {
	return nil
}

func (m *mockService) ListAttempts(context.Context, models.AttemptFilter) ([]models.DeliveryAttempt, int64, *services.ServiceError) {
	return nil, 0, nil
}

func (m *mockService) Wait() {}

type fakeQueue struct {
	queues   []string
	messages []queue.Message
	outcomes []queue.Outcome
}

func (q *fakeQueue) Consume(ctx context.Context, queues []string, handler queue.Handler) error {
	q.queues = queues
	for _, msg := range q.messages {
		q.outcomes = append(q.outcomes, queue.Classify(handler(ctx, msg)))
	}
	return nil
}

func (q *fakeQueue) Close() error { return nil }

func TestStart_BindsBothQueues(t *testing.T) {
	svc := &mockService{}
	svc.On("ProcessPaymentEvent", mock.Anything, mock.MatchedBy(func(e evt.PaymentEvent) bool {
		return e.PaymentID == "p-1" && e.Amount == "12.00"
	})).Return(nil).Once()
	svc.On("ProcessPaymentEvent", mock.Anything, mock.MatchedBy(func(e evt.PaymentEvent) bool {
		return e.PaymentID == "p-2"
	})).Return(errors.New("db down")).Once()

	q := &fakeQueue{messages: []queue.Message{
		{Queue: evt.QueuePaymentSucceeded, Body: []byte(`{"event_type":"payment.succeeded","payment_id":"p-1","amount":"12.00","currency":"USD","status":"succeeded"}`)},
		{Queue: evt.QueuePaymentFailed, Body: []byte(`{not json`)},
		{Queue: evt.QueuePaymentFailed, Body: []byte(`{"payment_id":"p-2","status":"failed"}`)},
	}}

	c := consumer.NewPaymentEventConsumer(q, svc, zap.NewNop())
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, []string{"payment.succeeded", "payment.failed"}, q.queues)
	assert.Equal(t, []queue.Outcome{queue.OutcomeAck, queue.OutcomeDrop, queue.OutcomeRequeue}, q.outcomes)
	svc.AssertExpectations(t)
}

func TestHandle_FillsEventTypeFromQueue(t *testing.T) {
	svc := &mockService{}
	svc.On("ProcessPaymentEvent", mock.Anything, mock.MatchedBy(func(e evt.PaymentEvent) bool {
		return e.EventType == evt.QueuePaymentFailed
	})).Return(nil).Once()

	c := consumer.NewPaymentEventConsumer(&fakeQueue{}, svc, zap.NewNop())
	err := c.Handle(context.Background(), queue.Message{Queue: evt.QueuePaymentFailed, Body: []byte(`{"payment_id":"p-3","status":"failed"}`)})

	assert.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestHandle_DropsBodiesThatAreNotPaymentEvents(t *testing.T) {
	bodies := map[string]string{
		"empty object":       `{}`,
		"missing payment_id": `{"status":"succeeded","amount":"1.00"}`,
		"missing status":     `{"payment_id":"p-4"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			svc := &mockService{}
			c := consumer.NewPaymentEventConsumer(&fakeQueue{}, svc, zap.NewNop())

			err := c.Handle(context.Background(), queue.Message{Queue: evt.QueuePaymentSucceeded, Body: []byte(body)})

			assert.ErrorIs(t, err, queue.ErrPoison)
			assert.Equal(t, queue.OutcomeDrop, queue.Classify(err))
			svc.AssertNotCalled(t, "ProcessPaymentEvent", mock.Anything, mock.Anything)
		})
	}
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordCount(_ context.Context, metric string, dims map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[metric+"/"+dims["Queue"]]++
	return nil
}

func (r *countingRecorder) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	return nil
}

func TestHandle_CountsProcessedAndDropped(t *testing.T) {
	svc := &mockService{}
	svc.On("ProcessPaymentEvent", mock.Anything, mock.Anything).Return(nil).Once()
	rec := &countingRecorder{}
	c := consumer.NewPaymentEventConsumer(&fakeQueue{}, svc, zap.NewNop(), consumer.WithCloudWatch(rec))

	require.NoError(t, c.Handle(context.Background(), queue.Message{
		Queue: evt.QueuePaymentSucceeded,
		Body:  []byte(`{"payment_id":"p-5","status":"succeeded"}`),
	}))
	require.Error(t, c.Handle(context.Background(), queue.Message{Queue: evt.QueuePaymentFailed, Body: []byte(`nope`)}))

	assert.Equal(t, map[string]int{
		"QueueMessagesProcessed/payment.succeeded":  1,
		"QueuePoisonMessagesDropped/payment.failed": 1,
	}, rec.counts)
}
