package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueue struct {
	queues []string
	bodies [][]byte
	err    error
}

func (f *fakeQueue) Publish(_ context.Context, queue string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.queues = append(f.queues, queue)
	f.bodies = append(f.bodies, body)
	return nil
}

func (f *fakeQueue) Close() error { return nil }

type fakeSNS struct {
	topics []string
	types  []string
}

func (f *fakeSNS) Publish(_ context.Context, topicArn, eventType string, _ []byte) error {
	f.topics = append(f.topics, topicArn)
	f.types = append(f.types, eventType)
	return nil
}

func payment(status models.PaymentStatus) *models.Payment {
	return &models.Payment{
		PaymentID:     uuid.New(),
		MerchantID:    uuid.New(),
		Amount:        decimal.RequireFromString("100"),
		Currency:      "USD",
		Status:        status,
		CustomerEmail: "buyer@example.com",
		Metadata:      map[string]interface{}{"order_id": "o-7"},
	}
}

func TestPublishPaymentEvent_Terminal(t *testing.T) {
	q := &fakeQueue{}
	sns := &fakeSNS{}
	pub := NewPaymentEventPublisher(q, sns, "arn:aws:sns:eu-west-2:000000000000:payment-events", zap.NewNop())
	fixed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	p := payment(models.StatusFailed)
	assert.True(t, pub.PublishPaymentEvent(context.Background(), p))

	require.Equal(t, []string{evt.QueuePaymentFailed}, q.queues)
	var got evt.PaymentEvent
	require.NoError(t, json.Unmarshal(q.bodies[0], &got))
	assert.Equal(t, "payment.failed", got.EventType)
	assert.Equal(t, p.PaymentID.String(), got.PaymentID)
	assert.Equal(t, "100.00", got.Amount)
	assert.Equal(t, "buyer@example.com", got.CustomerEmail)
	assert.Equal(t, "o-7", got.Metadata["order_id"])
	assert.True(t, fixed.Equal(got.Timestamp))

	assert.Equal(t, []string{"payment.failed"}, sns.types)
}

func TestPublishPaymentEvent_SkipsNonTerminal(t *testing.T) {
	q := &fakeQueue{}
	pub := NewPaymentEventPublisher(q, nil, "", zap.NewNop())

	for _, s := range []models.PaymentStatus{models.StatusProcessing, models.StatusRequiresAction, models.StatusPending} {
		assert.False(t, pub.PublishPaymentEvent(context.Background(), payment(s)))
	}
	assert.Empty(t, q.queues)
}

func TestPublishPaymentEvent_SwallowsBrokerErrors(t *testing.T) {
	q := &fakeQueue{err: errors.New("broker down")}
	sns := &fakeSNS{}
	pub := NewPaymentEventPublisher(q, sns, "arn:topic", zap.NewNop())

	assert.NotPanics(t, func() {
		assert.False(t, pub.PublishPaymentEvent(context.Background(), payment(models.StatusSucceeded)))
	})
	assert.Len(t, sns.topics, 1)
}

func TestBuildEvent_DefaultsMetadata(t *testing.T) {
	p := payment(models.StatusSucceeded)
	p.Metadata = nil
	p.CustomerEmail = ""

	e, ok := BuildEvent(p, time.Now())
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{}, e.Metadata)
	assert.NotContains(t, e.Payload(), "customer_email")
}
