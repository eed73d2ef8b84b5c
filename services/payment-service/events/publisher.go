package events

import (
	"context"
	"encoding/json"
	"time"

	aws_pkg "github.com/paygate/backend/pkg/aws"
	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/pkg/queue"
	"github.com/paygate/backend/services/payment-service/models"
	"go.uber.org/zap"
)

type Publisher interface {
	PublishPaymentEvent(ctx context.Context, payment *models.Payment) bool
}

// PaymentEventPublisher hands terminal payments to the notification pipeline.
// Delivery is best-effort: failures are logged, never returned.
type PaymentEventPublisher struct {
	queue       queue.Publisher
	sns         aws_pkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentEventPublisher mirrors every event to snsTopicArn as well when
// both sns and the ARN are set.
func NewPaymentEventPublisher(q queue.Publisher, sns aws_pkg.SNSPublisher, snsTopicArn string, logger *zap.Logger) *PaymentEventPublisher {
	return &PaymentEventPublisher{
		queue:       q,
		sns:         sns,
		snsTopicArn: snsTopicArn,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func BuildEvent(payment *models.Payment, at time.Time) (evt.PaymentEvent, bool) {
	status := string(payment.Status)
	queueName := evt.QueueFor(status)
	if queueName == "" {
		return evt.PaymentEvent{}, false
	}
	metadata := models.CloneMetadata(payment.Metadata)
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return evt.PaymentEvent{
		EventType:     queueName,
		PaymentID:     payment.PaymentID.String(),
		MerchantID:    payment.MerchantID.String(),
		Amount:        evt.FormatAmount(payment.Amount),
		Currency:      payment.Currency,
		Status:        status,
		CustomerEmail: payment.CustomerEmail,
		Metadata:      metadata,
		Timestamp:     at,
	}, true
}

// PublishPaymentEvent reports whether the event reached the queue. Payments
// that are not succeeded or failed are skipped.
func (p *PaymentEventPublisher) PublishPaymentEvent(ctx context.Context, payment *models.Payment) bool {
	event, ok := BuildEvent(payment, p.now())
	if !ok {
		return false
	}
	log := p.logger.With(
		zap.String("payment_id", event.PaymentID),
		zap.String("event_type", event.EventType),
	)

	body, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to encode payment event", zap.Error(err))
		return false
	}

	published := true
	if err := p.queue.Publish(ctx, event.EventType, body); err != nil {
		log.Warn("Failed to publish payment event", zap.Error(err))
		published = false
	} else {
		log.Info("Payment event published")
	}

	if p.sns != nil && p.snsTopicArn != "" {
		if err := p.sns.Publish(ctx, p.snsTopicArn, event.EventType, body); err != nil {
			log.Warn("Failed to mirror payment event to SNS", zap.Error(err))
		}
	}
	return published
}
