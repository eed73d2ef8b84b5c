// Package consumer feeds payment events from the broker into the
// notification pipeline.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	aws_pkg "github.com/paygate/backend/pkg/aws"
	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/pkg/queue"
	"github.com/paygate/backend/services/notification-service/services"
	"go.uber.org/zap"
)

var errNotPaymentEvent = errors.New("message is not a payment event")

type PaymentEventConsumer struct {
	queue   queue.Consumer
	service services.NotificationService
	logger  *zap.Logger
	metrics aws_pkg.MetricsRecorder
}

type Option func(*PaymentEventConsumer)

// WithCloudWatch counts processed and dropped messages.
func WithCloudWatch(m aws_pkg.MetricsRecorder) Option {
	return func(c *PaymentEventConsumer) { c.metrics = m }
}

func NewPaymentEventConsumer(q queue.Consumer, svc services.NotificationService, logger *zap.Logger, opts ...Option) *PaymentEventConsumer {
	c := &PaymentEventConsumer{queue: q, service: svc, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start consumes payment.succeeded and payment.failed until ctx is cancelled.
func (c *PaymentEventConsumer) Start(ctx context.Context) error {
	c.logger.Info("Payment event consumer started", zap.Strings("queues", evt.PaymentQueues))
	err := c.queue.Consume(ctx, evt.PaymentQueues, c.Handle)
	c.logger.Info("Payment event consumer stopped")
	return err
}

// Handle processes one message. Undecodable bodies and bodies without a
// payment id or status are dropped; processing failures go back to the broker
// for redelivery.
func (c *PaymentEventConsumer) Handle(ctx context.Context, msg queue.Message) error {
	var event evt.PaymentEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("Invalid JSON in message",
			zap.String("queue", msg.Queue),
			zap.Error(err),
		)
		c.count(ctx, aws_pkg.MetricQueuePoisonDropped, msg.Queue)
		return queue.Poison(err)
	}
	if event.PaymentID == "" || event.Status == "" {
		c.logger.Error("Message missing payment_id or status",
			zap.String("queue", msg.Queue),
			zap.String("payment_id", event.PaymentID),
			zap.String("status", event.Status),
		)
		c.count(ctx, aws_pkg.MetricQueuePoisonDropped, msg.Queue)
		return queue.Poison(errNotPaymentEvent)
	}
	if event.EventType == "" {
		event.EventType = msg.Queue
	}

	if err := c.service.ProcessPaymentEvent(ctx, event); err != nil {
		c.logger.Error("Error processing message",
			zap.String("event_type", event.EventType),
			zap.String("payment_id", event.PaymentID),
			zap.Error(err),
		)
		return fmt.Errorf("process %s: %w", event.EventType, err)
	}

	c.logger.Info("Successfully processed message",
		zap.String("event_type", event.EventType),
		zap.String("payment_id", event.PaymentID),
	)
	c.count(ctx, aws_pkg.MetricQueueMessages, msg.Queue)
	return nil
}

func (c *PaymentEventConsumer) count(ctx context.Context, metric, queueName string) {
	if c.metrics == nil {
		return
	}
	if err := c.metrics.RecordCount(ctx, metric, map[string]string{"Queue": queueName}); err != nil {
		c.logger.Debug("CloudWatch metric dropped", zap.String("metric", metric), zap.Error(err))
	}
}
