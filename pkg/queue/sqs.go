package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SQSBroker publishes to and long-polls SQS queues. Logical queue names are
// resolved to queue URLs on first use unless configured explicitly.
type SQSBroker struct {
	client aws_pkg.SQSAPI
	logger *zap.Logger

	mu   sync.Mutex
	urls map[string]string

	waitSeconds       int32
	visibilityTimeout int32
	maxMessages       int32
	errorBackoff      time.Duration
	// heartbeat is how often in-flight messages get their visibility
	// extended.
	heartbeat         time.Duration
}

type SQSOption func(*SQSBroker)

// WithQueueURL pins the URL for a logical queue name.
func WithQueueURL(queue, url string) SQSOption {
	return func(b *SQSBroker) {
		if url != "" {
			b.urls[queue] = url
		}
	}
}

func WithWaitTime(seconds int32) SQSOption {
	return func(b *SQSBroker) { b.waitSeconds = seconds }
}

func WithVisibilityTimeout(seconds int32) SQSOption {
	return func(b *SQSBroker) { b.visibilityTimeout = seconds }
}

func WithErrorBackoff(d time.Duration) SQSOption {
	return func(b *SQSBroker) { b.errorBackoff = d }
}

// WithHeartbeat sets how often the visibility of messages still being
// handled is pushed out by another visibility timeout. The default is half
// the visibility timeout; a negative value disables it.
func WithHeartbeat(d time.Duration) SQSOption {
	return func(b *SQSBroker) { b.heartbeat = d }
}

func NewSQSBroker(client aws_pkg.SQSAPI, logger *zap.Logger, opts ...SQSOption) *SQSBroker {
	b := &SQSBroker{
		client:            client,
		logger:            logger,
		urls:              make(map[string]string),
		waitSeconds:       20,
		visibilityTimeout: 60,
		maxMessages:       10,
		errorBackoff:      5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.heartbeat == 0 {
		b.heartbeat = time.Duration(b.visibilityTimeout) * time.Second / 2
	}
	return b
}

func (b *SQSBroker) queueURL(ctx context.Context, queue string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if url, ok := b.urls[queue]; ok {
		return url, nil
	}
	url, err := aws_pkg.GetQueueURL(ctx, b.client, queue)
	if err != nil {
		return "", err
	}
	b.urls[queue] = url
	return url, nil
}

func (b *SQSBroker) Publish(ctx context.Context, queue string, body []byte) error {
	url, err := b.queueURL(ctx, queue)
	if err != nil {
		return err
	}
	_, err = b.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    sdkaws.String(url),
		MessageBody: sdkaws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", queue, err)
	}
	return nil
}

// Consume runs one long-polling loop per queue until ctx is cancelled.
func (b *SQSBroker) Consume(ctx context.Context, queues []string, handler Handler) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queues {
		url, err := b.queueURL(ctx, q)
		if err != nil {
			return err
		}
		queue := q
		g.Go(func() error {
			b.poll(gctx, queue, url, handler)
			return nil
		})
	}
	return g.Wait()
}

func (b *SQSBroker) poll(ctx context.Context, queue, url string, handler Handler) {
	b.logger.Info("SQS consumer started", zap.String("queue", queue), zap.String("url", url))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("SQS consumer shutting down", zap.String("queue", queue))
			return
		default:
		}

		output, err := b.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            sdkaws.String(url),
			MaxNumberOfMessages: b.maxMessages,
			WaitTimeSeconds:     b.waitSeconds,
			VisibilityTimeout:   b.visibilityTimeout,
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{
				types.MessageSystemAttributeNameApproximateReceiveCount,
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.logger.Error("SQS receive error", zap.String("queue", queue), zap.Error(err))
			b.wait(ctx)
			continue
		}

		b.handleBatch(ctx, queue, url, output.Messages, handler)
	}
}

// handleBatch processes messages in order while a heartbeat keeps every
// message not yet handled invisible, so slow deliveries are not redelivered
// mid-flight.
func (b *SQSBroker) handleBatch(ctx context.Context, queue, url string, msgs []types.Message, handler Handler) {
	if len(msgs) == 0 {
		return
	}
	var mu sync.Mutex
	pending := make(map[string]struct{}, len(msgs))
	for _, msg := range msgs {
		if msg.ReceiptHandle != nil {
			pending[*msg.ReceiptHandle] = struct{}{}
		}
	}
	stop := b.keepInvisible(ctx, queue, url, func() []string {
		mu.Lock()
		defer mu.Unlock()
		receipts := make([]string, 0, len(pending))
		for r := range pending {
			receipts = append(receipts, r)
		}
		return receipts
	})
	defer stop()

	for _, msg := range msgs {
		b.handle(ctx, queue, url, msg, handler)
		if msg.ReceiptHandle != nil {
			mu.Lock()
			delete(pending, *msg.ReceiptHandle)
			mu.Unlock()
		}
	}
}

func (b *SQSBroker) keepInvisible(ctx context.Context, queue, url string, pending func() []string) (stop func()) {
	if b.heartbeat <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				for _, receipt := range pending() {
					b.extend(ctx, queue, url, receipt)
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (b *SQSBroker) extend(ctx context.Context, queue, url, receipt string) {
	_, err := b.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          sdkaws.String(url),
		ReceiptHandle:     sdkaws.String(receipt),
		VisibilityTimeout: b.visibilityTimeout,
	})
	if err != nil {
		b.logger.Warn("failed to extend SQS message visibility", zap.String("queue", queue), zap.Error(err))
	}
}

func (b *SQSBroker) handle(ctx context.Context, queue, url string, msg types.Message, handler Handler) {
	if msg.Body == nil || msg.ReceiptHandle == nil {
		b.logger.Error("received SQS message without body or receipt handle", zap.String("queue", queue))
		return
	}

	attempt := 0
	if v, ok := msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
		attempt, _ = strconv.Atoi(v)
	}

	err := handler(ctx, Message{
		Queue:   queue,
		Body:    unwrapSNS([]byte(*msg.Body)),
		Attempt: attempt,
	})

	switch Classify(err) {
	case OutcomeAck:
		b.delete(ctx, queue, url, msg.ReceiptHandle)
	case OutcomeDrop:
		b.logger.Error("dropping poison message", zap.String("queue", queue), zap.Error(err))
		b.delete(ctx, queue, url, msg.ReceiptHandle)
	default:
		// left in place; SQS redelivers after the visibility timeout
		b.logger.Warn("message processing failed, leaving for redelivery",
			zap.String("queue", queue),
			zap.Int("receive_count", attempt),
			zap.Error(err),
		)
	}
}

func (b *SQSBroker) delete(ctx context.Context, queue, url string, receiptHandle *string) {
	_, err := b.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      sdkaws.String(url),
		ReceiptHandle: receiptHandle,
	})
	if err != nil {
		b.logger.Error("failed to delete SQS message", zap.String("queue", queue), zap.Error(err))
	}
}

func (b *SQSBroker) wait(ctx context.Context) {
	t := time.NewTimer(b.errorBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (b *SQSBroker) Close() error { return nil }

// snsEnvelope is the wrapper SNS puts around messages delivered to SQS.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

func unwrapSNS(body []byte) []byte {
	var env snsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return body
	}
	if env.Type == "Notification" && env.Message != "" {
		return []byte(env.Message)
	}
	return body
}
