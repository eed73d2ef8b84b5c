package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const attemptHeader = "x-delivery-attempt"

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBroker uses one topic per logical queue name. A message that must be
// redelivered is re-published to its topic and the original offset committed.
type KafkaBroker struct {
	writer    kafkaWriter
	newReader func(topics []string) kafkaReader
	logger    *zap.Logger

	mu     sync.Mutex
	reader kafkaReader
}

func NewKafkaBroker(brokers []string, groupID string, logger *zap.Logger) *KafkaBroker {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	newReader := func(topics []string) kafkaReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     brokers,
			GroupID:     groupID,
			GroupTopics: topics,
			MinBytes:    1,
			MaxBytes:    10e6,
		})
	}
	logger.Info("Kafka broker initialized", zap.Strings("brokers", brokers), zap.String("group_id", groupID))
	return &KafkaBroker{writer: w, newReader: newReader, logger: logger}
}

func (b *KafkaBroker) Publish(ctx context.Context, queue string, body []byte) error {
	return b.publish(ctx, queue, body, 1)
}

func (b *KafkaBroker) publish(ctx context.Context, topic string, body []byte, attempt int) error {
	msg := kafka.Message{
		Topic: topic,
		Value: body,
		Headers: []kafka.Header{
			{Key: attemptHeader, Value: []byte(strconv.Itoa(attempt))},
		},
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}
	return nil
}

// Consume reads every topic in queues through one consumer-group reader.
func (b *KafkaBroker) Consume(ctx context.Context, queues []string, handler Handler) error {
	reader := b.newReader(queues)
	b.mu.Lock()
	b.reader = reader
	b.mu.Unlock()

	b.logger.Info("Kafka consumer started", zap.Strings("topics", queues))
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				b.logger.Info("Kafka consumer shutting down")
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		attempt := attemptOf(m)
		herr := handler(ctx, Message{Queue: m.Topic, Body: m.Value, Attempt: attempt})

		switch Classify(herr) {
		case OutcomeDrop:
			b.logger.Error("dropping poison message", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(herr))
		case OutcomeRequeue:
			b.logger.Warn("message processing failed, requeueing",
				zap.String("topic", m.Topic),
				zap.Int("attempt", attempt),
				zap.Error(herr),
			)
			if err := b.publish(ctx, m.Topic, m.Value, attempt+1); err != nil {
				// offset stays uncommitted so the group redelivers after restart
				return fmt.Errorf("requeue failed: %w", err)
			}
		}

		if err := reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Error("failed to commit offset", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func attemptOf(m kafka.Message) int {
	for _, h := range m.Headers {
		if h.Key == attemptHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 1
}

func (b *KafkaBroker) Close() error {
	var errs []error
	b.mu.Lock()
	if b.reader != nil {
		errs = append(errs, b.reader.Close())
		b.reader = nil
	}
	b.mu.Unlock()
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}
