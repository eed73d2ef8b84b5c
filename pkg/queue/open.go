package queue

import (
	"context"
	"fmt"
	"strings"

	aws_pkg "github.com/paygate/backend/pkg/aws"
	"go.uber.org/zap"
)

const (
	BackendSQS   = "sqs"
	BackendKafka = "kafka"
)

// Broker is both ends of a queue backend.
type Broker interface {
	Publisher
	Consume(ctx context.Context, queues []string, handler Handler) error
}

// Config selects and configures a backend. QueueURLs pins SQS queue URLs by
// logical queue name; unset queues are resolved by name.
type Config struct {
	Backend      string
	KafkaBrokers []string
	KafkaGroupID string
	QueueURLs    map[string]string
}

// Open builds the broker named by cfg.Backend. An empty backend means SQS.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Broker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendKafka:
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka backend needs at least one broker")
		}
		return NewKafkaBroker(cfg.KafkaBrokers, cfg.KafkaGroupID, logger), nil
	case "", BackendSQS:
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		opts := make([]SQSOption, 0, len(cfg.QueueURLs))
		for name, url := range cfg.QueueURLs {
			opts = append(opts, WithQueueURL(name, url))
		}
		return NewSQSBroker(aws_pkg.NewSQSClient(awsCfg), logger, opts...), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}
