package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/pkg/queue"
	commoncfg "github.com/paygate/backend/services/common/config"
)

type Config struct {
	Port        string
	Environment string
	Postgres    commoncfg.Postgres

	// PaymentProvider is the strategy active at startup.
	PaymentProvider string

	MerchantServiceURL     string
	FraudServiceURL        string
	NotificationServiceURL string
	MerchantAuthEnabled    bool
	FraudCheckEnabled      bool
	HTTPClientTimeout      time.Duration
	NotifyTimeout          time.Duration
	PublishTimeout         time.Duration

	Queue              queue.Config
	PaymentSNSTopicARN string

	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

// IsLocal reports whether runtime provider switching is allowed.
func (c *Config) IsLocal() bool {
	return strings.EqualFold(c.Environment, "local")
}

func LoadConfig() (*Config, error) {
	commoncfg.LoadDotEnv()

	cfg := &Config{
		Port:                   commoncfg.GetEnv("PORT", "8002"),
		Environment:            commoncfg.GetEnv("ENVIRONMENT", "local"),
		Postgres:               commoncfg.LoadPostgres("payment_gateway"),
		PaymentProvider:        commoncfg.GetEnv("PAYMENT_PROVIDER", "success"),
		MerchantServiceURL:     commoncfg.GetEnv("MERCHANT_SERVICE_URL", "http://localhost:8001"),
		FraudServiceURL:        commoncfg.GetEnv("FRAUD_SERVICE_URL", "http://localhost:8004"),
		NotificationServiceURL: commoncfg.GetEnv("NOTIFICATION_SERVICE_URL", "http://localhost:8003"),
		MerchantAuthEnabled:    commoncfg.GetEnvBool("MERCHANT_AUTH_ENABLED", true),
		FraudCheckEnabled:      commoncfg.GetEnvBool("FRAUD_CHECK_ENABLED", true),
		HTTPClientTimeout:      commoncfg.GetEnvDuration("HTTP_CLIENT_TIMEOUT", 5*time.Second),
		NotifyTimeout:          commoncfg.GetEnvDuration("NOTIFY_TIMEOUT", 5*time.Second),
		PublishTimeout:         commoncfg.GetEnvDuration("PUBLISH_TIMEOUT", 5*time.Second),
		Queue: queue.Config{
			Backend:      commoncfg.GetEnv("QUEUE_BACKEND", queue.BackendSQS),
			KafkaBrokers: commoncfg.GetEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			QueueURLs: map[string]string{
				evt.QueuePaymentSucceeded: commoncfg.GetEnv("PAYMENT_SUCCEEDED_QUEUE_URL", ""),
				evt.QueuePaymentFailed:    commoncfg.GetEnv("PAYMENT_FAILED_QUEUE_URL", ""),
			},
		},
		PaymentSNSTopicARN:  commoncfg.GetEnv("PAYMENT_SNS_TOPIC_ARN", ""),
		CloudWatchEnabled:   commoncfg.GetEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchLogGroup:  commoncfg.GetEnv("CLOUDWATCH_LOG_GROUP", "/paygate/payment-service"),
		CloudWatchNamespace: commoncfg.GetEnv("CLOUDWATCH_NAMESPACE", "PaymentGateway"),
	}

	// Override DB credentials from Secrets Manager when running on AWS
	ctx := context.Background()
	if src := commoncfg.NewSecretSource(ctx); src != nil {
		cfg.Postgres.ApplyDBSecret(ctx, src, "payment/DB_CREDENTIALS")
	}

	if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.Host == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}
