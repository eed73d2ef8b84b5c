package config

import (
	"context"
	"fmt"
	"time"

	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/pkg/queue"
	commoncfg "github.com/paygate/backend/services/common/config"
	"github.com/paygate/backend/services/notification-service/sender"
)

type Config struct {
	Port        string
	Environment string
	Postgres    commoncfg.Postgres

	SMTP          sender.SMTPConfig
	EmailEnabled  bool
	WebhookSecret string

	MerchantServiceURL string
	HTTPClientTimeout  time.Duration
	WebhookTimeout     time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration

	Queue           queue.Config
	ConsumerEnabled bool

	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

func LoadConfig() (*Config, error) {
	commoncfg.LoadDotEnv()

	cfg := &Config{
		Port:        commoncfg.GetEnv("PORT", "8003"),
		Environment: commoncfg.GetEnv("ENVIRONMENT", "local"),
		Postgres:    commoncfg.LoadPostgres("payment_gateway"),
		SMTP: sender.SMTPConfig{
			Host:     commoncfg.GetEnv("SMTP_HOST", "localhost"),
			Port:     commoncfg.GetEnvInt("SMTP_PORT", 587),
			Username: commoncfg.GetEnv("SMTP_USER", ""),
			Password: commoncfg.GetEnv("SMTP_PASSWORD", ""),
			From:     commoncfg.GetEnv("SMTP_FROM_EMAIL", "noreply@example.com"),
			UseTLS:   commoncfg.GetEnvBool("SMTP_USE_TLS", true),
			Timeout:  commoncfg.GetEnvDuration("SMTP_TIMEOUT", 30*time.Second),
		},
		EmailEnabled:       commoncfg.GetEnvBool("EMAIL_ENABLED", true),
		WebhookSecret:      commoncfg.GetEnv("WEBHOOK_SECRET", "webhook-secret-change-in-production"),
		MerchantServiceURL: commoncfg.GetEnv("MERCHANT_SERVICE_URL", "http://localhost:8001"),
		HTTPClientTimeout:  commoncfg.GetEnvDuration("HTTP_CLIENT_TIMEOUT", 5*time.Second),
		WebhookTimeout:     commoncfg.GetEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		MaxRetries:         commoncfg.GetEnvInt("MAX_RETRIES", 3),
		RetryBaseDelay:     time.Duration(commoncfg.GetEnvFloat("RETRY_BASE_DELAY", 1.0) * float64(time.Second)),
		Queue: queue.Config{
			Backend:      commoncfg.GetEnv("QUEUE_BACKEND", queue.BackendSQS),
			KafkaBrokers: commoncfg.GetEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaGroupID: commoncfg.GetEnv("KAFKA_GROUP_ID", "notification-service"),
			QueueURLs: map[string]string{
				evt.QueuePaymentSucceeded: commoncfg.GetEnv("PAYMENT_SUCCEEDED_QUEUE_URL", ""),
				evt.QueuePaymentFailed:    commoncfg.GetEnv("PAYMENT_FAILED_QUEUE_URL", ""),
			},
		},
		ConsumerEnabled:     commoncfg.GetEnvBool("CONSUMER_ENABLED", true),
		CloudWatchEnabled:   commoncfg.GetEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchLogGroup:  commoncfg.GetEnv("CLOUDWATCH_LOG_GROUP", "/paygate/notification-service"),
		CloudWatchNamespace: commoncfg.GetEnv("CLOUDWATCH_NAMESPACE", "PaymentGateway"),
	}

	ctx := context.Background()
	if src := commoncfg.NewSecretSource(ctx); src != nil {
		cfg.Postgres.ApplyDBSecret(ctx, src, "notification/DB_CREDENTIALS")
		commoncfg.OverrideFromSecret(ctx, src, "notification/WEBHOOK_SECRET", &cfg.WebhookSecret)
		commoncfg.OverrideFromSecret(ctx, src, "notification/SMTP_PASSWORD", &cfg.SMTP.Password)
	}

	if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.Host == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	return cfg, nil
}
