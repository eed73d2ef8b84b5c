package config

import (
	"context"
	"fmt"

	commoncfg "github.com/paygate/backend/services/common/config"
)

type Config struct {
	Port        string
	Environment string
	Postgres    commoncfg.Postgres

	CreateDemoMerchant     bool
	CreateLoadTestMerchant bool

	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

func LoadConfig() (*Config, error) {
	commoncfg.LoadDotEnv()

	cfg := &Config{
		Port:                   commoncfg.GetEnv("PORT", "8001"),
		Environment:            commoncfg.GetEnv("ENVIRONMENT", "local"),
		Postgres:               commoncfg.LoadPostgres("payment_gateway"),
		CreateDemoMerchant:     commoncfg.GetEnvBool("CREATE_DEMO_MERCHANT", true),
		CreateLoadTestMerchant: commoncfg.GetEnvBool("CREATE_LOADTEST_MERCHANT", false),
		CloudWatchEnabled:      commoncfg.GetEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchLogGroup:     commoncfg.GetEnv("CLOUDWATCH_LOG_GROUP", "/paygate/merchant-service"),
		CloudWatchNamespace:    commoncfg.GetEnv("CLOUDWATCH_NAMESPACE", "PaymentGateway"),
	}

	ctx := context.Background()
	if src := commoncfg.NewSecretSource(ctx); src != nil {
		cfg.Postgres.ApplyDBSecret(ctx, src, "merchant/DB_CREDENTIALS")
	}

	if cfg.Postgres.User == "" || cfg.Postgres.Password == "" || cfg.Postgres.Host == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}
