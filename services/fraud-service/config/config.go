package config

import (
	"fmt"

	commoncfg "github.com/paygate/backend/services/common/config"
)

type Config struct {
	Port        string
	Environment string

	FraudCheckEnabled bool
	FraudThreshold    float64

	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

func LoadConfig() (*Config, error) {
	commoncfg.LoadDotEnv()

	cfg := &Config{
		Port:                commoncfg.GetEnv("PORT", "8004"),
		Environment:         commoncfg.GetEnv("ENVIRONMENT", "local"),
		FraudCheckEnabled:   commoncfg.GetEnvBool("FRAUD_CHECK_ENABLED", true),
		FraudThreshold:      commoncfg.GetEnvFloat("FRAUD_THRESHOLD", 0.8),
		CloudWatchEnabled:   commoncfg.GetEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchLogGroup:  commoncfg.GetEnv("CLOUDWATCH_LOG_GROUP", "/paygate/fraud-service"),
		CloudWatchNamespace: commoncfg.GetEnv("CLOUDWATCH_NAMESPACE", "PaymentGateway"),
	}

	if cfg.FraudThreshold <= 0 || cfg.FraudThreshold > 1 {
		return nil, fmt.Errorf("FRAUD_THRESHOLD must be in (0, 1], got %g", cfg.FraudThreshold)
	}
	return cfg, nil
}
