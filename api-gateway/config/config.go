package config

import (
	"time"

	commoncfg "github.com/paygate/backend/services/common/config"
)

type Config struct {
	Port        string
	Environment string

	MerchantServiceURL string
	PaymentServiceURL  string
	HTTPClientTimeout  time.Duration
	UpstreamTimeout    time.Duration

	RedisURL         string
	MerchantCacheTTL time.Duration

	RateLimitEnabled  bool
	RateLimitRequests int
	CORSOrigins       []string

	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

func LoadConfig() *Config {
	commoncfg.LoadDotEnv()

	return &Config{
		Port:               commoncfg.GetEnv("PORT", "8000"),
		Environment:        commoncfg.GetEnv("ENVIRONMENT", "local"),
		MerchantServiceURL: commoncfg.GetEnv("MERCHANT_SERVICE_URL", "http://localhost:8001"),
		PaymentServiceURL:  commoncfg.GetEnv("PAYMENT_SERVICE_URL", "http://localhost:8002"),
		HTTPClientTimeout:  commoncfg.GetEnvDuration("HTTP_CLIENT_TIMEOUT", 10*time.Second),
		UpstreamTimeout:    commoncfg.GetEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		RedisURL:           commoncfg.GetEnv("REDIS_URL", "redis://localhost:6379/0"),
		MerchantCacheTTL:   commoncfg.GetEnvDuration("MERCHANT_CACHE_TTL", 60*time.Second),
		RateLimitEnabled:   commoncfg.GetEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests:  commoncfg.GetEnvInt("RATE_LIMIT_REQUESTS", 1000),
		CORSOrigins: commoncfg.GetEnvList("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:8080",
		}),
		CloudWatchEnabled:   commoncfg.GetEnvBool("CLOUDWATCH_ENABLED", false),
		CloudWatchLogGroup:  commoncfg.GetEnv("CLOUDWATCH_LOG_GROUP", "/paygate/api-gateway"),
		CloudWatchNamespace: commoncfg.GetEnv("CLOUDWATCH_NAMESPACE", "PaymentGateway"),
	}
}
