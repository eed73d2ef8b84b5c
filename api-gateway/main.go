package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/paygate/backend/api-gateway/cache"
	"github.com/paygate/backend/api-gateway/config"
	"github.com/paygate/backend/api-gateway/middlewares"
	"github.com/paygate/backend/api-gateway/routes"
	"github.com/paygate/backend/api-gateway/utils"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"github.com/paygate/backend/services/common/clients"
	commonmw "github.com/paygate/backend/services/common/middleware"
	"github.com/paygate/backend/services/common/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const serviceName = "api-gateway"

func main() {
	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := server.NewLogger(ctx, cfg.Environment, serviceName, cfg.CloudWatchEnabled, cfg.CloudWatchLogGroup)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Starting API Gateway...")

	var merchantCache cache.MerchantCache
	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	switch {
	case redisClient == nil:
		logger.Warn("Invalid REDIS_URL, merchant cache disabled", zap.Error(err))
	case err != nil:
		logger.Warn("Redis unreachable, lookups fall through to merchant-service until it recovers", zap.Error(err))
		merchantCache = cache.NewRedisMerchantCache(redisClient, cfg.MerchantCacheTTL, logger)
	default:
		merchantCache = cache.NewRedisMerchantCache(redisClient, cfg.MerchantCacheTTL, logger)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	var metricsClient *aws_pkg.MetricsClient
	if awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx); awsErr != nil {
		logger.Warn("AWS config unavailable, CloudWatch metrics disabled", zap.Error(awsErr))
	} else {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	resolver := middlewares.NewMerchantResolver(
		merchantCache,
		clients.NewMerchantClient(cfg.MerchantServiceURL, cfg.HTTPClientTimeout),
		logger,
	).WithCloudWatch(metricsClient)
	payments := routes.NewPaymentHandler(cfg.PaymentServiceURL, utils.NewForwarder(cfg.UpstreamTimeout, logger), logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewEngine(logger, server.Options{
		ServiceName: serviceName,
		CloudWatch:  metricsClient,
	})
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middlewares.APIKeyHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	g, gctx := errgroup.WithContext(ctx)

	var limiter *commonmw.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = commonmw.NewRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitRequests, time.Minute)
		g.Go(func() error {
			limiter.Run(gctx)
			return nil
		})
	}
	routes.RegisterAllRoutes(r, payments, resolver, limiter)

	g.Go(func() error {
		return server.Run(gctx, ":"+cfg.Port, r, logger)
	})
	if err := g.Wait(); err != nil {
		logger.Error("API Gateway stopped with error", zap.Error(err))
	}
}
