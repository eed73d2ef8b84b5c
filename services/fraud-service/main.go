package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	commonmw "github.com/paygate/backend/services/common/middleware"
	"github.com/paygate/backend/services/common/server"
	"github.com/paygate/backend/services/fraud-service/config"
	"github.com/paygate/backend/services/fraud-service/controllers"
	"github.com/paygate/backend/services/fraud-service/routes"
	"github.com/paygate/backend/services/fraud-service/services"
	"go.uber.org/zap"
)

const serviceName = "fraud-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := server.NewLogger(ctx, cfg.Environment, serviceName, cfg.CloudWatchEnabled, cfg.CloudWatchLogGroup)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	var metricsClient *aws_pkg.MetricsClient
	if awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx); awsErr != nil {
		logger.Warn("AWS config unavailable, CloudWatch metrics disabled", zap.Error(awsErr))
	} else {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	httpMetrics := commonmw.NewHTTPMetrics(serviceName)
	fraudService := services.NewFraudService(services.Options{
		Enabled:   cfg.FraudCheckEnabled,
		Threshold: cfg.FraudThreshold,
		Registry:  httpMetrics.Registry(),
		Logger:    logger,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewEngine(logger, server.Options{
		ServiceName: serviceName,
		CloudWatch:  metricsClient,
		Metrics:     httpMetrics,
	})
	routes.RegisterRoutes(r, controllers.NewFraudController(fraudService))

	if err := server.Run(ctx, ":"+cfg.Port, r, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
	}
}
