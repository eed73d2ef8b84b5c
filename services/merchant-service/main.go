package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"github.com/paygate/backend/services/common/database"
	commonmw "github.com/paygate/backend/services/common/middleware"
	"github.com/paygate/backend/services/common/server"
	"github.com/paygate/backend/services/merchant-service/config"
	"github.com/paygate/backend/services/merchant-service/controllers"
	"github.com/paygate/backend/services/merchant-service/models"
	"github.com/paygate/backend/services/merchant-service/repository"
	"github.com/paygate/backend/services/merchant-service/routes"
	"github.com/paygate/backend/services/merchant-service/services"
	"go.uber.org/zap"
)

const serviceName = "merchant-service"

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

	db, err := database.ConnectPostgres(ctx, logger, cfg.Postgres, &models.Merchant{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	merchantService := services.NewMerchantService(repository.NewMerchantRepository(db), logger)
	if err := merchantService.SeedDemoMerchants(ctx, cfg.CreateDemoMerchant, cfg.CreateLoadTestMerchant); err != nil {
		logger.Error("Failed to seed demo merchants", zap.Error(err))
	}

	var metricsClient *aws_pkg.MetricsClient
	if awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx); awsErr != nil {
		logger.Warn("AWS config unavailable, CloudWatch metrics disabled", zap.Error(awsErr))
	} else {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewEngine(logger, server.Options{
		ServiceName: serviceName,
		CloudWatch:  metricsClient,
		Metrics:     commonmw.NewHTTPMetrics(serviceName),
	})
	routes.RegisterRoutes(r, controllers.NewMerchantController(merchantService))

	if err := server.Run(ctx, ":"+cfg.Port, r, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
	}
}
