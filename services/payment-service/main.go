package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"github.com/paygate/backend/pkg/queue"
	"github.com/paygate/backend/services/common/clients"
	"github.com/paygate/backend/services/common/database"
	commonmw "github.com/paygate/backend/services/common/middleware"
	"github.com/paygate/backend/services/common/server"
	paymentclients "github.com/paygate/backend/services/payment-service/clients"
	"github.com/paygate/backend/services/payment-service/config"
	"github.com/paygate/backend/services/payment-service/controllers"
	"github.com/paygate/backend/services/payment-service/events"
	"github.com/paygate/backend/services/payment-service/middleware"
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/paygate/backend/services/payment-service/providers"
	"github.com/paygate/backend/services/payment-service/repository"
	"github.com/paygate/backend/services/payment-service/routes"
	"github.com/paygate/backend/services/payment-service/services"
	"github.com/paygate/backend/services/payment-service/store"
	"go.uber.org/zap"
)

const serviceName = "payment-service"

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

	db, err := database.ConnectPostgres(ctx, logger, cfg.Postgres, &models.Payment{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	// AWS clients
	var (
		snsClient     aws_pkg.SNSPublisher
		metricsClient *aws_pkg.MetricsClient
	)
	if awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx); awsErr != nil {
		logger.Warn("AWS config unavailable, SNS and CloudWatch metrics disabled", zap.Error(awsErr))
	} else {
		if cfg.PaymentSNSTopicARN != "" {
			snsClient = aws_pkg.NewSNSClient(awsCfg)
		}
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	broker, err := queue.Open(ctx, cfg.Queue, logger)
	if err != nil {
		logger.Fatal("Failed to open event queue", zap.Error(err))
	}
	defer broker.Close() //nolint:errcheck

	// Strategy registry and DI chain
	paymentStore := store.NewMemoryStore()
	registry := providers.NewRegistry(paymentStore, nil)
	selector := providers.NewSelector(cfg.PaymentProvider)
	logger.Info("Payment provider selected", zap.String("provider", selector.Current()))

	var fraudChecker paymentclients.FraudChecker
	if cfg.FraudCheckEnabled {
		fraudChecker = paymentclients.NewFraudClient(cfg.FraudServiceURL, cfg.HTTPClientTimeout)
	}
	var merchants clients.MerchantDirectory
	if cfg.MerchantAuthEnabled {
		merchants = clients.NewMerchantClient(cfg.MerchantServiceURL, cfg.HTTPClientTimeout)
	}

	httpMetrics := commonmw.NewHTTPMetrics(serviceName)
	paymentService := services.NewPaymentService(services.Dependencies{
		Store:          paymentStore,
		Registry:       registry,
		Selector:       selector,
		Repo:           repository.NewGormPaymentRepo(db),
		Fraud:          fraudChecker,
		Notifier:       paymentclients.NewNotificationClient(cfg.NotificationServiceURL, cfg.HTTPClientTimeout),
		Events:         events.NewPaymentEventPublisher(broker, snsClient, cfg.PaymentSNSTopicARN, logger),
		Metrics:        services.NewPaymentMetrics(httpMetrics.Registry()),
		CloudWatch:     metricsClient,
		Logger:         logger,
		NotifyTimeout:  cfg.NotifyTimeout,
		PublishTimeout: cfg.PublishTimeout,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewEngine(logger, server.Options{
		ServiceName: serviceName,
		CloudWatch:  metricsClient,
		Metrics:     httpMetrics,
	})

	routes.RegisterPaymentRoutes(r,
		controllers.NewPaymentController(paymentService),
		controllers.NewProviderController(registry, selector, cfg.IsLocal(), logger),
		middleware.MerchantAuth(merchants, logger),
	)

	if err := server.Run(ctx, ":"+cfg.Port, r, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
