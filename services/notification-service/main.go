package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"github.com/paygate/backend/pkg/queue"
	"github.com/paygate/backend/services/common/clients"
	"github.com/paygate/backend/services/common/database"
	commonmw "github.com/paygate/backend/services/common/middleware"
	"github.com/paygate/backend/services/common/server"
	"github.com/paygate/backend/services/notification-service/config"
	"github.com/paygate/backend/services/notification-service/consumer"
	"github.com/paygate/backend/services/notification-service/controllers"
	"github.com/paygate/backend/services/notification-service/models"
	"github.com/paygate/backend/services/notification-service/repository"
	"github.com/paygate/backend/services/notification-service/routes"
	"github.com/paygate/backend/services/notification-service/sender"
	"github.com/paygate/backend/services/notification-service/services"
	"github.com/paygate/backend/services/notification-service/webhook"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "notification-service"

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

	db, err := database.ConnectPostgres(ctx, logger, cfg.Postgres, &models.DeliveryAttempt{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	var metricsClient *aws_pkg.MetricsClient
	if awsCfg, awsErr := aws_pkg.LoadAWSConfig(ctx); awsErr != nil {
		logger.Warn("AWS config unavailable, CloudWatch metrics disabled", zap.Error(awsErr))
	} else {
		metricsClient = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, cfg.CloudWatchEnabled)
	}

	var emailSender sender.EmailSender
	if cfg.EmailEnabled {
		smtpSender, smtpErr := sender.NewSMTPSender(cfg.SMTP)
		if smtpErr != nil {
			logger.Warn("Email disabled", zap.Error(smtpErr))
		} else {
			emailSender = smtpSender
		}
	}

	httpMetrics := commonmw.NewHTTPMetrics(serviceName)
	notificationService := services.NewNotificationService(services.Dependencies{
		Repo:           repository.NewAttemptRepository(db),
		Email:          emailSender,
		Webhook:        webhook.NewSender(cfg.WebhookTimeout),
		Merchants:      clients.NewMerchantClient(cfg.MerchantServiceURL, cfg.HTTPClientTimeout),
		WebhookSecret:  cfg.WebhookSecret,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		Metrics:        services.NewNotificationMetrics(httpMetrics.Registry()),
		CloudWatch:     metricsClient,
		Logger:         logger,
	})

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := server.NewEngine(logger, server.Options{
		ServiceName: serviceName,
		CloudWatch:  metricsClient,
		Metrics:     httpMetrics,
	})
	routes.RegisterRoutes(r, controllers.NewNotificationController(notificationService))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, ":"+cfg.Port, r, logger)
	})

	if cfg.ConsumerEnabled {
		broker, qerr := queue.Open(ctx, cfg.Queue, logger)
		if qerr != nil {
			logger.Fatal("Failed to open event queue", zap.Error(qerr))
		}
		defer broker.Close() //nolint:errcheck

		c := consumer.NewPaymentEventConsumer(broker, notificationService, logger, consumer.WithCloudWatch(metricsClient))
		g.Go(func() error {
			return c.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		notificationService.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(server.ShutdownTimeout):
		logger.Warn("Background deliveries still running at shutdown")
	}
}
