package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"github.com/paygate/backend/services/common/logger"
	"github.com/paygate/backend/services/common/middleware"
	"go.uber.org/zap"
)

const (
	RequestTimeout  = 30 * time.Second
	ShutdownTimeout = 5 * time.Second
)

// NewLogger builds the service logger, tee'd to CloudWatch Logs when enabled.
// A CloudWatch failure is logged and the service keeps console logging.
func NewLogger(ctx context.Context, env, service string, cloudWatchEnabled bool, logGroup string) (*zap.Logger, error) {
	if !cloudWatchEnabled {
		return logger.New(env, service, nil)
	}

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
	if err == nil {
		var cw *aws_pkg.CloudWatchLogsClient
		if cw, err = aws_pkg.NewCloudWatchLogsClient(ctx, awsCfg, logGroup, service); err == nil {
			return logger.New(env, service, cw)
		}
	}

	log, lerr := logger.New(env, service, nil)
	if lerr != nil {
		return nil, lerr
	}
	log.Warn("CloudWatch logging unavailable, using console only", zap.Error(err))
	return log, nil
}

type Options struct {
	ServiceName string
	// CloudWatch may be nil or disabled.
	CloudWatch *aws_pkg.MetricsClient
	// Metrics is created when nil. Pass one in to register business
	// collectors on the same /metrics registry.
	Metrics *middleware.HTTPMetrics
}

// NewEngine returns a gin engine with the shared middleware chain plus
// /health and /metrics.
func NewEngine(log *zap.Logger, opts Options) *gin.Engine {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = middleware.NewHTTPMetrics(opts.ServiceName)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.SecurityHeaders(),
		middleware.Timeout(RequestTimeout),
		metrics.Middleware(),
		middleware.CloudWatchMetrics(opts.CloudWatch, opts.ServiceName),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": opts.ServiceName})
	})
	r.GET("/metrics", metrics.Handler())
	return r
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Info("Server started", zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server exited cleanly")
	return nil
}
