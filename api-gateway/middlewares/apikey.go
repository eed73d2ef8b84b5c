package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paygate/backend/api-gateway/cache"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"github.com/paygate/backend/services/common/clients"
	apperrors "github.com/paygate/backend/services/common/errors"
	"go.uber.org/zap"
)

const (
	APIKeyHeader = "X-API-Key"
	merchantKey  = "merchant"
	apiKeyKey    = "api_key"
)

// MerchantResolver maps an API key to its merchant, cache first.
type MerchantResolver struct {
	cache     cache.MerchantCache
	directory clients.MerchantDirectory
	metrics   aws_pkg.MetricsRecorder
	logger    *zap.Logger
}

// NewMerchantResolver accepts a nil cache.
func NewMerchantResolver(c cache.MerchantCache, dir clients.MerchantDirectory, logger *zap.Logger) *MerchantResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MerchantResolver{cache: c, directory: dir, logger: logger}
}

// WithCloudWatch makes r count cache hits and misses.
func (r *MerchantResolver) WithCloudWatch(m aws_pkg.MetricsRecorder) *MerchantResolver {
	r.metrics = m
	return r
}

// Resolve returns an *apperrors.Error carrying 401, 403 or 503 on failure.
// Only active merchants are cached.
func (r *MerchantResolver) Resolve(ctx context.Context, apiKey string) (*clients.Merchant, error) {
	if apiKey == "" {
		return nil, apperrors.Unauthorized("X-API-Key header is required")
	}

	if r.cache != nil {
		m, ok := r.cache.Get(ctx, apiKey)
		if ok {
			r.count(ctx, aws_pkg.MetricMerchantCacheHits)
			if !m.IsActive() {
				return nil, apperrors.Forbidden("Merchant status is " + m.Status)
			}
			return m, nil
		}
		r.count(ctx, aws_pkg.MetricMerchantCacheMiss)
	}

	m, err := r.directory.GetMerchantByAPIKey(ctx, apiKey)
	switch {
	case errors.Is(err, clients.ErrInvalidAPIKey), errors.Is(err, clients.ErrMerchantNotFound):
		return nil, apperrors.Unauthorized("Invalid API key")
	case err != nil:
		r.logger.Error("Merchant service unavailable", zap.Error(err))
		return nil, apperrors.Unavailable("Merchant service unavailable", err)
	}
	if !m.IsActive() {
		return nil, apperrors.Forbidden("Merchant status is " + m.Status)
	}

	if r.cache != nil {
		r.cache.Set(ctx, apiKey, m)
	}
	return m, nil
}

func (r *MerchantResolver) count(ctx context.Context, metric string) {
	if r.metrics == nil {
		return
	}
	if err := r.metrics.RecordCount(ctx, metric, nil); err != nil {
		r.logger.Debug("CloudWatch metric dropped", zap.String("metric", metric), zap.Error(err))
	}
}

// MerchantAuth authenticates X-API-Key and stores the merchant on the context.
func MerchantAuth(r *MerchantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(APIKeyHeader)
		m, err := r.Resolve(c.Request.Context(), apiKey)
		if err != nil {
			var appErr *apperrors.Error
			if errors.As(err, &appErr) && appErr.Code == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", "ApiKey")
			}
			apperrors.Respond(c, err)
			return
		}
		c.Set(merchantKey, m)
		c.Set(apiKeyKey, apiKey)
		c.Next()
	}
}

// CurrentMerchant returns the merchant set by MerchantAuth, or nil.
func CurrentMerchant(c *gin.Context) *clients.Merchant {
	if v, ok := c.Get(merchantKey); ok {
		if m, ok := v.(*clients.Merchant); ok {
			return m
		}
	}
	return nil
}

func CurrentAPIKey(c *gin.Context) string {
	return c.GetString(apiKeyKey)
}
