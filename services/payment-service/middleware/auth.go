package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paygate/backend/services/common/clients"
	"go.uber.org/zap"
)

const (
	APIKeyHeader = "X-API-Key"
	MerchantKey  = "merchantID"
)

// MerchantAuth resolves X-API-Key against merchant-service and stores the
// merchant id in the context. A nil directory disables the check.
func MerchantAuth(dir clients.MerchantDirectory, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == nil {
			c.Next()
			return
		}
		apiKey := c.GetHeader(APIKeyHeader)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Missing API key"})
			return
		}

		merchant, err := dir.GetMerchantByAPIKey(c.Request.Context(), apiKey)
		switch {
		case errors.Is(err, clients.ErrInvalidAPIKey), errors.Is(err, clients.ErrMerchantNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "Invalid API key"})
			return
		case err != nil:
			logger.Warn("Merchant lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"code": http.StatusServiceUnavailable, "message": "Merchant service unavailable"})
			return
		}
		if !merchant.IsActive() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "Merchant account is " + merchant.Status})
			return
		}

		c.Set(MerchantKey, merchant.MerchantID)
		c.Next()
	}
}

// GetMerchantID returns "" when the request was not authenticated.
func GetMerchantID(c *gin.Context) string {
	if val, exists := c.Get(MerchantKey); exists {
		return val.(string)
	}
	return ""
}
