package routes

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paygate/backend/api-gateway/middlewares"
	commonmw "github.com/paygate/backend/services/common/middleware"
)

// ByAPIKey charges requests to a hash of their API key, or to the client IP
// when none is sent.
func ByAPIKey(c *gin.Context) string {
	key := c.GetHeader(middlewares.APIKeyHeader)
	if key == "" {
		return "ip:" + c.ClientIP()
	}
	sum := sha256.Sum256([]byte(key))
	return "api_key:" + hex.EncodeToString(sum[:])[:16]
}

// RegisterAllRoutes wires the public /v1 surface. limiter may be nil.
func RegisterAllRoutes(r *gin.Engine, payments *PaymentHandler, resolver *middlewares.MerchantResolver, limiter *commonmw.RateLimiter) {
	v1 := r.Group("/v1")
	if limiter != nil {
		v1.Use(commonmw.RateLimitMiddleware(limiter, ByAPIKey))
	}

	// The hosted challenge page completes 3DS without an API key.
	v1.POST("/payments/:id/complete-3ds", payments.CompleteThreeDS)

	authed := v1.Group("")
	authed.Use(middlewares.MerchantAuth(resolver))
	authed.GET("/me", Me)
	authed.POST("/payments", payments.CreatePayment)
	authed.GET("/payments/:id", payments.GetPayment)
}

// Me handles GET /v1/me
func Me(c *gin.Context) {
	m := middlewares.CurrentMerchant(c)
	c.JSON(http.StatusOK, gin.H{
		"merchant_id": m.MerchantID,
		"name":        m.Name,
		"email":       m.Email,
		"status":      m.Status,
	})
}
