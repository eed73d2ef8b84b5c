package routes

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/payment-service/controllers"
	"github.com/paygate/backend/services/payment-service/models"
)

var registerDecimal sync.Once

// RegisterPaymentRoutes sets up the payment and provider routes. auth guards
// the merchant-scoped endpoints; 3DS completion and listing stay open for the
// mock challenge page and the demo dashboard.
func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, prc *controllers.ProviderController, auth gin.HandlerFunc) {
	registerDecimal.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			models.RegisterDecimal(v)
		}
	})

	api := r.Group("/api/v1")
	api.Use(apperrors.ErrorMiddleware())

	payments := api.Group("/payments")
	payments.GET("", pc.ListPayments)
	payments.POST("/:id/complete-3ds", pc.CompleteThreeDS)

	merchantScoped := payments.Group("")
	merchantScoped.Use(auth)
	merchantScoped.POST("", pc.CreatePayment)
	merchantScoped.GET("/:id", pc.GetPayment)

	api.GET("/provider", prc.GetProvider)
	api.PUT("/provider", prc.SetProvider)
}
