package routes

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/merchant-service/controllers"
)

func RegisterRoutes(r *gin.Engine, mc *controllers.MerchantController) {
	merchants := r.Group("/api/v1/merchants", apperrors.ErrorMiddleware())
	{
		merchants.POST("", mc.CreateMerchant)
		merchants.GET("", mc.ListMerchants)
		merchants.GET("/by-api-key", mc.GetMerchantByAPIKey)
		merchants.GET("/:id", mc.GetMerchant)
		merchants.PATCH("/:id", mc.UpdateMerchant)
		merchants.POST("/:id/api-keys", mc.AddAPIKey)
	}
}
