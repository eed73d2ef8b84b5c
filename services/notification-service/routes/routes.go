package routes

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/notification-service/controllers"
)

func RegisterRoutes(router *gin.Engine, controller *controllers.NotificationController) {
	api := router.Group("/api/v1/notifications", apperrors.ErrorMiddleware())
	{
		api.POST("", controller.SendNotification)
		api.GET("/attempts", controller.ListAttempts)
	}
}
