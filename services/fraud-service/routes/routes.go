package routes

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/fraud-service/controllers"
)

func RegisterRoutes(r *gin.Engine, fc *controllers.FraudController) {
	fraud := r.Group("/api/v1/fraud", apperrors.ErrorMiddleware())
	fraud.POST("/check", fc.Check)
}
