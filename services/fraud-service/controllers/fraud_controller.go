package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/fraud-service/models"
	"github.com/paygate/backend/services/fraud-service/services"
)

type FraudController struct {
	fraudService services.FraudService
}

func NewFraudController(svc services.FraudService) *FraudController {
	return &FraudController{fraudService: svc}
}

// Check handles POST /api/v1/fraud/check
func (fc *FraudController) Check(c *gin.Context) {
	var req models.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			_ = c.Error(apperrors.New(http.StatusUnprocessableEntity, "Validation failed: "+strings.Join(fields, ", "), err))
			return
		}
		_ = c.Error(apperrors.BadRequest("Invalid request body", err))
		return
	}
	if req.Amount.IsNegative() {
		_ = c.Error(apperrors.New(http.StatusUnprocessableEntity, "Validation failed: amount must not be negative", nil))
		return
	}

	c.JSON(http.StatusOK, fc.fraudService.Check(c.Request.Context(), &req))
}
