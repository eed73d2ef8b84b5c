package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/merchant-service/models"
	"github.com/paygate/backend/services/merchant-service/services"
)

const APIKeyHeader = "X-API-Key"

type MerchantController struct {
	merchantService services.MerchantService
}

func NewMerchantController(svc services.MerchantService) *MerchantController {
	return &MerchantController{merchantService: svc}
}

func fail(c *gin.Context, svcErr *services.ServiceError) {
	_ = c.Error(apperrors.New(svcErr.StatusCode, svcErr.Message, nil))
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			_ = c.Error(apperrors.New(http.StatusUnprocessableEntity, "Validation failed: "+strings.Join(fields, ", "), err))
			return false
		}
		_ = c.Error(apperrors.BadRequest("Invalid request body", err))
		return false
	}
	return true
}

func merchantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("Invalid merchant ID", err))
		return uuid.Nil, false
	}
	return id, true
}

// CreateMerchant handles POST /api/v1/merchants
func (mc *MerchantController) CreateMerchant(c *gin.Context) {
	var req models.CreateMerchantRequest
	if !bindJSON(c, &req) {
		return
	}
	merchant, svcErr := mc.merchantService.CreateMerchant(c.Request.Context(), &req)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, merchant)
}

// GetMerchant handles GET /api/v1/merchants/:id
func (mc *MerchantController) GetMerchant(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}
	merchant, svcErr := mc.merchantService.GetMerchant(c.Request.Context(), id)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, merchant)
}

// GetMerchantByAPIKey handles GET /api/v1/merchants/by-api-key. Inactive
// merchants are returned too; callers decide what their status allows.
func (mc *MerchantController) GetMerchantByAPIKey(c *gin.Context) {
	merchant, svcErr := mc.merchantService.GetMerchantByAPIKey(c.Request.Context(), c.GetHeader(APIKeyHeader))
	if svcErr != nil {
		if svcErr.StatusCode == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", "ApiKey")
		}
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, merchant)
}

// UpdateMerchant handles PATCH /api/v1/merchants/:id
func (mc *MerchantController) UpdateMerchant(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}
	var req models.UpdateMerchantRequest
	if !bindJSON(c, &req) {
		return
	}
	merchant, svcErr := mc.merchantService.UpdateMerchant(c.Request.Context(), id, &req)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, merchant)
}

// ListMerchants handles GET /api/v1/merchants
func (mc *MerchantController) ListMerchants(c *gin.Context) {
	filter := models.MerchantFilter{Status: c.Query("status"), Page: 1, PageSize: 20}
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if s, err := strconv.Atoi(c.Query("page_size")); err == nil && s > 0 {
		filter.PageSize = min(s, 100)
	}

	merchants, total, svcErr := mc.merchantService.ListMerchants(c.Request.Context(), filter)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	if merchants == nil {
		merchants = []models.Merchant{}
	}
	c.JSON(http.StatusOK, gin.H{
		"merchants": merchants,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

// AddAPIKey handles POST /api/v1/merchants/:id/api-keys
func (mc *MerchantController) AddAPIKey(c *gin.Context) {
	id, ok := merchantID(c)
	if !ok {
		return
	}
	merchant, key, svcErr := mc.merchantService.AddAPIKey(c.Request.Context(), id)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"merchant_id": merchant.ID, "api_key": key})
}
