package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/payment-service/providers"
	"go.uber.org/zap"
)

// ProviderController switches the active mock strategy at runtime. It only
// answers in the local environment.
type ProviderController struct {
	registry *providers.Registry
	selector *providers.Selector
	enabled  bool
	logger   *zap.Logger
}

func NewProviderController(registry *providers.Registry, selector *providers.Selector, enabled bool, logger *zap.Logger) *ProviderController {
	return &ProviderController{registry: registry, selector: selector, enabled: enabled, logger: logger}
}

type setProviderRequest struct {
	Provider string `json:"provider" binding:"required"`
}

func (pc *ProviderController) guard(c *gin.Context) bool {
	if !pc.enabled {
		_ = c.Error(apperrors.Forbidden("Provider switching is only available in the local environment"))
		return false
	}
	return true
}

// GetProvider handles GET /api/v1/provider
func (pc *ProviderController) GetProvider(c *gin.Context) {
	if !pc.guard(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current":   pc.selector.Current(),
		"available": pc.registry.Describe(),
	})
}

// SetProvider handles PUT /api/v1/provider
func (pc *ProviderController) SetProvider(c *gin.Context) {
	if !pc.guard(c) {
		return
	}
	var req setProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("Invalid request body", err))
		return
	}
	name, err := pc.selector.Set(req.Provider)
	if err != nil {
		_ = c.Error(apperrors.BadRequest("Unknown provider: "+req.Provider, err))
		return
	}
	pc.logger.Info("Active payment provider changed", zap.String("provider", name))
	c.JSON(http.StatusOK, gin.H{"current": name})
}
