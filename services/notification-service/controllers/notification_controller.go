package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/notification-service/models"
	"github.com/paygate/backend/services/notification-service/services"
)

type NotificationController struct {
	notificationService services.NotificationService
}

func NewNotificationController(svc services.NotificationService) *NotificationController {
	return &NotificationController{notificationService: svc}
}

const (
	maxPageSize     = 100
	defaultPage     = 1
	defaultPageSize = 20
)

func parsePaginationParams(ctx *gin.Context) (int, int) {
	page := defaultPage
	pageSize := defaultPageSize

	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("page_size", "20")); err == nil && l > 0 {
		pageSize = l
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}
	return page, pageSize
}

// SendNotification handles POST /api/v1/notifications. Delivery happens in
// the background; the response only confirms the request was accepted.
func (nc *NotificationController) SendNotification(ctx *gin.Context) {
	var req models.NotificationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			_ = ctx.Error(apperrors.New(http.StatusUnprocessableEntity, validationMessage(verrs), err))
			return
		}
		_ = ctx.Error(apperrors.BadRequest("Invalid request body", err))
		return
	}

	if svcErr := nc.notificationService.SendNotification(ctx.Request.Context(), req); svcErr != nil {
		_ = ctx.Error(apperrors.New(svcErr.StatusCode, svcErr.Message, nil))
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// ListAttempts handles GET /api/v1/notifications/attempts
func (nc *NotificationController) ListAttempts(ctx *gin.Context) {
	kind := ctx.Query("type")
	if kind != "" && kind != models.TypeEmail && kind != models.TypeWebhook {
		_ = ctx.Error(apperrors.BadRequest("invalid type", nil))
		return
	}

	page, pageSize := parsePaginationParams(ctx)

	filter := models.AttemptFilter{
		PaymentID: ctx.Query("payment_id"),
		Status:    ctx.Query("status"),
		Type:      kind,
		Page:      page,
		PageSize:  pageSize,
	}

	attempts, total, svcErr := nc.notificationService.ListAttempts(ctx.Request.Context(), filter)
	if svcErr != nil {
		_ = ctx.Error(apperrors.New(svcErr.StatusCode, svcErr.Message, nil))
		return
	}
	if attempts == nil {
		attempts = []models.DeliveryAttempt{}
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	ctx.JSON(http.StatusOK, gin.H{
		"data":        attempts,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
	})
}

func validationMessage(verrs validator.ValidationErrors) string {
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "Validation failed: " + strings.Join(fields, ", ")
}
