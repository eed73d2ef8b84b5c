package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	apperrors "github.com/paygate/backend/services/common/errors"
	"github.com/paygate/backend/services/payment-service/middleware"
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/paygate/backend/services/payment-service/services"
)

// PaymentController handles the payment lifecycle endpoints.
type PaymentController struct {
	paymentService services.PaymentService
}

func NewPaymentController(svc services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: svc}
}

// fail hands svcErr to the error middleware.
func fail(c *gin.Context, svcErr *services.ServiceError) {
	_ = c.Error(apperrors.New(svcErr.StatusCode, svcErr.Message, nil))
}

// CreatePayment handles POST /api/v1/payments
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			_ = c.Error(apperrors.New(http.StatusUnprocessableEntity, models.ValidationMessage(err), err))
			return
		}
		_ = c.Error(apperrors.BadRequest("Invalid request body", err))
		return
	}

	if merchantID := middleware.GetMerchantID(c); merchantID != "" && merchantID != req.MerchantID {
		_ = c.Error(apperrors.Forbidden("Merchant ID in request does not match API key"))
		return
	}

	payment, svcErr := pc.paymentService.CreatePayment(c.Request.Context(), &req)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// GetPayment handles GET /api/v1/payments/:id
func (pc *PaymentController) GetPayment(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	payment, svcErr := pc.paymentService.GetPayment(c.Request.Context(), id)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	if merchantID := middleware.GetMerchantID(c); merchantID != "" && merchantID != payment.MerchantID.String() {
		_ = c.Error(apperrors.Forbidden("Payment does not belong to this merchant"))
		return
	}
	c.JSON(http.StatusOK, payment)
}

// CompleteThreeDS handles POST /api/v1/payments/:id/complete-3ds
func (pc *PaymentController) CompleteThreeDS(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	payment, svcErr := pc.paymentService.CompleteThreeDS(c.Request.Context(), id)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// ListPayments handles GET /api/v1/payments
//
// Query: merchant_id, status, date_from, date_to (YYYY-MM-DD or RFC3339),
// page, page_size.
func (pc *PaymentController) ListPayments(c *gin.Context) {
	filter := models.PaymentFilter{Status: models.PaymentStatus(c.Query("status"))}

	if raw := c.Query("merchant_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = c.Error(apperrors.BadRequest("Invalid merchant_id", err))
			return
		}
		filter.MerchantID = &id
	}
	if merchantID := middleware.GetMerchantID(c); merchantID != "" {
		id, err := uuid.Parse(merchantID)
		if err == nil {
			filter.MerchantID = &id
		}
	}

	var err error
	if filter.From, err = parseDate(c.Query("date_from"), false); err != nil {
		_ = c.Error(apperrors.BadRequest("Invalid date_from", err))
		return
	}
	if filter.To, err = parseDate(c.Query("date_to"), true); err != nil {
		_ = c.Error(apperrors.BadRequest("Invalid date_to", err))
		return
	}
	filter.Page, filter.PageSize = parsePaginationParams(c)

	payments, total, svcErr := pc.paymentService.ListPayments(c.Request.Context(), filter)
	if svcErr != nil {
		fail(c, svcErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payments":  payments,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func paymentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("Invalid payment id", err))
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts a bare date or an RFC3339 timestamp. A bare end date
// covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// parsePaginationParams extracts and validates page/page_size query params.
func parsePaginationParams(c *gin.Context) (int, int) {
	const maxPageSize = 100
	page, size := 1, 20
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil && s > 0 {
		size = s
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
