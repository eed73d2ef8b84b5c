package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/services/notification-service/controllers"
	"github.com/paygate/backend/services/notification-service/models"
	"github.com/paygate/backend/services/notification-service/routes"
	"github.com/paygate/backend/services/notification-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSvc struct {
	sent     []models.NotificationRequest
	sendErr  *services.ServiceError
	filter   models.AttemptFilter
	attempts []models.DeliveryAttempt
	total    int64
	listErr  *services.ServiceError
}

func (m *mockSvc) ProcessPaymentEvent(context.Context, evt.PaymentEvent) error { return nil }

func (m *mockSvc) SendNotification(_ context.Context, req models.NotificationRequest) *services.ServiceError {
	m.sent = append(m.sent, req)
	return m.sendErr
}

func (m *mockSvc) ListAttempts(_ context.Context, f models.AttemptFilter) ([]models.DeliveryAttempt, int64, *services.ServiceError) {
	m.filter = f
	return m.attempts, m.total, m.listErr
}

func (m *mockSvc) Wait() {}

func setupRouter(svc services.NotificationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	routes.RegisterRoutes(r, controllers.NewNotificationController(svc))
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSendNotification_Accepted(t *testing.T) {
	svc := &mockSvc{}
	r := setupRouter(svc)

	w := postJSON(r, "/api/v1/notifications", map[string]interface{}{
		"recipient":         "buyer@example.com",
		"subject":           "Payment succeeded",
		"body":              "Payment p-1 is SUCCEEDED.",
		"notification_type": "email",
		"metadata":          map[string]interface{}{"payment_id": "p-1"},
	})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"status":"queued"}`, w.Body.String())
	require.Len(t, svc.sent, 1)
	assert.Equal(t, "p-1", svc.sent[0].PaymentID())
}

func TestSendNotification_Validation(t *testing.T) {
	svc := &mockSvc{}
	r := setupRouter(svc)

	w := postJSON(r, "/api/v1/notifications", map[string]interface{}{
		"recipient": "not-an-email",
		"subject":   "s",
		"body":      "b",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "recipient failed on email")

	w = postJSON(r, "/api/v1/notifications", `{"recipient":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.sent)
}

func TestSendNotification_ServiceError(t *testing.T) {
	svc := &mockSvc{sendErr: &services.ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Email delivery is not configured"}}
	r := setupRouter(svc)

	w := postJSON(r, "/api/v1/notifications", map[string]interface{}{
		"recipient": "buyer@example.com", "subject": "s", "body": "b",
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"code":503,"message":"Email delivery is not configured"}`, w.Body.String())
}

func TestListAttempts_Filters(t *testing.T) {
	code := 200
	svc := &mockSvc{
		attempts: []models.DeliveryAttempt{{PaymentID: "p-1", AttemptNumber: 1, NotificationType: "webhook", Status: "success", ResponseCode: &code}},
		total:    41,
	}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/attempts?payment_id=p-1&type=webhook&status=success&page=3&page_size=500", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AttemptFilter{PaymentID: "p-1", Status: "success", Type: "webhook", Page: 3, PageSize: 100}, svc.filter)

	var body struct {
		Data       []models.DeliveryAttempt `json:"data"`
		Total      int64                    `json:"total"`
		PageSize   int                      `json:"page_size"`
		TotalPages int                      `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.EqualValues(t, 41, body.Total)
	assert.Equal(t, 100, body.PageSize)
	assert.Equal(t, 1, body.TotalPages)
}

func TestListAttempts_Errors(t *testing.T) {
	svc := &mockSvc{}
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/attempts?type=sms", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.listErr = &services.ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Delivery attempts unavailable"}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/attempts", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 20, svc.filter.PageSize)
}

func TestListAttempts_EmptyIsArray(t *testing.T) {
	r := setupRouter(&mockSvc{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/attempts", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}
