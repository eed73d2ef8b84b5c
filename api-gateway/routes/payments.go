package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/paygate/backend/api-gateway/middlewares"
	"github.com/paygate/backend/api-gateway/utils"
	"github.com/paygate/backend/services/common/clients"
	apperrors "github.com/paygate/backend/services/common/errors"
	"go.uber.org/zap"
)

const (
	DefaultLogoURL         = "https://via.placeholder.com/120?text=Logo"
	DefaultPrimaryColor    = "#4F46E5"
	DefaultBackgroundColor = "#EEF2FF"

	mockThreeDSPath = "/mock-3ds"
)

type PaymentHandler struct {
	paymentServiceURL string
	forwarder         *utils.Forwarder
	logger            *zap.Logger
}

func NewPaymentHandler(paymentServiceURL string, f *utils.Forwarder, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{paymentServiceURL: paymentServiceURL, forwarder: f, logger: logger}
}

// CreatePayment handles POST /v1/payments. The body's merchant_id is replaced
// with the authenticated merchant before forwarding.
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	merchant := middlewares.CurrentMerchant(c)

	payload, err := decodeObject(c.Request.Body)
	if err != nil {
		apperrors.Respond(c, apperrors.BadRequest("Invalid request body", err))
		return
	}
	payload["merchant_id"] = merchant.MerchantID
	body, err := json.Marshal(payload)
	if err != nil {
		apperrors.Respond(c, apperrors.Internal(err))
		return
	}

	h.logger.Info("Creating payment", zap.String("merchant_id", merchant.MerchantID))
	h.relay(c, http.MethodPost, h.paymentServiceURL+"/api/v1/payments", body, merchant)
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	target := h.paymentServiceURL + "/api/v1/payments/" + url.PathEscape(c.Param("id"))
	h.relay(c, http.MethodGet, target, nil, middlewares.CurrentMerchant(c))
}

// CompleteThreeDS handles POST /v1/payments/:id/complete-3ds. The challenge
// page calls it without an API key.
func (h *PaymentHandler) CompleteThreeDS(c *gin.Context) {
	h.forwarder.Forward(c, utils.ForwardOptions{
		TargetURL: h.paymentServiceURL + "/api/v1/payments/" + url.PathEscape(c.Param("id")) + "/complete-3ds",
		Service:   "Payment service",
	})
}

// relay sends the request upstream and rewrites a 3DS next_action on success.
// Error answers pass through untouched.
func (h *PaymentHandler) relay(c *gin.Context, method, target string, body []byte, merchant *clients.Merchant) {
	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set(middlewares.APIKeyHeader, middlewares.CurrentAPIKey(c))
	if rid := c.GetHeader("X-Request-ID"); rid != "" {
		header.Set("X-Request-ID", rid)
	}

	status, respHeader, data, err := h.forwarder.Do(c.Request.Context(), method, target, body, header)
	if err != nil {
		h.logger.Error("Payment service request failed", zap.String("url", target), zap.Error(err))
		apperrors.Respond(c, apperrors.Unavailable("Payment service unavailable", err))
		return
	}

	if status >= 200 && status < 300 {
		if payment, derr := decodeObject(bytes.NewReader(data)); derr == nil && EnrichNextAction(payment, merchant) {
			if out, merr := json.Marshal(payment); merr == nil {
				data = out
			}
		}
	}

	utils.WriteResponseHeaders(c, respHeader)
	c.Data(status, "application/json", data)
}

// EnrichNextAction points a pending 3DS redirect at the branded challenge
// page. It reports whether payment was changed.
func EnrichNextAction(payment map[string]interface{}, merchant *clients.Merchant) bool {
	if merchant == nil {
		return false
	}
	if requires, _ := payment["requires_action"].(bool); !requires {
		return false
	}
	action, ok := payment["next_action"].(map[string]interface{})
	if !ok || action["type"] != "redirect" || action["path"] != mockThreeDSPath {
		return false
	}

	target := mockThreeDSPath + "?" + mockQuery(payment, merchant)
	payment["next_action_url"] = target
	action["url"] = target
	return true
}

func mockQuery(payment map[string]interface{}, m *clients.Merchant) string {
	q := url.Values{}
	q.Set("paymentId", stringOf(payment["payment_id"]))
	q.Set("merchantName", m.Name)
	q.Set("logoUrl", orDefault(m.LogoURL, DefaultLogoURL))
	q.Set("primaryColor", orDefault(m.PrimaryColor, DefaultPrimaryColor))
	q.Set("backgroundColor", orDefault(m.BackgroundColor, DefaultBackgroundColor))
	q.Set("amount", stringOf(payment["amount"]))
	q.Set("currency", stringOf(payment["currency"]))
	return q.Encode()
}

// decodeObject keeps numbers as json.Number so amounts survive re-encoding.
func decodeObject(r io.Reader) (map[string]interface{}, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return obj, nil
}

func stringOf(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
