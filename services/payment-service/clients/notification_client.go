package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/paygate/backend/services/payment-service/models"
)

type Notifier interface {
	NotifyCustomer(ctx context.Context, payment *models.Payment, customerEmail string) error
}

type notificationRequest struct {
	Recipient        string                 `json:"recipient"`
	Subject          string                 `json:"subject"`
	Body             string                 `json:"body"`
	NotificationType string                 `json:"notification_type"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type NotificationClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NotifyCustomer asks notification-service to email the customer about the
// payment's current status. No email means nothing to do.
func (c *NotificationClient) NotifyCustomer(ctx context.Context, payment *models.Payment, customerEmail string) error {
	if customerEmail == "" {
		return nil
	}

	body, err := json.Marshal(notificationRequest{
		Recipient: customerEmail,
		Subject:   fmt.Sprintf("Payment %s", payment.Status),
		Body: fmt.Sprintf("Payment %s for %s %s is %s.",
			payment.PaymentID, payment.Amount.StringFixed(2), payment.Currency, strings.ToUpper(string(payment.Status))),
		NotificationType: "email",
		Metadata: map[string]interface{}{
			"payment_id": payment.PaymentID.String(),
			"status":     string(payment.Status),
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/notifications", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}
