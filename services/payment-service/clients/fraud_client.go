package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/payment-service/models"
)

type FraudVerdict struct {
	PaymentID string  `json:"payment_id,omitempty"`
	IsFraud   bool    `json:"is_fraud"`
	RiskScore float64 `json:"risk_score"`
	Reason    string  `json:"reason,omitempty"`
}

// FraudChecker returns nil, err when no verdict could be obtained.
type FraudChecker interface {
	Check(ctx context.Context, req *models.PaymentRequest) (*FraudVerdict, error)
}

type fraudCheckRequest struct {
	PaymentID     string                 `json:"payment_id"`
	MerchantID    string                 `json:"merchant_id"`
	Amount        string                 `json:"amount"`
	Currency      string                 `json:"currency"`
	CustomerEmail string                 `json:"customer_email,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
}

type FraudClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewFraudClient(baseURL string, timeout time.Duration) *FraudClient {
	return &FraudClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *FraudClient) Check(ctx context.Context, req *models.PaymentRequest) (*FraudVerdict, error) {
	metadata := req.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	body, err := json.Marshal(fraudCheckRequest{
		PaymentID:     uuid.NewString(),
		MerchantID:    req.MerchantID,
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/fraud/check", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fraud service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("fraud service returned %d: %s", resp.StatusCode, snippet)
	}

	var verdict FraudVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("decode fraud verdict: %w", err)
	}
	return &verdict, nil
}
