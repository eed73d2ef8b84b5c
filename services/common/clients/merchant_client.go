package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrMerchantNotFound = errors.New("merchant not found")
	ErrInvalidAPIKey    = errors.New("invalid api key")
	// ErrMerchantUnavailable covers transport failures and 5xx answers.
	ErrMerchantUnavailable = errors.New("merchant service unavailable")
)

// Merchant is the directory entry as served by merchant-service.
type Merchant struct {
	MerchantID      string                 `json:"merchant_id"`
	Name            string                 `json:"name"`
	Email           string                 `json:"email"`
	Status          string                 `json:"status"`
	LogoURL         string                 `json:"logo_url,omitempty"`
	PrimaryColor    string                 `json:"primary_color,omitempty"`
	BackgroundColor string                 `json:"background_color,omitempty"`
	WebhookURL      string                 `json:"webhook_url,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func (m *Merchant) IsActive() bool {
	return m.Status == "active"
}

// MerchantDirectory is what the other services need from merchant-service.
type MerchantDirectory interface {
	GetMerchant(ctx context.Context, merchantID string) (*Merchant, error)
	GetMerchantByAPIKey(ctx context.Context, apiKey string) (*Merchant, error)
}

type MerchantClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMerchantClient(baseURL string, timeout time.Duration) *MerchantClient {
	return &MerchantClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *MerchantClient) GetMerchant(ctx context.Context, merchantID string) (*Merchant, error) {
	endpoint := fmt.Sprintf("%s/api/v1/merchants/%s", c.baseURL, url.PathEscape(merchantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	merchant, status, err := c.do(req)
	if status == http.StatusNotFound {
		return nil, ErrMerchantNotFound
	}
	return merchant, err
}

func (c *MerchantClient) GetMerchantByAPIKey(ctx context.Context, apiKey string) (*Merchant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/merchants/by-api-key", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", apiKey)

	merchant, status, err := c.do(req)
	switch status {
	case http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity:
		return nil, ErrInvalidAPIKey
	}
	return merchant, err
}

func (c *MerchantClient) do(req *http.Request) (*Merchant, int, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMerchantUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, resp.StatusCode, fmt.Errorf("%w: status %d: %s", ErrMerchantUnavailable, resp.StatusCode, snippet)
	}

	var merchant Merchant
	if err := json.NewDecoder(resp.Body).Decode(&merchant); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode merchant: %w", err)
	}
	return &merchant, resp.StatusCode, nil
}
