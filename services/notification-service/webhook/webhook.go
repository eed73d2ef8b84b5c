// Package webhook delivers signed payment events to merchant endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	SignatureHeader = "X-Webhook-Signature"
	UserAgent       = "PaymentGateway-Webhook/1.0"
	DefaultTimeout  = 10 * time.Second

	signaturePrefix = "sha256="
	maxErrorBody    = 200
)

// Result is the outcome of a single delivery try.
type Result struct {
	Success    bool
	StatusCode int
	Error      string
}

// Sign returns the X-Webhook-Signature value for body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature header against body in constant time.
func Verify(body []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

type Sender struct {
	client  *http.Client
	timeout time.Duration
}

func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sender{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Send POSTs payload to url once. Map keys serialize in sorted order, so the
// signed bytes are stable for a given payload.
func (s *Sender) Send(ctx context.Context, url string, payload map[string]interface{}, secret string) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Error: fmt.Sprintf("Webhook request error: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("Webhook request error: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set(SignatureHeader, Sign(body, secret))

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return Result{Error: fmt.Sprintf("Webhook request timed out after %gs", s.timeout.Seconds())}
		}
		return Result{Error: fmt.Sprintf("Webhook request error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return Result{Success: true, StatusCode: resp.StatusCode}
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return Result{
		StatusCode: resp.StatusCode,
		Error:      fmt.Sprintf("Webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
