package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"

	QueuePaymentSucceeded = "payment." + StatusSucceeded
	QueuePaymentFailed    = "payment." + StatusFailed
)

// PaymentQueues lists every queue the notification pipeline listens on.
var PaymentQueues = []string{QueuePaymentSucceeded, QueuePaymentFailed}

// PaymentEvent is the message published when a payment reaches a terminal state.
type PaymentEvent struct {
	EventType     string                 `json:"event_type"`
	PaymentID     string                 `json:"payment_id"`
	MerchantID    string                 `json:"merchant_id"`
	Amount        string                 `json:"amount"`
	Currency      string                 `json:"currency"`
	Status        string                 `json:"status"`
	CustomerEmail string                 `json:"customer_email,omitempty"`
	Metadata      map[string]interface{} `json:"metadata"`
	Timestamp     time.Time              `json:"timestamp"`
}

// IsTerminal reports whether status triggers notifications.
func IsTerminal(status string) bool {
	return status == StatusSucceeded || status == StatusFailed
}

// QueueFor returns the queue name for a terminal status, or "" otherwise.
func QueueFor(status string) string {
	if !IsTerminal(status) {
		return ""
	}
	return "payment." + status
}

// FormatAmount renders an amount the way events carry it.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// Payload returns the event as a map for signing. Keys serialize in sorted
// order, so the encoded bytes are reproducible.
func (e PaymentEvent) Payload() map[string]interface{} {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	p := map[string]interface{}{
		"event_type":  e.EventType,
		"payment_id":  e.PaymentID,
		"merchant_id": e.MerchantID,
		"amount":      e.Amount,
		"currency":    e.Currency,
		"status":      e.Status,
		"metadata":    metadata,
		"timestamp":   e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if e.CustomerEmail != "" {
		p["customer_email"] = e.CustomerEmail
	}
	return p
}
