package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeEmail   = "email"
	TypeWebhook = "webhook"

	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusRetrying = "retrying"
)

// DeliveryAttempt records one try of a webhook or email delivery.
type DeliveryAttempt struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	PaymentID        string    `json:"payment_id,omitempty" gorm:"index"`
	MerchantID       string    `json:"merchant_id,omitempty"`
	EventType        string    `json:"event_type,omitempty"`
	Recipient        string    `json:"recipient"`
	AttemptNumber    int       `json:"attempt_number"`
	NotificationType string    `json:"notification_type" gorm:"index"`
	Status           string    `json:"status" gorm:"index"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	ResponseCode     *int      `json:"response_code,omitempty"`
	Timestamp        time.Time `json:"timestamp" gorm:"index"`
}

func (DeliveryAttempt) TableName() string { return "delivery_attempts" }

// AttemptStatus derives the recorded status of a try from its outcome.
// Failures before the last allowed try are still being retried.
func AttemptStatus(success bool, attempt, maxRetries int) string {
	switch {
	case success:
		return StatusSuccess
	case attempt < maxRetries:
		return StatusRetrying
	default:
		return StatusFailed
	}
}

type AttemptFilter struct {
	PaymentID string
	Status    string
	Type      string
	Page      int
	PageSize  int
}

// NotificationRequest is a direct send request from another service.
type NotificationRequest struct {
	Recipient        string                 `json:"recipient" binding:"required,email"`
	Subject          string                 `json:"subject" binding:"required"`
	Body             string                 `json:"body" binding:"required"`
	NotificationType string                 `json:"notification_type" binding:"omitempty,oneof=email webhook"`
	WebhookURL       string                 `json:"webhook_url,omitempty" binding:"omitempty,url"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentID returns metadata.payment_id when the caller supplied one.
func (r *NotificationRequest) PaymentID() string {
	if id, ok := r.Metadata["payment_id"].(string); ok {
		return id
	}
	return ""
}
