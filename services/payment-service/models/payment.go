package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	StatusPending        PaymentStatus = "pending"
	StatusProcessing     PaymentStatus = "processing"
	StatusSucceeded      PaymentStatus = "succeeded"
	StatusFailed         PaymentStatus = "failed"
	StatusRequiresAction PaymentStatus = "requires_action"
	StatusCancelled      PaymentStatus = "cancelled"
	StatusRefunded       PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodCard          PaymentMethod = "card"
	MethodBankTransfer  PaymentMethod = "bank_transfer"
	MethodDigitalWallet PaymentMethod = "digital_wallet"
)

// ErrInvalidTransition is returned when a status change is not an edge of the
// lifecycle graph.
var ErrInvalidTransition = errors.New("invalid payment status transition")

var transitions = map[PaymentStatus][]PaymentStatus{
	StatusPending: {
		StatusProcessing, StatusSucceeded, StatusFailed,
		StatusRequiresAction, StatusCancelled, StatusRefunded,
	},
	StatusProcessing: {
		StatusSucceeded, StatusFailed, StatusRequiresAction,
		StatusCancelled, StatusRefunded,
	},
	StatusRequiresAction: {StatusSucceeded},
}

// CanTransition reports whether from → to is allowed. Staying in the same
// state is not a transition.
func CanTransition(from, to PaymentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to PaymentStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminal reports the states that trigger notification.
func (s PaymentStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// NextAction tells the client where to complete a 3DS challenge.
type NextAction struct {
	Type      string `json:"type"`
	Path      string `json:"path"`
	PaymentID string `json:"payment_id"`
}

type Payment struct {
	PaymentID      uuid.UUID              `gorm:"type:uuid;primaryKey" json:"payment_id"`
	MerchantID     uuid.UUID              `gorm:"type:uuid;index;not null" json:"merchant_id"`
	Amount         decimal.Decimal        `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency       string                 `gorm:"type:varchar(3);not null" json:"currency"`
	Status         PaymentStatus          `gorm:"type:varchar(20);index;not null" json:"status"`
	PaymentMethod  PaymentMethod          `gorm:"type:varchar(20);not null" json:"payment_method"`
	Description    string                 `gorm:"type:text" json:"description,omitempty"`
	TransactionID  *string                `gorm:"type:varchar(64)" json:"transaction_id"`
	ErrorMessage   *string                `gorm:"type:text" json:"error_message"`
	RequiresAction bool                   `gorm:"not null" json:"requires_action"`
	NextAction     *NextAction            `gorm:"type:jsonb;serializer:json" json:"next_action"`
	NextActionURL  *string                `gorm:"type:varchar(1024)" json:"next_action_url"`
	Metadata       map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"metadata"`

	CustomerEmail  string   `gorm:"type:varchar(255)" json:"-"`
	Provider       string   `gorm:"type:varchar(32)" json:"-"`
	FraudRiskScore *float64 `json:"-"`
	FraudReason    *string  `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime:false;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// Clone returns a deep copy; nested metadata maps and slices are copied too.
func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	cp := *p
	cp.TransactionID = cloneString(p.TransactionID)
	cp.ErrorMessage = cloneString(p.ErrorMessage)
	cp.NextActionURL = cloneString(p.NextActionURL)
	cp.FraudReason = cloneString(p.FraudReason)
	if p.FraudRiskScore != nil {
		v := *p.FraudRiskScore
		cp.FraudRiskScore = &v
	}
	if p.NextAction != nil {
		na := *p.NextAction
		cp.NextAction = &na
	}
	cp.Metadata = CloneMetadata(p.Metadata)
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func CloneMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CloneMetadata(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// CheckInvariants verifies the field combinations each status requires.
func (p *Payment) CheckInvariants() error {
	if p.RequiresAction != (p.Status == StatusRequiresAction) {
		return fmt.Errorf("requires_action=%t inconsistent with status %s", p.RequiresAction, p.Status)
	}
	hasTxn := p.TransactionID != nil && *p.TransactionID != ""
	hasErr := p.ErrorMessage != nil && *p.ErrorMessage != ""
	switch p.Status {
	case StatusSucceeded:
		if !hasTxn || hasErr {
			return fmt.Errorf("succeeded payment needs transaction_id and no error_message")
		}
	case StatusFailed:
		if hasTxn || !hasErr {
			return fmt.Errorf("failed payment needs error_message and no transaction_id")
		}
	default:
		if hasTxn || hasErr {
			return fmt.Errorf("%s payment carries a transaction_id or error_message", p.Status)
		}
	}
	return nil
}

// PaymentFilter narrows ListPayments. Zero values mean "no filter".
type PaymentFilter struct {
	MerchantID *uuid.UUID
	Status     PaymentStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
