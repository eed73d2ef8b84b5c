package models

import "github.com/shopspring/decimal"

type CheckRequest struct {
	PaymentID     string                 `json:"payment_id" binding:"omitempty,uuid"`
	MerchantID    string                 `json:"merchant_id" binding:"required"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency" binding:"required,len=3"`
	CustomerEmail string                 `json:"customer_email,omitempty" binding:"omitempty,email"`
	CustomerIP    string                 `json:"customer_ip,omitempty" binding:"omitempty,ip"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type CheckResponse struct {
	PaymentID string  `json:"payment_id,omitempty"`
	IsFraud   bool    `json:"is_fraud"`
	RiskScore float64 `json:"risk_score"`
	Reason    string  `json:"reason"`
}
