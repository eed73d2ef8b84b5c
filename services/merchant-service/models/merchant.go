package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	StatusActive              = "active"
	StatusInactive            = "inactive"
	StatusSuspended           = "suspended"
	StatusPendingVerification = "pending_verification"
)

// Merchant model
type Merchant struct {
	ID              uuid.UUID              `gorm:"column:merchant_id;type:uuid;primaryKey" json:"merchant_id"`
	Name            string                 `gorm:"size:255;not null;index" json:"name"`
	Email           string                 `gorm:"size:255;not null" json:"email"`
	Domain          *string                `gorm:"size:255;uniqueIndex" json:"domain,omitempty"`
	Status          string                 `gorm:"type:varchar(32);not null;index" json:"status"`
	APIKeys         pq.StringArray         `gorm:"type:text[];not null" json:"api_keys"`
	LogoURL         string                 `gorm:"size:512" json:"logo_url,omitempty"`
	PrimaryColor    string                 `gorm:"size:7" json:"primary_color,omitempty"`
	BackgroundColor string                 `gorm:"size:7" json:"background_color,omitempty"`
	WebhookURL      string                 `gorm:"size:512" json:"webhook_url,omitempty"`
	Metadata        map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
	CreatedAt       time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *Merchant) IsActive() bool {
	return m.Status == StatusActive
}

// HasAPIKey reports whether key is one of the merchant's keys.
func (m *Merchant) HasAPIKey(key string) bool {
	for _, k := range m.APIKeys {
		if k == key {
			return true
		}
	}
	return false
}

type CreateMerchantRequest struct {
	Name            string                 `json:"name" binding:"required,min=1,max=255"`
	Email           string                 `json:"email" binding:"required,email"`
	Domain          string                 `json:"domain" binding:"omitempty,max=255"`
	LogoURL         string                 `json:"logo_url" binding:"omitempty,max=512"`
	PrimaryColor    string                 `json:"primary_color" binding:"omitempty,hexcolor,len=7"`
	BackgroundColor string                 `json:"background_color" binding:"omitempty,hexcolor,len=7"`
	WebhookURL      string                 `json:"webhook_url" binding:"omitempty,url"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// UpdateMerchantRequest carries a partial update; nil fields are left alone.
type UpdateMerchantRequest struct {
	Name            *string                `json:"name" binding:"omitempty,min=1,max=255"`
	Domain          *string                `json:"domain" binding:"omitempty,max=255"`
	LogoURL         *string                `json:"logo_url" binding:"omitempty,max=512"`
	PrimaryColor    *string                `json:"primary_color" binding:"omitempty,hexcolor,len=7"`
	BackgroundColor *string                `json:"background_color" binding:"omitempty,hexcolor,len=7"`
	WebhookURL      *string                `json:"webhook_url" binding:"omitempty,url"`
	Status          *string                `json:"status" binding:"omitempty,oneof=active inactive suspended pending_verification"`
	Metadata        map[string]interface{} `json:"metadata"`
}

type MerchantFilter struct {
	Status   string
	Page     int
	PageSize int
}
