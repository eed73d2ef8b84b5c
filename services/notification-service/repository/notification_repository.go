package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/notification-service/models"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type AttemptRepository interface {
	SaveAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error
	ListAttempts(ctx context.Context, filter models.AttemptFilter) ([]models.DeliveryAttempt, int64, error)
}

type attemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) SaveAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *attemptRepository) ListAttempts(ctx context.Context, filter models.AttemptFilter) ([]models.DeliveryAttempt, int64, error) {
	var attempts []models.DeliveryAttempt
	var total int64

	if filter.PageSize < 1 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	query := r.db.WithContext(ctx).Model(&models.DeliveryAttempt{})

	if filter.PaymentID != "" {
		query = query.Where("payment_id = ?", filter.PaymentID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		query = query.Where("notification_type = ?", filter.Type)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	err := query.Order("timestamp DESC").
		Limit(filter.PageSize).
		Offset(offset).
		Find(&attempts).Error

	return attempts, total, err
}
