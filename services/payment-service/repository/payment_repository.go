package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/payment-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("payment not found in database")

type PaymentRepository interface {
	Save(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int64, error)
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

// Save inserts the row or overwrites every column of an existing one.
func (r *gormPaymentRepo) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "payment_id"}},
			UpdateAll: true,
		}).
		Create(payment).Error
}

func (r *gormPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "payment_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if filter.MerchantID != nil {
		query = query.Where("merchant_id = ?", *filter.MerchantID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	var payments []models.Payment
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}
