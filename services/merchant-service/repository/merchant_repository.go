package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/merchant-service/models"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("merchant not found")

type MerchantRepository interface {
	Create(ctx context.Context, merchant *models.Merchant) error
	Update(ctx context.Context, merchant *models.Merchant) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error)
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error)
	FindByDomain(ctx context.Context, domain string) (*models.Merchant, error)
	List(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, error)
	Count(ctx context.Context) (int64, error)
}

type merchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepository{db: db}
}

func (r *merchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

func (r *merchantRepository) Update(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Save(merchant).Error
}

func (r *merchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	return r.first(ctx, "merchant_id = ?", id)
}

// FindByAPIKey matches any of the merchant's keys, whatever its status.
func (r *merchantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, error) {
	return r.first(ctx, "? = ANY(api_keys)", apiKey)
}

func (r *merchantRepository) FindByDomain(ctx context.Context, domain string) (*models.Merchant, error) {
	return r.first(ctx, "domain = ?", domain)
}

func (r *merchantRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).Where(query, args...).First(&merchant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

func (r *merchantRepository) List(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Merchant{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
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

	var merchants []models.Merchant
	err := query.Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&merchants).Error
	return merchants, total, err
}

func (r *merchantRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Merchant{}).Count(&n).Error
	return n, err
}
