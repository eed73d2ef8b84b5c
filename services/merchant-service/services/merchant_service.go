package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/paygate/backend/services/merchant-service/models"
	"github.com/paygate/backend/services/merchant-service/repository"
	"go.uber.org/zap"
)

const (
	APIKeyPrefix   = "sk_test_"
	LoadTestAPIKey = "sk_test_loadtest"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

type MerchantService interface {
	CreateMerchant(ctx context.Context, req *models.CreateMerchantRequest) (*models.Merchant, *ServiceError)
	GetMerchant(ctx context.Context, id uuid.UUID) (*models.Merchant, *ServiceError)
	GetMerchantByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, *ServiceError)
	UpdateMerchant(ctx context.Context, id uuid.UUID, req *models.UpdateMerchantRequest) (*models.Merchant, *ServiceError)
	ListMerchants(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, *ServiceError)
	AddAPIKey(ctx context.Context, id uuid.UUID) (*models.Merchant, string, *ServiceError)
	// SeedDemoMerchants creates the demo merchant on an empty table when demo
	// is set and the fixed-key load test merchant when loadTest is set.
	SeedDemoMerchants(ctx context.Context, demo, loadTest bool) error
}

type merchantService struct {
	repo   repository.MerchantRepository
	logger *zap.Logger
	newKey func() (string, error)
}

func NewMerchantService(repo repository.MerchantRepository, logger *zap.Logger) MerchantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &merchantService{repo: repo, logger: logger, newKey: GenerateAPIKey}
}

// GenerateAPIKey returns a fresh sk_test_ key with 192 bits of entropy.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(b), nil
}

func (s *merchantService) internalError(msg string, err error) *ServiceError {
	s.logger.Error(msg, zap.Error(err))
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Internal server error"}
}

func (s *merchantService) CreateMerchant(ctx context.Context, req *models.CreateMerchantRequest) (*models.Merchant, *ServiceError) {
	var domain *string
	if d := strings.TrimSpace(req.Domain); d != "" {
		if svcErr := s.checkDomainFree(ctx, d, uuid.Nil); svcErr != nil {
			return nil, svcErr
		}
		domain = &d
	}

	key, err := s.newKey()
	if err != nil {
		return nil, s.internalError("failed to generate api key", err)
	}

	merchant := &models.Merchant{
		ID:              uuid.New(),
		Name:            req.Name,
		Email:           req.Email,
		Domain:          domain,
		Status:          models.StatusActive,
		APIKeys:         pq.StringArray{key},
		LogoURL:         req.LogoURL,
		PrimaryColor:    req.PrimaryColor,
		BackgroundColor: req.BackgroundColor,
		WebhookURL:      req.WebhookURL,
		Metadata:        req.Metadata,
	}
	if err := s.repo.Create(ctx, merchant); err != nil {
		return nil, s.internalError("failed to create merchant", err)
	}

	s.logger.Info("Merchant created", zap.String("merchant_id", merchant.ID.String()))
	return merchant, nil
}

func (s *merchantService) GetMerchant(ctx context.Context, id uuid.UUID) (*models.Merchant, *ServiceError) {
	merchant, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Merchant not found"}
	}
	if err != nil {
		return nil, s.internalError("failed to load merchant", err)
	}
	return merchant, nil
}

func (s *merchantService) GetMerchantByAPIKey(ctx context.Context, apiKey string) (*models.Merchant, *ServiceError) {
	if apiKey == "" {
		return nil, &ServiceError{StatusCode: http.StatusUnauthorized, Message: "X-API-Key header is required"}
	}
	merchant, err := s.repo.FindByAPIKey(ctx, apiKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Merchant not found"}
	}
	if err != nil {
		return nil, s.internalError("failed to look up api key", err)
	}
	return merchant, nil
}

func (s *merchantService) UpdateMerchant(ctx context.Context, id uuid.UUID, req *models.UpdateMerchantRequest) (*models.Merchant, *ServiceError) {
	merchant, svcErr := s.GetMerchant(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}

	if req.Domain != nil {
		d := strings.TrimSpace(*req.Domain)
		switch {
		case d == "":
			merchant.Domain = nil
		case merchant.Domain == nil || *merchant.Domain != d:
			if svcErr := s.checkDomainFree(ctx, d, merchant.ID); svcErr != nil {
				return nil, svcErr
			}
			merchant.Domain = &d
		}
	}
	if req.Name != nil {
		merchant.Name = *req.Name
	}
	if req.LogoURL != nil {
		merchant.LogoURL = *req.LogoURL
	}
	if req.PrimaryColor != nil {
		merchant.PrimaryColor = *req.PrimaryColor
	}
	if req.BackgroundColor != nil {
		merchant.BackgroundColor = *req.BackgroundColor
	}
	if req.WebhookURL != nil {
		merchant.WebhookURL = *req.WebhookURL
	}
	if req.Status != nil {
		merchant.Status = *req.Status
	}
	if len(req.Metadata) > 0 {
		if merchant.Metadata == nil {
			merchant.Metadata = map[string]interface{}{}
		}
		for k, v := range req.Metadata {
			merchant.Metadata[k] = v
		}
	}

	if err := s.repo.Update(ctx, merchant); err != nil {
		return nil, s.internalError("failed to update merchant", err)
	}
	return merchant, nil
}

func (s *merchantService) ListMerchants(ctx context.Context, filter models.MerchantFilter) ([]models.Merchant, int64, *ServiceError) {
	merchants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, s.internalError("failed to list merchants", err)
	}
	return merchants, total, nil
}

func (s *merchantService) AddAPIKey(ctx context.Context, id uuid.UUID) (*models.Merchant, string, *ServiceError) {
	merchant, svcErr := s.GetMerchant(ctx, id)
	if svcErr != nil {
		return nil, "", svcErr
	}
	key, err := s.newKey()
	if err != nil {
		return nil, "", s.internalError("failed to generate api key", err)
	}
	merchant.APIKeys = append(merchant.APIKeys, key)
	if err := s.repo.Update(ctx, merchant); err != nil {
		return nil, "", s.internalError("failed to store api key", err)
	}
	return merchant, key, nil
}

func (s *merchantService) SeedDemoMerchants(ctx context.Context, demo, loadTest bool) error {
	if demo {
		if err := s.seedDemo(ctx); err != nil {
			return err
		}
	}
	if !loadTest {
		return nil
	}
	if _, err := s.repo.FindByAPIKey(ctx, LoadTestAPIKey); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	lt := demoMerchant("Load Test Merchant", "loadtest.example.com", "#4F46E5", "#EEF2FF", LoadTestAPIKey)
	if err := s.repo.Create(ctx, lt); err != nil {
		return err
	}
	s.logger.Info("Load test merchant created", zap.String("merchant_id", lt.ID.String()))
	return nil
}

func (s *merchantService) seedDemo(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		key, err := s.newKey()
		if err != nil {
			return err
		}
		demo := demoMerchant("Demo Merchant", "demo.example.com", "#256569", "#E6F2F3", key)
		if err := s.repo.Create(ctx, demo); err != nil {
			return err
		}
		s.logger.Info("Demo merchant created", zap.String("merchant_id", demo.ID.String()))
	}
	return nil
}

func demoMerchant(name, domain, primary, background, key string) *models.Merchant {
	return &models.Merchant{
		ID:              uuid.New(),
		Name:            name,
		Email:           "merchant@" + domain,
		Domain:          &domain,
		Status:          models.StatusActive,
		APIKeys:         pq.StringArray{key},
		LogoURL:         "https://via.placeholder.com/150/" + strings.TrimPrefix(primary, "#") + "/FFFFFF?text=" + strings.Fields(name)[0],
		PrimaryColor:    primary,
		BackgroundColor: background,
		WebhookURL:      "https://" + domain + "/webhook",
	}
}

func (s *merchantService) checkDomainFree(ctx context.Context, domain string, self uuid.UUID) *ServiceError {
	existing, err := s.repo.FindByDomain(ctx, domain)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return s.internalError("failed to check domain", err)
	case existing.ID == self:
		return nil
	default:
		return &ServiceError{StatusCode: http.StatusConflict, Message: "Merchant with domain " + domain + " already exists"}
	}
}
