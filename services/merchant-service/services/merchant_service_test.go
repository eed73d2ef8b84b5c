package services_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/paygate/backend/services/merchant-service/models"
	"github.com/paygate/backend/services/merchant-service/repository"
	"github.com/paygate/backend/services/merchant-service/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMerchantRepository struct{ mock.Mock }

func (m *MockMerchantRepository) Create(ctx context.Context, merchant *models.Merchant) error {
	return m.Called(ctx, merchant).Error(0)
}
func (m *MockMerchantRepository) Update(ctx context.Context, merchant *models.Merchant) error {
	return m.Called(ctx, merchant).Error(0)
}
func (m *MockMerchantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}
func (m *MockMerchantRepository) FindByAPIKey(ctx context.Context, key string) (*models.Merchant, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}
func (m *MockMerchantRepository) FindByDomain(ctx context.Context, domain string) (*models.Merchant, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Merchant), args.Error(1)
}
func (m *MockMerchantRepository) List(ctx context.Context, f models.MerchantFilter) ([]models.Merchant, int64, error) {
	args := m.Called(ctx, f)
	merchants, _ := args.Get(0).([]models.Merchant)
	return merchants, args.Get(1).(int64), args.Error(2)
}
func (m *MockMerchantRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := services.GenerateAPIKey()
	require.NoError(t, err)
	b, err := services.GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, "sk_test_"))
	assert.Len(t, a, len("sk_test_")+48)
	assert.NotEqual(t, a, b)
}

func TestCreateMerchant(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)

		repo.On("FindByDomain", mock.Anything, "shop.test").Return(nil, repository.ErrNotFound).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Merchant) bool {
			return m.Name == "Shop" && m.Status == models.StatusActive && len(m.APIKeys) == 1 &&
				strings.HasPrefix(m.APIKeys[0], services.APIKeyPrefix) && *m.Domain == "shop.test"
		})).Return(nil).Once()

		m, svcErr := svc.CreateMerchant(context.Background(), &models.CreateMerchantRequest{
			Name: "Shop", Email: "owner@shop.test", Domain: "shop.test", PrimaryColor: "#112233",
		})
		require.Nil(t, svcErr)
		assert.NotEqual(t, uuid.Nil, m.ID)
		assert.Equal(t, "#112233", m.PrimaryColor)
		repo.AssertExpectations(t)
	})

	t.Run("Domain taken - 409", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		repo.On("FindByDomain", mock.Anything, "shop.test").Return(&models.Merchant{ID: uuid.New()}, nil).Once()

		_, svcErr := svc.CreateMerchant(context.Background(), &models.CreateMerchantRequest{Name: "Shop", Email: "o@shop.test", Domain: "shop.test"})
		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("DB error - 500", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

		_, svcErr := svc.CreateMerchant(context.Background(), &models.CreateMerchantRequest{Name: "Shop", Email: "o@shop.test"})
		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	})
}

func TestGetMerchantByAPIKey(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := services.NewMerchantService(repo, nil)

	_, svcErr := svc.GetMerchantByAPIKey(context.Background(), "")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)

	repo.On("FindByAPIKey", mock.Anything, "sk_test_nope").Return(nil, repository.ErrNotFound).Once()
	_, svcErr = svc.GetMerchantByAPIKey(context.Background(), "sk_test_nope")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)

	inactive := &models.Merchant{ID: uuid.New(), Status: models.StatusSuspended}
	repo.On("FindByAPIKey", mock.Anything, "sk_test_old").Return(inactive, nil).Once()
	m, svcErr := svc.GetMerchantByAPIKey(context.Background(), "sk_test_old")
	require.Nil(t, svcErr)
	assert.False(t, m.IsActive())
}

func TestUpdateMerchant(t *testing.T) {
	id := uuid.New()
	domain := "old.test"

	t.Run("Partial update", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		existing := &models.Merchant{ID: id, Name: "Shop", Domain: &domain, Status: models.StatusActive,
			WebhookURL: "https://old.test/hook", Metadata: map[string]interface{}{"a": 1}}
		repo.On("FindByID", mock.Anything, id).Return(existing, nil).Once()
		repo.On("Update", mock.Anything, existing).Return(nil).Once()

		hook, status := "https://new.test/hook", models.StatusInactive
		m, svcErr := svc.UpdateMerchant(context.Background(), id, &models.UpdateMerchantRequest{
			WebhookURL: &hook,
			Status:     &status,
			Metadata:   map[string]interface{}{"b": 2},
		})
		require.Nil(t, svcErr)
		assert.Equal(t, "Shop", m.Name)
		assert.Equal(t, hook, m.WebhookURL)
		assert.Equal(t, models.StatusInactive, m.Status)
		assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, m.Metadata)
		repo.AssertExpectations(t)
	})

	t.Run("Domain conflict", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		repo.On("FindByID", mock.Anything, id).Return(&models.Merchant{ID: id, Domain: &domain}, nil).Once()
		repo.On("FindByDomain", mock.Anything, "taken.test").Return(&models.Merchant{ID: uuid.New()}, nil).Once()

		taken := "taken.test"
		_, svcErr := svc.UpdateMerchant(context.Background(), id, &models.UpdateMerchantRequest{Domain: &taken})
		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	})

	t.Run("Not found", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		repo.On("FindByID", mock.Anything, id).Return(nil, repository.ErrNotFound).Once()

		_, svcErr := svc.UpdateMerchant(context.Background(), id, &models.UpdateMerchantRequest{})
		require.NotNil(t, svcErr)
		assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	})
}

func TestAddAPIKey(t *testing.T) {
	repo := new(MockMerchantRepository)
	svc := services.NewMerchantService(repo, nil)
	id := uuid.New()
	existing := &models.Merchant{ID: id, APIKeys: pq.StringArray{"sk_test_first"}}
	repo.On("FindByID", mock.Anything, id).Return(existing, nil).Once()
	repo.On("Update", mock.Anything, existing).Return(nil).Once()

	m, key, svcErr := svc.AddAPIKey(context.Background(), id)
	require.Nil(t, svcErr)
	assert.Len(t, m.APIKeys, 2)
	assert.True(t, m.HasAPIKey("sk_test_first"))
	assert.True(t, m.HasAPIKey(key))
}

func TestSeedDemoMerchants(t *testing.T) {
	t.Run("Empty table gets demo and load test merchants", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		repo.On("Count", mock.Anything).Return(int64(0), nil).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Merchant) bool {
			return m.Name == "Demo Merchant" && m.PrimaryColor == "#256569"
		})).Return(nil).Once()
		repo.On("FindByAPIKey", mock.Anything, services.LoadTestAPIKey).Return(nil, repository.ErrNotFound).Once()
		repo.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Merchant) bool {
			return m.HasAPIKey(services.LoadTestAPIKey) && m.BackgroundColor == "#EEF2FF"
		})).Return(nil).Once()

		require.NoError(t, svc.SeedDemoMerchants(context.Background(), true, true))
		repo.AssertExpectations(t)
	})

	t.Run("Existing merchants are left alone", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		repo.On("Count", mock.Anything).Return(int64(3), nil).Once()

		require.NoError(t, svc.SeedDemoMerchants(context.Background(), true, false))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Load test merchant only, already present", func(t *testing.T) {
		repo := new(MockMerchantRepository)
		svc := services.NewMerchantService(repo, nil)
		repo.On("FindByAPIKey", mock.Anything, services.LoadTestAPIKey).Return(&models.Merchant{}, nil).Once()

		require.NoError(t, svc.SeedDemoMerchants(context.Background(), false, true))
		repo.AssertNotCalled(t, "Count", mock.Anything)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
