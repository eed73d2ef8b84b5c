package providers_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/paygate/backend/services/payment-service/providers"
	"github.com/paygate/backend/services/payment-service/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often Save is hit.
type countingStore struct {
	*store.MemoryStore
	mu    sync.Mutex
	saves int
}

func (c *countingStore) Save(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.MemoryStore.Save(ctx, p)
}

func newRequest() *models.PaymentRequest {
	return &models.PaymentRequest{
		MerchantID:    uuid.NewString(),
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "USD",
		PaymentMethod: models.MethodCard,
		Metadata:      map[string]interface{}{"order_id": "o-1"},
	}
}

func TestSuccessStrategy(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	reg := providers.NewRegistry(s, nil)

	p, err := reg.Get("success").Process(context.Background(), newRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSucceeded, p.Status)
	require.NotNil(t, p.TransactionID)
	assert.True(t, strings.HasPrefix(*p.TransactionID, "txn_"))
	assert.Len(t, *p.TransactionID, 14)
	assert.Nil(t, p.ErrorMessage)
	assert.False(t, p.RequiresAction)
	assert.Equal(t, 1, s.saves)
	assert.NoError(t, p.CheckInvariants())

	stored, err := s.Get(context.Background(), p.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, "o-1", stored.Metadata["order_id"])
	assert.Equal(t, providers.Success, stored.Provider)
}

func TestFailedStrategy(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	p, err := providers.NewRegistry(s, nil).Get("failed").Process(context.Background(), newRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, p.Status)
	assert.Nil(t, p.TransactionID)
	require.NotNil(t, p.ErrorMessage)
	assert.Equal(t, providers.DeclineMessage, *p.ErrorMessage)
	assert.Equal(t, 1, s.saves)
	assert.NoError(t, p.CheckInvariants())
}

func TestThreeDSStrategy_SelfReferenceWithSingleSave(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	p, err := providers.NewRegistry(s, nil).Get("three_ds").Process(context.Background(), newRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusRequiresAction, p.Status)
	assert.True(t, p.RequiresAction)
	require.NotNil(t, p.NextAction)
	assert.Equal(t, "redirect", p.NextAction.Type)
	assert.Equal(t, "/mock-3ds", p.NextAction.Path)
	assert.Equal(t, p.PaymentID.String(), p.NextAction.PaymentID)
	require.NotNil(t, p.NextActionURL)
	assert.Equal(t, "/mock-3ds?payment_id="+p.PaymentID.String(), *p.NextActionURL)
	assert.Equal(t, 1, s.saves)
	assert.NoError(t, p.CheckInvariants())
}

func TestSlowStrategy(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	p, err := providers.NewRegistry(s, nil).Get("slow").Process(context.Background(), newRequest())
	require.NoError(t, err)

	assert.Equal(t, models.StatusProcessing, p.Status)
	assert.Equal(t, providers.ExpectedSettlementSeconds, p.Metadata["expected_settlement_seconds"])
	assert.Equal(t, "o-1", p.Metadata["order_id"])
	assert.Nil(t, p.TransactionID)
	assert.Nil(t, p.ErrorMessage)
	assert.Equal(t, 1, s.saves)
}

func TestRandomStrategy_DelegatesOnceAndNeverToItself(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	reg := providers.NewRegistry(s, nil)
	allowed := map[models.PaymentStatus]bool{
		models.StatusSucceeded:      true,
		models.StatusFailed:         true,
		models.StatusRequiresAction: true,
	}

	for i := 0; i < 200; i++ {
		p, err := reg.Get("random").Process(context.Background(), newRequest())
		require.NoError(t, err)
		assert.True(t, allowed[p.Status], "unexpected status %s", p.Status)
		assert.NotEqual(t, providers.Random, p.Provider)
	}
	assert.Equal(t, 200, s.saves)
}

func TestRandomStrategy_CoversEveryCandidate(t *testing.T) {
	i := 0
	pick := func(n int) int {
		defer func() { i++ }()
		return i % n
	}
	reg := providers.NewRegistry(store.NewMemoryStore(), pick)

	seen := map[models.PaymentStatus]bool{}
	for j := 0; j < 3; j++ {
		p, err := reg.Get("mock_random").Process(context.Background(), newRequest())
		require.NoError(t, err)
		seen[p.Status] = true
	}
	assert.Len(t, seen, 3)
}

func TestRegistryGet_AliasesAndFallback(t *testing.T) {
	reg := providers.NewRegistry(store.NewMemoryStore(), nil)

	assert.Equal(t, providers.ThreeDS, reg.Get("MOCK_3DS").Name())
	assert.Equal(t, providers.ThreeDS, reg.Get("3ds").Name())
	assert.Equal(t, providers.Failed, reg.Get("mock_failed").Name())
	assert.Equal(t, providers.Slow, reg.Get(" Slow ").Name())
	assert.Equal(t, providers.Success, reg.Get("stripe").Name())
	assert.Equal(t, providers.Success, reg.Get("").Name())

	assert.Equal(t, []string{"failed", "random", "slow", "success", "three_ds"}, reg.Names())
	assert.Len(t, reg.Describe(), 5)
}

func TestProcess_InvalidMerchantDoesNotSave(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	req := newRequest()
	req.MerchantID = "nope"

	_, err := providers.NewRegistry(s, nil).Get("success").Process(context.Background(), req)
	assert.Error(t, err)
	assert.Zero(t, s.saves)
}

func TestSelector(t *testing.T) {
	sel := providers.NewSelector("mock_3ds")
	assert.Equal(t, providers.ThreeDS, sel.Current())

	got, err := sel.Set("MOCK_FAILED")
	require.NoError(t, err)
	assert.Equal(t, providers.Failed, got)
	assert.Equal(t, providers.Failed, sel.Current())

	_, err = sel.Set("paypal")
	assert.Error(t, err)
	assert.Equal(t, providers.Failed, sel.Current())

	assert.Equal(t, providers.Success, providers.NewSelector("unknown").Current())
}
