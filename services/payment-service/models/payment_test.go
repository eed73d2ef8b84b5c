package models_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.PaymentStatus
		ok       bool
	}{
		{models.StatusPending, models.StatusProcessing, true},
		{models.StatusPending, models.StatusSucceeded, true},
		{models.StatusProcessing, models.StatusFailed, true},
		{models.StatusProcessing, models.StatusRequiresAction, true},
		{models.StatusRequiresAction, models.StatusSucceeded, true},
		{models.StatusRequiresAction, models.StatusFailed, false},
		{models.StatusSucceeded, models.StatusSucceeded, false},
		{models.StatusSucceeded, models.StatusFailed, false},
		{models.StatusFailed, models.StatusSucceeded, false},
		{models.StatusProcessing, models.StatusPending, false},
		{models.StatusRefunded, models.StatusSucceeded, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, models.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	err := models.ValidateTransition(models.StatusSucceeded, models.StatusSucceeded)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, models.StatusSucceeded.IsTerminal())
	assert.True(t, models.StatusFailed.IsTerminal())
	assert.False(t, models.StatusRequiresAction.IsTerminal())
	assert.False(t, models.StatusProcessing.IsTerminal())
}

func TestClone_IsDeep(t *testing.T) {
	p := &models.Payment{
		PaymentID:     uuid.New(),
		Status:        models.StatusRequiresAction,
		NextAction:    &models.NextAction{Type: "redirect", Path: "/mock-3ds"},
		NextActionURL: strPtr("/mock-3ds?payment_id=x"),
		Metadata:      map[string]interface{}{"nested": map[string]interface{}{"k": "v"}, "list": []interface{}{"a"}},
	}
	cp := p.Clone()

	cp.NextAction.Path = "/changed"
	*cp.NextActionURL = "changed"
	cp.Metadata["nested"].(map[string]interface{})["k"] = "changed"
	cp.Metadata["list"].([]interface{})[0] = "changed"

	assert.Equal(t, "/mock-3ds", p.NextAction.Path)
	assert.Equal(t, "/mock-3ds?payment_id=x", *p.NextActionURL)
	assert.Equal(t, "v", p.Metadata["nested"].(map[string]interface{})["k"])
	assert.Equal(t, "a", p.Metadata["list"].([]interface{})[0])
	assert.Nil(t, (*models.Payment)(nil).Clone())
}

func TestCheckInvariants(t *testing.T) {
	ok := &models.Payment{Status: models.StatusSucceeded, TransactionID: strPtr("txn_1")}
	assert.NoError(t, ok.CheckInvariants())

	both := &models.Payment{Status: models.StatusFailed, TransactionID: strPtr("txn_1"), ErrorMessage: strPtr("no")}
	assert.Error(t, both.CheckInvariants())

	flag := &models.Payment{Status: models.StatusProcessing, RequiresAction: true}
	assert.Error(t, flag.CheckInvariants())

	pending := &models.Payment{Status: models.StatusProcessing}
	assert.NoError(t, pending.CheckInvariants())
}

func validRequest() models.PaymentRequest {
	return models.PaymentRequest{
		MerchantID:    uuid.NewString(),
		Amount:        decimal.RequireFromString("100.00"),
		Currency:      "usd",
		PaymentMethod: models.MethodCard,
		CustomerEmail: "buyer@example.com",
	}
}

func TestPaymentRequestValidation(t *testing.T) {
	v := models.NewValidator()

	req := validRequest()
	require.NoError(t, v.Struct(req))
	require.NoError(t, req.Normalize())
	assert.Equal(t, "USD", req.Currency)

	bad := []func(r *models.PaymentRequest){
		func(r *models.PaymentRequest) { r.Amount = decimal.Zero },
		func(r *models.PaymentRequest) { r.Amount = decimal.RequireFromString("-5") },
		func(r *models.PaymentRequest) { r.Currency = "US" },
		func(r *models.PaymentRequest) { r.PaymentMethod = "cash" },
		func(r *models.PaymentRequest) { r.MerchantID = "not-a-uuid" },
		func(r *models.PaymentRequest) { r.CustomerEmail = "nope" },
	}
	for i, mutate := range bad {
		r := validRequest()
		mutate(&r)
		err := v.Struct(r)
		assert.Error(t, err, "case %d", i)
		assert.Contains(t, models.ValidationMessage(err), "invalid request")
	}

	precise := validRequest()
	precise.Amount = decimal.RequireFromString("10.555")
	assert.ErrorIs(t, precise.Normalize(), models.ErrAmountPrecision)

	trailing := validRequest()
	trailing.Amount = decimal.RequireFromString("10.500")
	assert.NoError(t, trailing.Normalize())
}
