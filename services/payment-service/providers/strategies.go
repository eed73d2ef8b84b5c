package providers

import (
	"context"
	"math/rand/v2"

	"github.com/paygate/backend/services/payment-service/models"
)

const DeclineMessage = "Mocked decline: insufficient funds"

// ExpectedSettlementSeconds is the hint the slow strategy leaves in metadata.
const ExpectedSettlementSeconds = 10

type successProvider struct{ base }

func (p *successProvider) Name() string { return Success }

func (p *successProvider) Process(ctx context.Context, req *models.PaymentRequest) (*models.Payment, error) {
	pay, err := p.newPayment(req, models.StatusSucceeded)
	if err != nil {
		return nil, err
	}
	txn := NewTransactionID()
	pay.TransactionID = &txn
	return p.persist(ctx, pay, Success)
}

type failedProvider struct{ base }

func (p *failedProvider) Name() string { return Failed }

func (p *failedProvider) Process(ctx context.Context, req *models.PaymentRequest) (*models.Payment, error) {
	pay, err := p.newPayment(req, models.StatusFailed)
	if err != nil {
		return nil, err
	}
	msg := DeclineMessage
	pay.ErrorMessage = &msg
	return p.persist(ctx, pay, Failed)
}

type threeDSProvider struct{ base }

func (p *threeDSProvider) Name() string { return ThreeDS }

// Process builds the challenge with the final payment id already in
// next_action, so the record is written once.
func (p *threeDSProvider) Process(ctx context.Context, req *models.PaymentRequest) (*models.Payment, error) {
	pay, err := p.newPayment(req, models.StatusRequiresAction)
	if err != nil {
		return nil, err
	}
	id := pay.PaymentID.String()
	url := "/mock-3ds?payment_id=" + id
	pay.RequiresAction = true
	pay.NextAction = &models.NextAction{Type: "redirect", Path: "/mock-3ds", PaymentID: id}
	pay.NextActionURL = &url
	return p.persist(ctx, pay, ThreeDS)
}

type slowProvider struct{ base }

func (p *slowProvider) Name() string { return Slow }

func (p *slowProvider) Process(ctx context.Context, req *models.PaymentRequest) (*models.Payment, error) {
	pay, err := p.newPayment(req, models.StatusProcessing)
	if err != nil {
		return nil, err
	}
	if pay.Metadata == nil {
		pay.Metadata = map[string]interface{}{}
	}
	pay.Metadata["expected_settlement_seconds"] = ExpectedSettlementSeconds
	return p.persist(ctx, pay, Slow)
}

// PickFunc returns an index in [0, n).
type PickFunc func(n int) int

type randomProvider struct {
	candidates []Provider
	pick       PickFunc
}

func newRandomProvider(candidates []Provider, pick PickFunc) *randomProvider {
	if pick == nil {
		pick = rand.IntN
	}
	return &randomProvider{candidates: candidates, pick: pick}
}

func (p *randomProvider) Name() string { return Random }

// Process delegates exactly once; the candidates never include this provider.
func (p *randomProvider) Process(ctx context.Context, req *models.PaymentRequest) (*models.Payment, error) {
	return p.candidates[p.pick(len(p.candidates))].Process(ctx, req)
}
