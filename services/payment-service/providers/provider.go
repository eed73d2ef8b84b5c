package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/paygate/backend/services/payment-service/store"
)

// Strategy names.
const (
	Success = "success"
	Failed  = "failed"
	ThreeDS = "three_ds"
	Slow    = "slow"
	Random  = "random"
)

// Provider turns a validated request into the initial payment record. Every
// call persists exactly once through the store it was built with.
type Provider interface {
	Name() string
	Process(ctx context.Context, req *models.PaymentRequest) (*models.Payment, error)
}

var aliases = map[string]string{
	"mock_success": Success,
	"mock_failed":  Failed,
	"mock_3ds":     ThreeDS,
	"3ds":          ThreeDS,
	"mock_slow":    Slow,
	"mock_random":  Random,
}

var descriptions = map[string]string{
	Success: "Always succeeds",
	Failed:  "Always declines",
	ThreeDS: "Requires 3DS authentication",
	Slow:    "Slow settlement, stays in processing",
	Random:  "Picks one of success, failed or three_ds at random",
}

// Canonical maps a strategy name or alias to its registered name. ok is false
// when the name is unknown.
func Canonical(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, found := aliases[n]; found {
		n = a
	}
	_, known := descriptions[n]
	return n, known
}

// Registry holds the strategies for one store. Build it once at startup and
// inject it.
type Registry struct {
	providers map[string]Provider
	fallback  Provider
}

// NewRegistry wires every strategy against s. pick chooses the random
// strategy's delegate; nil means math/rand.
func NewRegistry(s store.PaymentStore, pick PickFunc) *Registry {
	b := base{store: s, now: func() time.Time { return time.Now().UTC() }}
	success := &successProvider{base: b}
	failed := &failedProvider{base: b}
	threeDS := &threeDSProvider{base: b}
	slow := &slowProvider{base: b}

	r := &Registry{
		providers: map[string]Provider{
			Success: success,
			Failed:  failed,
			ThreeDS: threeDS,
			Slow:    slow,
		},
		fallback: success,
	}
	r.providers[Random] = newRandomProvider([]Provider{success, failed, threeDS}, pick)
	return r
}

// Get resolves name (case-insensitive, aliases accepted). Unknown names fall
// back to the success strategy.
func (r *Registry) Get(name string) Provider {
	n, _ := Canonical(name)
	if p, ok := r.providers[n]; ok {
		return p
	}
	return r.fallback
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Describe returns name → human readable behaviour for every strategy.
func (r *Registry) Describe() map[string]string {
	out := make(map[string]string, len(r.providers))
	for n := range r.providers {
		out[n] = descriptions[n]
	}
	return out
}

// Selector is the runtime-switchable active strategy.
type Selector struct {
	mu      sync.RWMutex
	current string
}

func NewSelector(initial string) *Selector {
	n, ok := Canonical(initial)
	if !ok {
		n = Success
	}
	return &Selector{current: n}
}

func (s *Selector) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Selector) Set(name string) (string, error) {
	n, ok := Canonical(name)
	if !ok {
		return "", fmt.Errorf("unknown provider %q", name)
	}
	s.mu.Lock()
	s.current = n
	s.mu.Unlock()
	return n, nil
}

type base struct {
	store store.PaymentStore
	now   func() time.Time
}

func (b base) newPayment(req *models.PaymentRequest, status models.PaymentStatus) (*models.Payment, error) {
	merchantID, err := uuid.Parse(req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("invalid merchant_id: %w", err)
	}
	now := b.now()
	p := &models.Payment{
		PaymentID:     uuid.New(),
		MerchantID:    merchantID,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(req.Currency),
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		CustomerEmail: req.CustomerEmail,
		Status:        status,
		Metadata:      models.CloneMetadata(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if f := req.Fraud; f != nil {
		score := f.RiskScore
		p.FraudRiskScore = &score
		if f.Reason != "" {
			reason := f.Reason
			p.FraudReason = &reason
		}
	}
	return p, nil
}

func (b base) persist(ctx context.Context, p *models.Payment, provider string) (*models.Payment, error) {
	p.Provider = provider
	saved, err := b.store.Save(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save payment: %w", err)
	}
	return saved, nil
}

// NewTransactionID returns "txn_" followed by 10 hex characters.
func NewTransactionID() string {
	return "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
