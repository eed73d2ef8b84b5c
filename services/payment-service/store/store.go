package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paygate/backend/services/payment-service/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentUpdate carries the fields to merge. Nil pointers are left untouched;
// ClearNextAction drops next_action and next_action_url.
type PaymentUpdate struct {
	Status          *models.PaymentStatus
	TransactionID   *string
	ErrorMessage    *string
	RequiresAction  *bool
	NextAction      *models.NextAction
	NextActionURL   *string
	ClearNextAction bool
	Metadata        map[string]interface{}
}

// PaymentStore keeps the live payment records. Implementations must return
// copies so callers never share memory with the stored value.
type PaymentStore interface {
	Save(ctx context.Context, p *models.Payment) (*models.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	Update(ctx context.Context, id uuid.UUID, upd PaymentUpdate) (*models.Payment, error)
	Hydrate(ctx context.Context, p *models.Payment) (*models.Payment, error)
}

type MemoryStore struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*models.Payment
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		payments: make(map[uuid.UUID]*models.Payment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Save upserts by payment_id.
func (s *MemoryStore) Save(_ context.Context, p *models.Payment) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := p.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.payments[stored.PaymentID] = stored
	return stored.Clone(), nil
}

// Hydrate inserts p only when no record with its id is held yet and returns
// whichever record the store ends up with. A stale database copy never
// replaces a newer in-memory one.
func (s *MemoryStore) Hydrate(_ context.Context, p *models.Payment) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.payments[p.PaymentID]; ok {
		return current.Clone(), nil
	}
	stored := p.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	s.payments[stored.PaymentID] = stored
	return stored.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return p.Clone(), nil
}

// Update merges upd into the stored record. A status change must be a legal
// transition, checked under the same lock as the write.
func (s *MemoryStore) Update(_ context.Context, id uuid.UUID, upd PaymentUpdate) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	if upd.Status != nil {
		if err := models.ValidateTransition(current.Status, *upd.Status); err != nil {
			return nil, err
		}
	}

	next := current.Clone()
	if upd.Status != nil {
		next.Status = *upd.Status
	}
	if upd.TransactionID != nil {
		v := *upd.TransactionID
		next.TransactionID = &v
	}
	if upd.ErrorMessage != nil {
		v := *upd.ErrorMessage
		next.ErrorMessage = &v
	}
	if upd.RequiresAction != nil {
		next.RequiresAction = *upd.RequiresAction
	}
	if upd.ClearNextAction {
		next.NextAction = nil
		next.NextActionURL = nil
	} else {
		if upd.NextAction != nil {
			na := *upd.NextAction
			next.NextAction = &na
		}
		if upd.NextActionURL != nil {
			v := *upd.NextActionURL
			next.NextActionURL = &v
		}
	}
	if upd.Metadata != nil {
		if next.Metadata == nil {
			next.Metadata = make(map[string]interface{}, len(upd.Metadata))
		}
		for k, v := range models.CloneMetadata(upd.Metadata) {
			next.Metadata[k] = v
		}
	}

	updated := s.now()
	if !updated.After(current.UpdatedAt) {
		updated = current.UpdatedAt.Add(time.Microsecond)
	}
	next.UpdatedAt = updated

	s.payments[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}
