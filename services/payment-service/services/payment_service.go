package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	aws_pkg "github.com/paygate/backend/pkg/aws"
	"github.com/paygate/backend/services/payment-service/clients"
	"github.com/paygate/backend/services/payment-service/events"
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/paygate/backend/services/payment-service/providers"
	"github.com/paygate/backend/services/payment-service/repository"
	"github.com/paygate/backend/services/payment-service/store"
	"go.uber.org/zap"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

type PaymentService interface {
	CreatePayment(ctx context.Context, req *models.PaymentRequest) (*models.Payment, *ServiceError)
	CompleteThreeDS(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError)
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int64, *ServiceError)
}

// Dependencies wires a PaymentService. Fraud, Notifier, Events, Metrics and
// CloudWatch are optional.
type Dependencies struct {
	Store          store.PaymentStore
	Registry       *providers.Registry
	Selector       *providers.Selector
	Repo           repository.PaymentRepository
	Fraud          clients.FraudChecker
	Notifier       clients.Notifier
	Events         events.Publisher
	Metrics        *PaymentMetrics
	CloudWatch     aws_pkg.MetricsRecorder
	Logger         *zap.Logger
	// NotifyTimeout bounds the customer notification call and
	// PublishTimeout the event publish. Each call gets its own budget.
	NotifyTimeout  time.Duration
	PublishTimeout time.Duration
}

type paymentServiceImpl struct {
	store          store.PaymentStore
	registry       *providers.Registry
	selector       *providers.Selector
	repo           repository.PaymentRepository
	fraud          clients.FraudChecker
	notifier       clients.Notifier
	events         events.Publisher
	metrics        *PaymentMetrics
	cloudWatch     aws_pkg.MetricsRecorder
	validate       *validator.Validate
	logger         *zap.Logger
	notifyTimeout  time.Duration
	publishTimeout time.Duration
	now            func() time.Time
}

func NewPaymentService(d Dependencies) PaymentService {
	if d.NotifyTimeout <= 0 {
		d.NotifyTimeout = 5 * time.Second
	}
	if d.PublishTimeout <= 0 {
		d.PublishTimeout = 5 * time.Second
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Selector == nil {
		d.Selector = providers.NewSelector(providers.Success)
	}
	return &paymentServiceImpl{
		store:          d.Store,
		registry:       d.Registry,
		selector:       d.Selector,
		repo:           d.Repo,
		fraud:          d.Fraud,
		notifier:       d.Notifier,
		events:         d.Events,
		metrics:        d.Metrics,
		cloudWatch:     d.CloudWatch,
		validate:       models.NewValidator(),
		logger:         d.Logger,
		notifyTimeout:  d.NotifyTimeout,
		publishTimeout: d.PublishTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreatePayment runs the fraud check, the active strategy and the durable
// write, then notifies and publishes when the outcome is final.
func (s *paymentServiceImpl) CreatePayment(ctx context.Context, req *models.PaymentRequest) (*models.Payment, *ServiceError) {
	start := time.Now()

	if err := s.validate.Struct(req); err != nil {
		return nil, &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: models.ValidationMessage(err)}
	}
	if err := req.Normalize(); err != nil {
		return nil, &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "invalid request: " + err.Error()}
	}

	verdict := s.checkFraud(ctx, req)

	var (
		payment *models.Payment
		err     error
	)
	if verdict != nil && verdict.IsFraud {
		payment, err = s.blockPayment(ctx, req, verdict)
	} else {
		// The assessment rides on the request so the strategy's one save
		// carries it.
		annotated := *req
		if verdict != nil {
			annotated.Fraud = &models.FraudAssessment{RiskScore: verdict.RiskScore, Reason: verdict.Reason}
		}
		payment, err = s.registry.Get(s.selector.Current()).Process(ctx, &annotated)
	}
	if err != nil {
		s.logger.Error("Payment processing failed", zap.String("merchant_id", req.MerchantID), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to process payment"}
	}

	log := s.logger.With(
		zap.String("payment_id", payment.PaymentID.String()),
		zap.String("status", string(payment.Status)),
		zap.String("provider", payment.Provider),
	)

	if err := s.repo.Save(ctx, payment); err != nil {
		log.Error("Failed to persist payment", zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Payment storage unavailable"}
	}
	log.Info("Payment created")

	s.metrics.observeCreated(payment, time.Since(start).Seconds())
	s.recordCreated(ctx, payment)

	s.dispatch(ctx, payment)
	return payment, nil
}

// CompleteThreeDS finishes a 3DS challenge. Only requires_action payments can
// complete; every other status yields 409.
func (s *paymentServiceImpl) CompleteThreeDS(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError) {
	if _, svcErr := s.load(ctx, id); svcErr != nil {
		return nil, svcErr
	}

	status := models.StatusSucceeded
	txn := providers.NewTransactionID()
	cleared := false
	payment, err := s.store.Update(ctx, id, store.PaymentUpdate{
		Status:          &status,
		TransactionID:   &txn,
		RequiresAction:  &cleared,
		ClearNextAction: true,
	})
	switch {
	case errors.Is(err, store.ErrPaymentNotFound):
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Payment not found"}
	case errors.Is(err, models.ErrInvalidTransition):
		return nil, &ServiceError{StatusCode: http.StatusConflict, Message: "Payment is not awaiting 3DS authentication"}
	case err != nil:
		s.logger.Error("3DS completion failed", zap.String("payment_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to complete 3DS"}
	}

	log := s.logger.With(zap.String("payment_id", id.String()))
	if err := s.repo.Save(ctx, payment); err != nil {
		log.Error("Failed to persist 3DS completion", zap.Error(err))
	}
	log.Info("3DS authentication completed", zap.String("transaction_id", txn))

	s.metrics.observeThreeDSCompleted(payment)
	s.record(ctx, aws_pkg.MetricThreeDSCompleted, payment)
	s.record(ctx, aws_pkg.MetricPaymentSucceeded, payment)

	s.dispatch(ctx, payment)
	return payment, nil
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError) {
	return s.load(ctx, id)
}

func (s *paymentServiceImpl) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int64, *ServiceError) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, 0, &ServiceError{StatusCode: http.StatusBadRequest, Message: "date_from must not be after date_to"}
	}
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list payments", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Payment storage unavailable"}
	}
	// Live records are fresher than the last write-through.
	for i := range payments {
		if live, err := s.store.Get(ctx, payments[i].PaymentID); err == nil {
			payments[i] = *live
		}
	}
	return payments, total, nil
}

// load reads from the store and falls back to Postgres, hydrating the store
// on a hit.
func (s *paymentServiceImpl) load(ctx context.Context, id uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.store.Get(ctx, id)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, store.ErrPaymentNotFound) {
		s.logger.Error("Payment store read failed", zap.String("payment_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusInternalServerError, Message: "Failed to load payment"}
	}

	persisted, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ServiceError{StatusCode: http.StatusNotFound, Message: "Payment not found"}
	}
	if err != nil {
		s.logger.Error("Payment lookup failed", zap.String("payment_id", id.String()), zap.Error(err))
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Payment storage unavailable"}
	}

	payment, err = s.store.Hydrate(ctx, persisted)
	if err != nil {
		s.logger.Warn("Failed to hydrate payment store", zap.String("payment_id", id.String()), zap.Error(err))
		return persisted, nil
	}
	return payment, nil
}

// checkFraud returns nil when no verdict is available.
func (s *paymentServiceImpl) checkFraud(ctx context.Context, req *models.PaymentRequest) *clients.FraudVerdict {
	if s.fraud == nil {
		return nil
	}
	verdict, err := s.fraud.Check(ctx, req)
	if err != nil {
		s.logger.Warn("Fraud check unavailable, continuing without verdict",
			zap.String("merchant_id", req.MerchantID), zap.Error(err))
		return nil
	}
	return verdict
}

// blockPayment records a failed payment for a fraud hit without running a
// strategy.
func (s *paymentServiceImpl) blockPayment(ctx context.Context, req *models.PaymentRequest, verdict *clients.FraudVerdict) (*models.Payment, error) {
	merchantID, err := uuid.Parse(req.MerchantID)
	if err != nil {
		return nil, err
	}
	reason := verdict.Reason
	if reason == "" {
		reason = "Fraud check failed"
	}
	now := s.now()
	payment := &models.Payment{
		PaymentID:     uuid.New(),
		MerchantID:    merchantID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		CustomerEmail: req.CustomerEmail,
		Status:        models.StatusFailed,
		ErrorMessage:  &reason,
		Metadata:      map[string]interface{}{"fraud_risk_score": verdict.RiskScore},
		Provider:      "fraud_check",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	score := verdict.RiskScore
	payment.FraudRiskScore = &score
	payment.FraudReason = &reason
	s.metrics.observeFraudBlocked()
	s.record(ctx, aws_pkg.MetricFraudBlocked, payment)
	s.logger.Warn("Payment blocked by fraud check",
		zap.String("payment_id", payment.PaymentID.String()),
		zap.Float64("risk_score", verdict.RiskScore))
	return s.store.Save(ctx, payment)
}

// dispatch notifies the customer and publishes the lifecycle event for
// succeeded and failed payments. Both calls outlive the caller's context and
// a slow notification never eats into the publish deadline.
func (s *paymentServiceImpl) dispatch(ctx context.Context, payment *models.Payment) {
	if !payment.Status.IsTerminal() {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.notify(detached, payment)
	s.publish(detached, payment)
}

func (s *paymentServiceImpl) notify(ctx context.Context, payment *models.Payment) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.NotifyCustomer(ctx, payment, payment.CustomerEmail); err != nil {
		s.logger.Warn("Customer notification failed",
			zap.String("payment_id", payment.PaymentID.String()), zap.Error(err))
	}
}

func (s *paymentServiceImpl) publish(ctx context.Context, payment *models.Payment) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	s.events.PublishPaymentEvent(ctx, payment)
}

func (s *paymentServiceImpl) recordCreated(ctx context.Context, p *models.Payment) {
	s.record(ctx, aws_pkg.MetricPaymentsCreated, p)
	switch p.Status {
	case models.StatusSucceeded:
		s.record(ctx, aws_pkg.MetricPaymentSucceeded, p)
	case models.StatusFailed:
		s.record(ctx, aws_pkg.MetricPaymentFailed, p)
	case models.StatusRequiresAction:
		s.record(ctx, aws_pkg.MetricThreeDSRequired, p)
	}
}

func (s *paymentServiceImpl) record(ctx context.Context, metric string, p *models.Payment) {
	if s.cloudWatch == nil {
		return
	}
	dims := map[string]string{"Status": string(p.Status), "Currency": p.Currency}
	if err := s.cloudWatch.RecordCount(ctx, metric, dims); err != nil {
		s.logger.Debug("CloudWatch metric dropped", zap.String("metric", metric), zap.Error(err))
	}
}
