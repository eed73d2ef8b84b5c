package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	aws_pkg "github.com/paygate/backend/pkg/aws"
	evt "github.com/paygate/backend/pkg/events"
	"github.com/paygate/backend/pkg/retry"
	"github.com/paygate/backend/services/common/clients"
	"github.com/paygate/backend/services/notification-service/models"
	"github.com/paygate/backend/services/notification-service/repository"
	"github.com/paygate/backend/services/notification-service/sender"
	"github.com/paygate/backend/services/notification-service/webhook"
	"go.uber.org/zap"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

type WebhookSender interface {
	Send(ctx context.Context, url string, payload map[string]interface{}, secret string) webhook.Result
}

type NotificationService interface {
	// ProcessPaymentEvent delivers the merchant webhook and the customer
	// email for a terminal payment event, each with retries.
	ProcessPaymentEvent(ctx context.Context, e evt.PaymentEvent) error
	// SendNotification validates req and delivers it in the background.
	SendNotification(ctx context.Context, req models.NotificationRequest) *ServiceError
	ListAttempts(ctx context.Context, filter models.AttemptFilter) ([]models.DeliveryAttempt, int64, *ServiceError)
	// Wait blocks until background deliveries have finished.
	Wait()
}

// Dependencies wires a NotificationService. Email, Merchants, Metrics and
// CloudWatch are optional; without Email no emails are sent.
type Dependencies struct {
	Repo           repository.AttemptRepository
	Email          sender.EmailSender
	Webhook        WebhookSender
	Merchants      clients.MerchantDirectory
	WebhookSecret  string
	MaxRetries     int
	RetryBaseDelay time.Duration
	Sleep          retry.SleepFunc
	Metrics        *NotificationMetrics
	CloudWatch     aws_pkg.MetricsRecorder
	Logger         *zap.Logger
}

type notificationService struct {
	repo       repository.AttemptRepository
	email      sender.EmailSender
	webhook    WebhookSender
	merchants  clients.MerchantDirectory
	secret     string
	maxRetries int
	baseDelay  time.Duration
	sleep      retry.SleepFunc
	metrics    *NotificationMetrics
	cloudWatch aws_pkg.MetricsRecorder
	logger     *zap.Logger
	now        func() time.Time
	wg         sync.WaitGroup
}

func NewNotificationService(d Dependencies) NotificationService {
	if d.MaxRetries < 1 {
		d.MaxRetries = 3
	}
	if d.RetryBaseDelay <= 0 {
		d.RetryBaseDelay = time.Second
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Webhook == nil {
		d.Webhook = webhook.NewSender(webhook.DefaultTimeout)
	}
	return &notificationService{
		repo:       d.Repo,
		email:      d.Email,
		webhook:    d.Webhook,
		merchants:  d.Merchants,
		secret:     d.WebhookSecret,
		maxRetries: d.MaxRetries,
		baseDelay:  d.RetryBaseDelay,
		sleep:      d.Sleep,
		metrics:    d.Metrics,
		cloudWatch: d.CloudWatch,
		logger:     d.Logger,
		now:        time.Now,
	}
}

func (s *notificationService) ProcessPaymentEvent(ctx context.Context, e evt.PaymentEvent) error {
	s.logger.Info("Processing payment event",
		zap.String("event_type", e.EventType),
		zap.String("payment_id", e.PaymentID),
	)

	base := models.DeliveryAttempt{
		PaymentID:  e.PaymentID,
		MerchantID: e.MerchantID,
		EventType:  e.EventType,
	}

	if url := s.webhookURL(ctx, e.MerchantID); url != "" {
		payload := e.Payload()
		delete(payload, "customer_email")

		attempt := base
		attempt.NotificationType = models.TypeWebhook
		attempt.Recipient = url
		s.deliverWebhook(ctx, attempt, url, payload)
	}

	if e.CustomerEmail != "" && s.email != nil {
		msg, err := sender.RenderPaymentEmail(e)
		if err != nil {
			return err
		}
		attempt := base
		attempt.NotificationType = models.TypeEmail
		attempt.Recipient = e.CustomerEmail
		s.deliverEmail(ctx, attempt, e.CustomerEmail, msg.Subject, msg.Body)
	}

	// Interrupted by shutdown: let the broker redeliver.
	return ctx.Err()
}

func (s *notificationService) SendNotification(ctx context.Context, req models.NotificationRequest) *ServiceError {
	kind := req.NotificationType
	if kind == "" {
		kind = models.TypeEmail
	}

	attempt := models.DeliveryAttempt{
		PaymentID:        req.PaymentID(),
		NotificationType: kind,
		Recipient:        req.Recipient,
	}

	var deliver func(ctx context.Context)
	switch kind {
	case models.TypeEmail:
		if s.email == nil {
			return &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Email delivery is not configured"}
		}
		deliver = func(ctx context.Context) {
			s.deliverEmail(ctx, attempt, req.Recipient, req.Subject, req.Body)
		}
	case models.TypeWebhook:
		if req.WebhookURL == "" {
			return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "webhook_url is required for webhook notifications"}
		}
		attempt.Recipient = req.WebhookURL
		payload := map[string]interface{}{
			"recipient": req.Recipient,
			"subject":   req.Subject,
			"body":      req.Body,
			"metadata":  req.Metadata,
		}
		deliver = func(ctx context.Context) {
			s.deliverWebhook(ctx, attempt, req.WebhookURL, payload)
		}
	default:
		return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "Unsupported notification type: " + kind}
	}

	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		deliver(detached)
	}()
	return nil
}

func (s *notificationService) Wait() {
	s.wg.Wait()
}

func (s *notificationService) ListAttempts(ctx context.Context, filter models.AttemptFilter) ([]models.DeliveryAttempt, int64, *ServiceError) {
	attempts, total, err := s.repo.ListAttempts(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list delivery attempts", zap.Error(err))
		return nil, 0, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Delivery attempts unavailable"}
	}
	return attempts, total, nil
}

func (s *notificationService) webhookURL(ctx context.Context, merchantID string) string {
	if s.merchants == nil || merchantID == "" {
		return ""
	}
	m, err := s.merchants.GetMerchant(ctx, merchantID)
	if err != nil {
		s.logger.Warn("merchant lookup failed, skipping webhook",
			zap.String("merchant_id", merchantID),
			zap.Error(err),
		)
		return ""
	}
	return m.WebhookURL
}

func (s *notificationService) deliverWebhook(ctx context.Context, base models.DeliveryAttempt, url string, payload map[string]interface{}) bool {
	return s.deliver(ctx, base, func(ctx context.Context) (int, error) {
		res := s.webhook.Send(ctx, url, payload, s.secret)
		if !res.Success {
			return res.StatusCode, errors.New(res.Error)
		}
		return res.StatusCode, nil
	})
}

func (s *notificationService) deliverEmail(ctx context.Context, base models.DeliveryAttempt, to, subject, body string) bool {
	return s.deliver(ctx, base, func(ctx context.Context) (int, error) {
		_, err := s.email.SendEmail(ctx, to, subject, body)
		return 0, err
	})
}

// deliver runs send under the retry executor and records one attempt row
// per try. send returns the response code when the transport has one.
func (s *notificationService) deliver(ctx context.Context, base models.DeliveryAttempt, send func(ctx context.Context) (int, error)) bool {
	var code int
	policy := retry.Policy{
		MaxRetries: s.maxRetries,
		BaseDelay:  s.baseDelay,
		Operation:  base.NotificationType + " delivery",
		Logger:     s.logger,
		Sleep:      s.sleep,
		OnAttempt: func(attempt int, success bool, err error) {
			s.record(ctx, base, attempt, success, err, code)
		},
	}

	ok, _, _ := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (bool, struct{}, error) {
		code = 0
		var err error
		code, err = send(ctx)
		return err == nil, struct{}{}, err
	})

	s.metrics.observeDelivery(base.NotificationType, ok)
	s.recordDelivery(ctx, base.NotificationType, ok)
	s.logger.Info("Delivery finished",
		zap.String("type", base.NotificationType),
		zap.String("payment_id", base.PaymentID),
		zap.Bool("delivered", ok),
	)
	return ok
}

var deliveryMetrics = map[string][2]string{
	models.TypeWebhook: {aws_pkg.MetricWebhookDelivered, aws_pkg.MetricWebhookFailed},
	models.TypeEmail:   {aws_pkg.MetricEmailDelivered, aws_pkg.MetricEmailFailed},
}

func (s *notificationService) recordDelivery(ctx context.Context, kind string, ok bool) {
	names, known := deliveryMetrics[kind]
	if s.cloudWatch == nil || !known {
		return
	}
	metric := names[0]
	if !ok {
		metric = names[1]
	}
	if err := s.cloudWatch.RecordCount(context.WithoutCancel(ctx), metric, map[string]string{"Type": kind}); err != nil {
		s.logger.Debug("CloudWatch metric dropped", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *notificationService) record(ctx context.Context, base models.DeliveryAttempt, attempt int, success bool, err error, code int) {
	a := base
	a.AttemptNumber = attempt
	a.Status = models.AttemptStatus(success, attempt, s.maxRetries)
	a.Timestamp = s.now().UTC()
	if err != nil {
		msg := err.Error()
		a.ErrorMessage = &msg
	}
	if code != 0 {
		c := code
		a.ResponseCode = &c
	}
	s.metrics.observeAttempt(a.NotificationType, a.Status)

	if success {
		s.logger.Info("Delivery attempt succeeded",
			zap.String("type", a.NotificationType),
			zap.Int("attempt", attempt),
			zap.Int("response_code", code),
		)
	} else {
		s.logger.Warn("Delivery attempt failed",
			zap.String("type", a.NotificationType),
			zap.Int("attempt", attempt),
			zap.String("status", a.Status),
			zap.Int("response_code", code),
			zap.Error(err),
		)
	}

	if s.repo == nil {
		return
	}
	if err := s.repo.SaveAttempt(context.WithoutCancel(ctx), &a); err != nil {
		s.logger.Error("failed to save delivery attempt", zap.Error(err))
	}
}
