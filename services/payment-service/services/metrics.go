package services

import (
	"github.com/paygate/backend/services/payment-service/models"
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics holds the Prometheus business counters of the payment flow.
type PaymentMetrics struct {
	payments  *prometheus.CounterVec
	amount    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	threeDS   *prometheus.CounterVec
	fraudHits prometheus.Counter
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by resulting status.",
		}, []string{"status", "payment_method", "currency"}),
		amount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_amount_total",
			Help: "Sum of payment amounts.",
		}, []string{"currency"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "payment_processing_duration_seconds",
			Help:    "Time spent in CreatePayment.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		threeDS: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "three_ds_attempts_total",
			Help: "3DS challenges initiated and completed.",
		}, []string{"status"}),
		fraudHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fraud_blocked_total",
			Help: "Payments rejected by the fraud check.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.payments, m.amount, m.duration, m.threeDS, m.fraudHits)
	}
	return m
}

func (m *PaymentMetrics) observeCreated(p *models.Payment, seconds float64) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(string(p.Status), string(p.PaymentMethod), p.Currency).Inc()
	amount, _ := p.Amount.Float64()
	m.amount.WithLabelValues(p.Currency).Add(amount)
	m.duration.WithLabelValues(string(p.Status)).Observe(seconds)
	if p.Status == models.StatusRequiresAction {
		m.threeDS.WithLabelValues("initiated").Inc()
	}
}

func (m *PaymentMetrics) observeThreeDSCompleted(p *models.Payment) {
	if m == nil {
		return
	}
	m.threeDS.WithLabelValues("completed").Inc()
	m.payments.WithLabelValues(string(p.Status), string(p.PaymentMethod), p.Currency).Inc()
}

func (m *PaymentMetrics) observeFraudBlocked() {
	if m == nil {
		return
	}
	m.fraudHits.Inc()
}
