package services

import "github.com/prometheus/client_golang/prometheus"

type NotificationMetrics struct {
	attempts   *prometheus.CounterVec
	deliveries *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_delivery_attempts_total",
			Help: "Individual delivery tries by type and recorded status.",
		}, []string{"type", "status"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Deliveries after retries, by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.deliveries)
	}
	return m
}

func (m *NotificationMetrics) observeAttempt(kind, status string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(kind, status).Inc()
}

func (m *NotificationMetrics) observeDelivery(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "delivered"
	if !ok {
		outcome = "exhausted"
	}
	m.deliveries.WithLabelValues(kind, outcome).Inc()
}
