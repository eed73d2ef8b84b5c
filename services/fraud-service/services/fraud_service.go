package services

import (
	"context"
	"strings"

	"github.com/paygate/backend/services/fraud-service/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	ReasonDisabled  = "Fraud check disabled"
	ReasonCompleted = "Fraud check completed"
	ReasonHighRisk  = "High risk score detected"
)

type FraudService interface {
	Check(ctx context.Context, req *models.CheckRequest) *models.CheckResponse
}

type Options struct {
	Enabled   bool
	Threshold float64
	Rules     []Rule
	Registry  prometheus.Registerer
	Logger    *zap.Logger
}

type fraudService struct {
	enabled   bool
	threshold float64
	rules     []Rule
	checks    *prometheus.CounterVec
	scores    prometheus.Histogram
	logger    *zap.Logger
}

func NewFraudService(opts Options) FraudService {
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &fraudService{
		enabled:   opts.Enabled,
		threshold: opts.Threshold,
		rules:     opts.Rules,
		logger:    opts.Logger,
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_checks_total",
			Help: "Fraud checks by verdict.",
		}, []string{"verdict"}),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_risk_score",
			Help:    "Distribution of computed risk scores.",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
	if opts.Registry != nil {
		opts.Registry.MustRegister(s.checks, s.scores)
	}
	return s
}

func (s *fraudService) Check(ctx context.Context, req *models.CheckRequest) *models.CheckResponse {
	if !s.enabled {
		s.checks.WithLabelValues("disabled").Inc()
		return &models.CheckResponse{PaymentID: req.PaymentID, Reason: ReasonDisabled}
	}

	score, matched := Score(req, s.rules)
	risk, _ := score.Float64()
	resp := &models.CheckResponse{
		PaymentID: req.PaymentID,
		RiskScore: risk,
		IsFraud:   risk >= s.threshold,
		Reason:    ReasonCompleted,
	}
	if resp.IsFraud {
		resp.Reason = ReasonHighRisk
		if len(matched) > 0 {
			resp.Reason += ": " + strings.Join(matched, ", ")
		}
		s.checks.WithLabelValues("fraud").Inc()
	} else {
		s.checks.WithLabelValues("clean").Inc()
	}
	s.scores.Observe(risk)

	s.logger.Info("Fraud check",
		zap.String("payment_id", req.PaymentID),
		zap.String("merchant_id", req.MerchantID),
		zap.String("amount", req.Amount.String()),
		zap.Float64("risk_score", risk),
		zap.Bool("is_fraud", resp.IsFraud),
	)
	return resp
}
