package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mbd888/fraudrisk/internal/idgen"
	"github.com/mbd888/fraudrisk/internal/logging"
	"github.com/mbd888/fraudrisk/internal/metrics"
	"github.com/mbd888/fraudrisk/internal/schema"
	"github.com/mbd888/fraudrisk/internal/traces"
)

// recordTimeout bounds the audit write so a slow store cannot stall a response.
const recordTimeout = 2 * time.Second

var ErrNoModel = errors.New("no model loaded")

// Service scores transactions with a model loaded once at startup.
type Service struct {
	scorer          Scorer
	store           Store
	logger          *slog.Logger
	highThreshold   float64
	mediumThreshold float64
}

// NewService creates a scoring service. store may be nil to disable the audit trail.
func NewService(scorer Scorer, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		scorer:          scorer,
		store:           store,
		logger:          logger,
		highThreshold:   DefaultHighThreshold,
		mediumThreshold: DefaultMediumThreshold,
	}
}

// WithThresholds overrides the decision cut-offs.
func (s *Service) WithThresholds(medium, high float64) *Service {
	s.mediumThreshold = medium
	s.highThreshold = high
	return s
}

// Ready reports whether a model is loaded.
func (s *Service) Ready() bool {
	return s.scorer != nil
}

// Score returns the fraud probability for vec, which must be in schema order.
func (s *Service) Score(ctx context.Context, vec schema.Vector) (*Assessment, error) {
	if s.scorer == nil {
		return nil, ErrNoModel
	}

	ctx, span := traces.StartSpan(ctx, "risk.Score")
	defer span.End()

	timer := metrics.StartInference()
	proba, err := s.scorer.PredictProba(vec)
	timer.ObserveDuration()
	if err != nil {
		traces.Fail(span, err, "inference failed")
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	score := clamp(proba[1])
	assessment := &Assessment{
		ID:          idgen.WithPrefix("fra_"),
		Score:       score,
		Decision:    s.decide(score),
		Features:    vec.Map(),
		RequestID:   logging.RequestID(ctx),
		EvaluatedAt: time.Now().UTC(),
	}
	span.SetAttributes(traces.AssessmentID(assessment.ID), traces.RiskScore(score))

	metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.FraudRiskScore.Observe(score)
	metrics.DecisionsTotal.WithLabelValues(string(assessment.Decision)).Inc()

	s.record(ctx, assessment)
	return assessment, nil
}

// Recent returns the latest audited assessments, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Assessment, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRecent(ctx, limit)
}

// record writes the assessment to the audit store. Failures are logged and dropped.
func (s *Service) record(ctx context.Context, a *Assessment) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.store.Record(ctx, a); err != nil {
		metrics.AuditFailuresTotal.Inc()
		s.logger.Warn("failed to record risk assessment",
			"id", a.ID,
			"request_id", a.RequestID,
			"error", err,
		)
	}
}

func (s *Service) decide(score float64) Decision {
	switch {
	case score >= s.highThreshold:
		return DecisionHigh
	case score >= s.mediumThreshold:
		return DecisionMedium
	default:
		return DecisionLow
	}
}

func clamp(p float64) float64 {
	if p > 1.0 {
		return 1.0
	}
	if p < 0.0 {
		return 0.0
	}
	return p
}
