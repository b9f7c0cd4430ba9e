// Package scoring implements the transaction risk-scoring pipeline:
// feature engineering, a pluggable scorer, thresholding and risk-factor
// explanation, instrumented with Prometheus metrics and OpenTelemetry spans.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// ErrScoringFailed wraps any fault raised while scoring a valid transaction.
var ErrScoringFailed = errors.New("scoring failed")

// ErrInvalidProbability is returned when a scorer produces NaN.
var ErrInvalidProbability = errors.New("scorer returned an invalid probability")

const tracerName = "github.com/akylbek/payment-system/fraud-detection/internal/scoring"

// Recorder receives pipeline observations. *metrics.Registry implements it.
type Recorder interface {
	ObserveLatency(d time.Duration)
	RecordOutcome(outcome string)
	RecordFailure()
}

// Pipeline scores transactions. It holds no per-request state and is safe
// for concurrent use.
type Pipeline struct {
	engineer  *FeatureEngineer
	scorer    Scorer
	policy    DecisionPolicy
	explainer *Explainer
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithThreshold overrides the decision threshold.
func WithThreshold(threshold float64) Option {
	return func(p *Pipeline) { p.policy = NewDecisionPolicy(threshold) }
}

// WithExplainer replaces the default rule set.
func WithExplainer(e *Explainer) Option {
	return func(p *Pipeline) { p.explainer = e }
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline wires a pipeline around scorer. recorder and logger may be nil.
func NewPipeline(scorer Scorer, recorder Recorder, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		engineer:  NewFeatureEngineer(),
		scorer:    scorer,
		policy:    NewDecisionPolicy(DefaultThreshold),
		explainer: NewExplainer(),
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ScorerName returns the active strategy name.
func (p *Pipeline) ScorerName() string {
	return p.scorer.Name()
}

// Ready reports whether the active strategy is backed by a ready model.
func (p *Pipeline) Ready() bool {
	return IsReady(p.scorer)
}

// Process scores tx. Invalid transactions and cancelled contexts are
// rejected before any metric is touched. Once scoring has started it runs to
// completion even if ctx is cancelled. A scoring fault returns an error
// wrapping ErrScoringFailed and never a partial result.
func (p *Pipeline) Process(ctx context.Context, tx *models.Transaction) (*models.ScoringResult, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.logger.Info("Processing transaction", zap.String("transaction_id", tx.TransactionID))

	ctx, span := otel.Tracer(tracerName).Start(ctx, "scoring.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.id", tx.TransactionID),
		attribute.String("scorer", p.scorer.Name()),
	)

	// Cancellation is only honoured before scoring starts.
	start := time.Now()
	result, err := p.run(context.WithoutCancel(ctx), tx)
	p.observeLatency(time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if p.recorder != nil {
			p.recorder.RecordFailure()
		}
		p.logger.Debug("Error processing transaction",
			zap.String("transaction_id", tx.TransactionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", ErrScoringFailed, err)
	}

	if p.recorder != nil {
		p.recorder.RecordOutcome(result.Outcome())
	}
	span.SetAttributes(
		attribute.Float64("fraud.probability", result.FraudProbability),
		attribute.Bool("fraud.is_fraudulent", result.IsFraudulent),
		attribute.Int("fraud.risk_score", result.RiskScore),
	)

	p.logger.Info("Transaction scored",
		zap.String("transaction_id", tx.TransactionID),
		zap.Float64("fraud_probability", result.FraudProbability),
	)
	if result.IsFraudulent {
		p.logger.Warn("Potential fraud detected", zap.String("transaction_id", tx.TransactionID))
	}

	return result, nil
}

// run executes the scoring steps. A panic in any step becomes an error.
func (p *Pipeline) run(ctx context.Context, tx *models.Transaction) (result *models.ScoringResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	features, err := p.engineer.Engineer(tx)
	if err != nil {
		return nil, err
	}

	raw, err := p.scorer.Score(ctx, tx, features)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(raw) {
		return nil, ErrInvalidProbability
	}

	// The verdict is taken on the unrounded value; only the reported
	// probability is rounded.
	probability := clampProbability(raw)
	fraudulent, riskScore := p.policy.Decide(probability)
	factors := p.explainer.Explain(tx, probability)

	return &models.ScoringResult{
		TransactionID:    tx.TransactionID,
		FraudProbability: roundProbability(probability),
		IsFraudulent:     fraudulent,
		RiskScore:        riskScore,
		RiskFactors:      factors,
		Timestamp:        p.now(),
	}, nil
}

func (p *Pipeline) observeLatency(d time.Duration) {
	if p.recorder != nil {
		p.recorder.ObserveLatency(d)
	}
}

// clampProbability bounds additive scores to [0, 1].
func clampProbability(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// roundProbability rounds to 3 decimal places.
func roundProbability(v float64) float64 {
	return math.Round(v*1000) / 1000
}
