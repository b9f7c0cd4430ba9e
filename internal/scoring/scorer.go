package scoring

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// Scorer maps a transaction and its features to a fraud probability.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, tx *models.Transaction, features FeatureSet) (float64, error)
	Name() string
}

// Readiness is implemented by scorers that can report whether their model
// is loaded and usable. Scorers without it are considered not ready.
type Readiness interface {
	Ready() bool
}

// IsReady reports whether s is backed by a ready model.
func IsReady(s Scorer) bool {
	if r, ok := s.(Readiness); ok {
		return r.Ready()
	}
	return false
}

// Heuristic scorer contributions.
const (
	heuristicBase           = 0.1
	heuristicLargeAmount    = 0.3
	heuristicFewPrevious    = 0.2
	heuristicYoungAccount   = 0.2
	largeAmountThreshold    = 5000
	fewPreviousTransactions = 2
	youngAccountDays        = 5
)

var largeAmount = decimal.NewFromInt(largeAmountThreshold)

// HeuristicScorer is the rule-of-thumb placeholder used until a trained
// model is configured. Contributions are additive and may exceed 1.0; the
// pipeline clamps before reporting.
type HeuristicScorer struct{}

// NewHeuristicScorer creates the placeholder scorer.
func NewHeuristicScorer() *HeuristicScorer {
	return &HeuristicScorer{}
}

func (s *HeuristicScorer) Name() string { return "heuristic" }

// Ready is false: the heuristic is not a loaded model.
func (s *HeuristicScorer) Ready() bool { return false }

func (s *HeuristicScorer) Score(_ context.Context, tx *models.Transaction, _ FeatureSet) (float64, error) {
	p := heuristicBase
	if tx.Amount.Decimal.GreaterThan(largeAmount) {
		p += heuristicLargeAmount
	}
	if tx.PreviousTransactionsCount != nil && *tx.PreviousTransactionsCount < fewPreviousTransactions {
		p += heuristicFewPrevious
	}
	if tx.UserAccountAgeDays != nil && *tx.UserAccountAgeDays < youngAccountDays {
		p += heuristicYoungAccount
	}
	return p, nil
}
