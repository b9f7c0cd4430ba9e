package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// LogisticModel holds the coefficients of a trained logistic regression
// over named features.
type LogisticModel struct {
	Version string             `json:"version"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// ModelScorer evaluates a LogisticModel over the feature set.
type ModelScorer struct {
	model LogisticModel
}

// NewModelScorer creates a scorer from already-loaded coefficients.
func NewModelScorer(model LogisticModel) *ModelScorer {
	return &ModelScorer{model: model}
}

// LoadModelScorer reads model coefficients from a JSON file.
func LoadModelScorer(path string) (*ModelScorer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var model LogisticModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to decode model file: %w", err)
	}
	if len(model.Weights) == 0 {
		return nil, fmt.Errorf("model file %s has no weights", path)
	}

	return NewModelScorer(model), nil
}

func (s *ModelScorer) Name() string {
	if s.model.Version != "" {
		return "logistic:" + s.model.Version
	}
	return "logistic"
}

func (s *ModelScorer) Ready() bool { return true }

// Score returns sigmoid(bias + sum of weight*feature). Features missing from
// the set contribute nothing.
func (s *ModelScorer) Score(_ context.Context, _ *models.Transaction, features FeatureSet) (float64, error) {
	z := s.model.Bias
	for name, w := range s.model.Weights {
		if v, ok := features.Get(name); ok {
			z += w * v
		}
	}
	return 1 / (1 + math.Exp(-z)), nil
}
