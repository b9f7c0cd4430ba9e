package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// ScoringService defines the contract the transports depend on
type ScoringService interface {
	Process(ctx context.Context, tx *models.Transaction) (*models.ScoringResult, error)
	ScorerName() string
	Ready() bool
}
