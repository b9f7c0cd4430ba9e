package models

import "time"

// Outcome labels used for the fraud detection counter.
const (
	OutcomeFraud      = "fraud"
	OutcomeLegitimate = "legitimate"
)

// ScoringResult is returned for every successfully scored transaction.
type ScoringResult struct {
	TransactionID    string    `json:"transaction_id"`
	FraudProbability float64   `json:"fraud_probability"`
	IsFraudulent     bool      `json:"is_fraudulent"`
	RiskScore        int       `json:"risk_score"`
	RiskFactors      []string  `json:"risk_factors"`
	Timestamp        time.Time `json:"timestamp"`
}

// Outcome returns the metrics label for the verdict.
func (r *ScoringResult) Outcome() string {
	if r.IsFraudulent {
		return OutcomeFraud
	}
	return OutcomeLegitimate
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string        `json:"status"` // ok, warning
	Message string        `json:"message"`
	Service string        `json:"service"`
	Scorer  string        `json:"scorer"`
	Checks  []HealthCheck `json:"checks,omitempty"`
}

// HealthCheck reports a single dependency.
type HealthCheck struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// ErrorResponse is the body returned by transports on failure.
type ErrorResponse struct {
	Error         string `json:"error"`
	TransactionID string `json:"transaction_id,omitempty"`
}
