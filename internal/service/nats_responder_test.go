package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
	"github.com/akylbek/payment-system/fraud-detection/internal/scoring"
)

func TestResponder_Reply(t *testing.T) {
	r := NewResponder(newHeuristicPipeline(), nil)

	reply := r.Reply(context.Background(), transactionMessage(t, "txn_1", 7000).Value)

	var result models.ScoringResult
	require.NoError(t, json.Unmarshal(reply, &result))
	assert.Equal(t, "txn_1", result.TransactionID)
	assert.Equal(t, 0.4, result.FraudProbability)
	assert.Equal(t, 40, result.RiskScore)
	assert.Equal(t, []string{scoring.FactorHighAmount}, result.RiskFactors)
}

func TestResponder_ReplyErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
		wantID  string
	}{
		{
			name:    "malformed json",
			data:    `{"transaction_id":`,
			wantErr: "invalid request body",
		},
		{
			name:    "invalid transaction",
			data:    `{"transaction_id":"txn_9","amount":10,"currency":"USD","payment_method":"card","customer_id":"c","merchant_id":"m","timestamp":"soon"}`,
			wantErr: "invalid transaction",
			wantID:  "txn_9",
		},
		{
			name:    "failing scorer",
			data:    string(transactionMessage(t, "txn_2", 10).Value),
			wantErr: "scoring failed",
			wantID:  "txn_2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newHeuristicPipeline()
			if tt.name == "failing scorer" {
				svc = scoring.NewPipeline(failingScorer{}, nil, nil)
			}
			reply := NewResponder(svc, nil).Reply(context.Background(), []byte(tt.data))

			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(reply, &resp))
			assert.Contains(t, resp.Error, tt.wantErr)
			assert.Equal(t, tt.wantID, resp.TransactionID)
		})
	}
}
