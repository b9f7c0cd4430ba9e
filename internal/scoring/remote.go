package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// FallbackPolicy decides the probability used when the remote model
// cannot answer in time.
type FallbackPolicy string

const (
	FallbackDeny  FallbackPolicy = "deny"
	FallbackAllow FallbackPolicy = "allow"
)

// Probability returns the probability reported under the policy.
func (p FallbackPolicy) Probability() float64 {
	if p == FallbackAllow {
		return 0
	}
	return 1
}

// Requester is the subset of *nats.Conn used by RemoteScorer.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
	IsConnected() bool
}

// FallbackRecorder counts fallback decisions.
type FallbackRecorder interface {
	RecordFallback(policy string)
}

type remoteScoreRequest struct {
	Transaction *models.Transaction `json:"transaction"`
	Features    FeatureSet          `json:"features"`
}

type remoteScoreResponse struct {
	FraudProbability *float64 `json:"fraud_probability"`
	Error            string   `json:"error,omitempty"`
}

// RemoteScorer asks a model service over NATS request/reply.
type RemoteScorer struct {
	conn     Requester
	subject  string
	timeout  time.Duration
	fallback FallbackPolicy
	recorder FallbackRecorder
	logger   *zap.Logger
}

// NewRemoteScorer creates a NATS-backed scorer. recorder may be nil.
func NewRemoteScorer(conn Requester, subject string, timeout time.Duration, fallback FallbackPolicy, recorder FallbackRecorder, logger *zap.Logger) *RemoteScorer {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteScorer{
		conn:     conn,
		subject:  subject,
		timeout:  timeout,
		fallback: fallback,
		recorder: recorder,
		logger:   logger,
	}
}

func (s *RemoteScorer) Name() string { return "remote:" + s.subject }

func (s *RemoteScorer) Ready() bool { return s.conn.IsConnected() }

// Score never returns a transport error: timeouts and bad replies resolve to
// the fallback probability. Marshalling failures are still reported.
func (s *RemoteScorer) Score(ctx context.Context, tx *models.Transaction, features FeatureSet) (float64, error) {
	payload, err := json.Marshal(remoteScoreRequest{Transaction: tx, Features: features})
	if err != nil {
		return 0, fmt.Errorf("failed to encode remote score request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg, err := s.conn.RequestWithContext(ctx, s.subject, payload)
	if err != nil {
		return s.useFallback(tx.TransactionID, err), nil
	}

	var resp remoteScoreResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return s.useFallback(tx.TransactionID, fmt.Errorf("decode reply: %w", err)), nil
	}
	if resp.Error != "" {
		return s.useFallback(tx.TransactionID, errors.New(resp.Error)), nil
	}
	if resp.FraudProbability == nil {
		return s.useFallback(tx.TransactionID, errors.New("reply has no fraud_probability")), nil
	}

	return *resp.FraudProbability, nil
}

func (s *RemoteScorer) useFallback(transactionID string, cause error) float64 {
	s.logger.Warn("Remote scorer unavailable, applying fallback",
		zap.String("transaction_id", transactionID),
		zap.String("subject", s.subject),
		zap.String("policy", string(s.fallback)),
		zap.Error(cause),
	)
	if s.recorder != nil {
		s.recorder.RecordFallback(string(s.fallback))
	}
	return s.fallback.Probability()
}
