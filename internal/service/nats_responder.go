package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/fraud-detection/internal/interfaces"
	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// Responder answers scoring requests over NATS request/reply.
type Responder struct {
	scorer interfaces.ScoringService
	logger *zap.Logger
}

func NewResponder(scorer interfaces.ScoringService, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{scorer: scorer, logger: logger}
}

// Subscribe joins queue on subject so replicas share the request load.
func (r *Responder) Subscribe(nc *nats.Conn, subject, queue string) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		if err := msg.Respond(r.Reply(context.Background(), msg.Data)); err != nil {
			r.logger.Error("Error responding to scoring request", zap.String("subject", subject), zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("Listening for scoring requests", zap.String("subject", subject), zap.String("queue", queue))
	return sub, nil
}

// Reply scores the JSON transaction in data and returns the encoded
// ScoringResult, or an encoded ErrorResponse.
func (r *Responder) Reply(ctx context.Context, data []byte) []byte {
	var tx models.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return encodeError(models.ErrorResponse{Error: "invalid request body: " + err.Error()})
	}

	result, err := r.scorer.Process(ctx, &tx)
	if err != nil {
		if !errors.Is(err, models.ErrInvalidTransaction) {
			r.logger.Error("Error scoring transaction",
				zap.String("transaction_id", tx.TransactionID),
				zap.Error(err),
			)
		}
		return encodeError(models.ErrorResponse{Error: err.Error(), TransactionID: tx.TransactionID})
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return encodeError(models.ErrorResponse{Error: err.Error(), TransactionID: tx.TransactionID})
	}
	return payload
}

func encodeError(resp models.ErrorResponse) []byte {
	payload, _ := json.Marshal(resp)
	return payload
}
