package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/fraud-detection/internal/interfaces"
	"github.com/akylbek/payment-system/fraud-detection/internal/models"
)

// Stream message outcomes, used as metric labels.
const (
	StreamScored        = "scored"
	StreamDuplicate     = "duplicate"
	StreamInvalid       = "invalid"
	StreamFailed        = "failed"
	StreamPublishFailed = "publish_failed"
)

// scoringLockTTL is the window during which a redelivered transaction is
// recognised as a duplicate.
const scoringLockTTL = 30 * time.Second

// MessageReader is the subset of *kafka.Reader used by StreamScorer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageWriter is the subset of *kafka.Writer used by StreamScorer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// StreamRecorder counts handled messages.
type StreamRecorder interface {
	RecordStreamMessage(outcome string)
}

// StreamScorer consumes transactions from Kafka, scores them and publishes
// the results.
type StreamScorer struct {
	reader   MessageReader
	writer   MessageWriter
	locker   Locker
	scorer   interfaces.ScoringService
	recorder StreamRecorder
	logger   *zap.Logger
}

// NewStreamScorer wires a stream scorer. locker and recorder may be nil.
func NewStreamScorer(
	reader MessageReader,
	writer MessageWriter,
	locker Locker,
	scorer interfaces.ScoringService,
	recorder StreamRecorder,
	logger *zap.Logger,
) *StreamScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamScorer{
		reader:   reader,
		writer:   writer,
		locker:   locker,
		scorer:   scorer,
		recorder: recorder,
		logger:   logger,
	}
}

// NewKafkaReader builds the consumer-group reader for the input topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}

// NewKafkaWriter builds the producer for the output topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (s *StreamScorer) Run(ctx context.Context) error {
	s.logger.Info("Started consuming transaction events")

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			s.logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		outcome, commit := s.handleMessage(ctx, msg)
		if s.recorder != nil && outcome != "" {
			s.recorder.RecordStreamMessage(outcome)
		}
		if !commit {
			continue
		}
		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.logger.Error("Error committing message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleMessage scores one message. commit is false only when the context
// was cancelled before scoring began, so the message is redelivered.
func (s *StreamScorer) handleMessage(ctx context.Context, msg kafka.Message) (outcome string, commit bool) {
	var tx models.Transaction
	if err := json.Unmarshal(msg.Value, &tx); err != nil {
		s.logger.Error("Error unmarshaling transaction", zap.Int64("offset", msg.Offset), zap.Error(err))
		return StreamInvalid, true
	}

	lockKey := fmt.Sprintf("fraud_scoring_lock:%s", tx.TransactionID)
	locked := false
	if s.locker != nil && tx.TransactionID != "" {
		acquired, err := s.locker.Acquire(ctx, lockKey, scoringLockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Scoring lock unavailable, scoring without it",
				zap.String("transaction_id", tx.TransactionID),
				zap.Error(err),
			)
		case !acquired:
			s.logger.Info("Skipping duplicate transaction", zap.String("transaction_id", tx.TransactionID))
			return StreamDuplicate, true
		default:
			locked = true
		}
	}

	if ctx.Err() != nil {
		s.release(locked, lockKey)
		return "", false
	}

	// In-flight scoring is not interrupted by shutdown.
	result, err := s.scorer.Process(context.WithoutCancel(ctx), &tx)
	if errors.Is(err, models.ErrInvalidTransaction) {
		s.logger.Warn("Rejected invalid transaction",
			zap.String("transaction_id", tx.TransactionID),
			zap.Error(err),
		)
		return StreamInvalid, true
	}
	if err != nil {
		s.logger.Error("Error scoring transaction",
			zap.String("transaction_id", tx.TransactionID),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		s.release(locked, lockKey)
		return StreamFailed, true
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("Error encoding scoring result", zap.String("transaction_id", tx.TransactionID), zap.Error(err))
		s.release(locked, lockKey)
		return StreamFailed, true
	}

	if err := s.writer.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
		Key:   []byte(result.TransactionID),
		Value: payload,
	}); err != nil {
		s.logger.Error("Error publishing scoring result",
			zap.String("transaction_id", result.TransactionID),
			zap.Error(err),
		)
		s.release(locked, lockKey)
		return StreamPublishFailed, true
	}

	s.logger.Info("Published scoring result",
		zap.String("transaction_id", result.TransactionID),
		zap.Bool("is_fraudulent", result.IsFraudulent),
	)
	return StreamScored, true
}

// release drops the lock so a later redelivery can score again. Successful
// results keep the lock until it expires.
func (s *StreamScorer) release(locked bool, key string) {
	if !locked {
		return
	}
	if err := s.locker.Release(context.Background(), key); err != nil {
		s.logger.Warn("Error releasing scoring lock", zap.String("key", key), zap.Error(err))
	}
}
