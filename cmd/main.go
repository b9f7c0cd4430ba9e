package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/fraud-detection/internal/api"
	"github.com/akylbek/payment-system/fraud-detection/internal/config"
	"github.com/akylbek/payment-system/fraud-detection/internal/health"
	"github.com/akylbek/payment-system/fraud-detection/internal/metrics"
	"github.com/akylbek/payment-system/fraud-detection/internal/scoring"
	"github.com/akylbek/payment-system/fraud-detection/internal/service"
	"github.com/akylbek/payment-system/fraud-detection/internal/telemetry"
)

// kafkaHealthInterval is how often the broker is dialled for /health.
const kafkaHealthInterval = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Initialize telemetry
	if err := telemetry.InitTelemetry(telemetry.Options{
		ServiceName:    cfg.ServiceName,
		LogLevel:       cfg.LogLevel,
		JaegerEndpoint: cfg.JaegerEndpoint,
	}); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	logger := telemetry.Logger
	logger.Info("Starting Fraud Detection Service", zap.String("scorer", cfg.Scorer))

	// Initialize metrics and dependency checks
	registry := metrics.NewRegistry()
	checks := health.NewRegistry()

	// Connect to NATS
	var nc *nats.Conn
	if cfg.NatsURL != "" {
		nc, err = nats.Connect(cfg.NatsURL, nats.Name(cfg.ServiceName))
		if err != nil {
			logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
		checks.Register(health.ConnChecker("nats", nc.IsConnected))
	}

	// Initialize scorer and pipeline
	scorer, err := buildScorer(cfg, nc, registry, logger)
	if err != nil {
		logger.Fatal("Failed to initialize scorer", zap.Error(err))
	}

	pipeline := scoring.NewPipeline(scorer, registry, logger, scoring.WithThreshold(cfg.DecisionThreshold))
	logger.Info("Scoring pipeline ready",
		zap.String("scorer", pipeline.ScorerName()),
		zap.Bool("model_loaded", pipeline.Ready()),
		zap.Float64("threshold", cfg.DecisionThreshold),
	)

	// Answer scoring requests over NATS
	if nc != nil {
		responder := service.NewResponder(pipeline, logger)
		if _, err := responder.Subscribe(nc, cfg.NatsSubject, cfg.ServiceName); err != nil {
			logger.Fatal("Failed to subscribe to NATS subject", zap.Error(err))
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Kafka stream scoring
	streamDone := make(chan struct{})
	if cfg.StreamEnabled() {
		var locker service.Locker
		// Connect to Redis
		if cfg.RedisURL != "" {
			redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
			defer redisClient.Close()
			locker = service.NewRedisLocker(redisClient)
			checks.Register(health.PingChecker("redis", redisPinger{redisClient}))
		}

		// Connect to Kafka
		reader := service.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaInputTopic, cfg.KafkaGroupID)
		defer reader.Close()
		writer := service.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaOutputTopic)
		defer writer.Close()
		kafkaHealth := health.NewPoller("kafka", health.PingChecker("kafka", kafkaPinger{brokers: cfg.KafkaBrokers}), kafkaHealthInterval)
		go kafkaHealth.Run(ctx)
		checks.Register(kafkaHealth.Checker())

		streamScorer := service.NewStreamScorer(reader, writer, locker, pipeline, registry, logger)
		go func() {
			defer close(streamDone)
			if err := streamScorer.Run(ctx); err != nil {
				logger.Error("Stream scorer stopped", zap.Error(err))
			}
		}()
	} else {
		close(streamDone)
	}

	// Setup Gin router
	router := api.NewRouter(api.RouterConfig{
		Scorer:         pipeline,
		Metrics:        registry,
		Checks:         checks,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Fraud Detection Service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case <-streamDone:
	case <-shutdownCtx.Done():
		logger.Warn("Stream scorer did not stop before shutdown deadline")
	}

	logger.Info("Server exited")
}

func buildScorer(cfg *config.Config, nc *nats.Conn, registry *metrics.Registry, logger *zap.Logger) (scoring.Scorer, error) {
	switch cfg.Scorer {
	case config.ScorerModel:
		return scoring.LoadModelScorer(cfg.ModelPath)
	case config.ScorerRemote:
		return scoring.NewRemoteScorer(
			nc,
			cfg.RemoteScorerSubject,
			cfg.RemoteScorerTimeout,
			scoring.FallbackPolicy(cfg.RemoteScorerFallback),
			registry,
			logger,
		), nil
	default:
		return scoring.NewHeuristicScorer(), nil
	}
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

type kafkaPinger struct {
	brokers []string
}

// Ping dials the first broker.
func (p kafkaPinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}
