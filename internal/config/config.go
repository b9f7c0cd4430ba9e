package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Scorer strategies selectable with SCORER.
const (
	ScorerHeuristic = "heuristic"
	ScorerModel     = "model"
	ScorerRemote    = "remote"
)

const (
	DefaultPort               = "8085"
	DefaultServiceName        = "fraud-detection"
	DefaultLogLevel           = "info"
	DefaultThreshold          = 0.6
	DefaultRemoteSubject      = "fraud.model.score"
	DefaultRemoteTimeout      = 2 * time.Second
	DefaultRemoteFallback     = "deny"
	DefaultNatsSubject        = "fraud.score"
	DefaultKafkaInputTopic    = "transactions.created"
	DefaultKafkaOutputTopic   = "fraud.scored"
	DefaultKafkaGroupID       = "fraud-detection"
	DefaultCORSAllowedOrigins = "*"
)

type Config struct {
	Port        string
	ServiceName string
	LogLevel    string

	DecisionThreshold float64
	Scorer            string
	ModelPath         string

	RemoteScorerSubject  string
	RemoteScorerTimeout  time.Duration
	RemoteScorerFallback string

	NatsURL     string
	NatsSubject string

	KafkaBrokers     []string
	KafkaInputTopic  string
	KafkaOutputTopic string
	KafkaGroupID     string

	RedisURL       string
	JaegerEndpoint string

	CORSAllowedOrigins []string
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		ServiceName:          getEnv("SERVICE_NAME", DefaultServiceName),
		LogLevel:             getEnv("LOG_LEVEL", DefaultLogLevel),
		DecisionThreshold:    getEnvFloat("DECISION_THRESHOLD", DefaultThreshold),
		Scorer:               strings.ToLower(getEnv("SCORER", ScorerHeuristic)),
		ModelPath:            os.Getenv("MODEL_PATH"),
		RemoteScorerSubject:  getEnv("REMOTE_SCORER_SUBJECT", DefaultRemoteSubject),
		RemoteScorerTimeout:  getEnvDuration("REMOTE_SCORER_TIMEOUT", DefaultRemoteTimeout),
		RemoteScorerFallback: strings.ToLower(getEnv("REMOTE_SCORER_FALLBACK", DefaultRemoteFallback)),
		NatsURL:              os.Getenv("NATS_URL"),
		NatsSubject:          getEnv("NATS_SUBJECT", DefaultNatsSubject),
		KafkaBrokers:         splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaInputTopic:      getEnv("KAFKA_INPUT_TOPIC", DefaultKafkaInputTopic),
		KafkaOutputTopic:     getEnv("KAFKA_OUTPUT_TOPIC", DefaultKafkaOutputTopic),
		KafkaGroupID:         getEnv("KAFKA_GROUP_ID", DefaultKafkaGroupID),
		RedisURL:             os.Getenv("REDIS_URL"),
		JaegerEndpoint:       os.Getenv("JAEGER_ENDPOINT"),
		CORSAllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", DefaultCORSAllowedOrigins)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and strategy prerequisites.
func (c *Config) Validate() error {
	if c.DecisionThreshold < 0 || c.DecisionThreshold > 1 {
		return fmt.Errorf("DECISION_THRESHOLD must be within [0, 1], got %v", c.DecisionThreshold)
	}

	switch c.Scorer {
	case ScorerHeuristic:
	case ScorerModel:
		if c.ModelPath == "" {
			return fmt.Errorf("MODEL_PATH is required when SCORER=%s", ScorerModel)
		}
	case ScorerRemote:
		if c.NatsURL == "" {
			return fmt.Errorf("NATS_URL is required when SCORER=%s", ScorerRemote)
		}
		if c.RemoteScorerTimeout <= 0 {
			return fmt.Errorf("REMOTE_SCORER_TIMEOUT must be positive")
		}
		if c.RemoteScorerFallback != "deny" && c.RemoteScorerFallback != "allow" {
			return fmt.Errorf("REMOTE_SCORER_FALLBACK must be deny or allow, got %q", c.RemoteScorerFallback)
		}
	default:
		return fmt.Errorf("unknown SCORER %q", c.Scorer)
	}

	return nil
}

// StreamEnabled reports whether the Kafka stream scorer should run.
func (c *Config) StreamEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
