package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/fraud-detection/internal/handlers"
	"github.com/akylbek/payment-system/fraud-detection/internal/health"
	"github.com/akylbek/payment-system/fraud-detection/internal/interfaces"
	"github.com/akylbek/payment-system/fraud-detection/internal/metrics"
	"github.com/akylbek/payment-system/fraud-detection/internal/telemetry"
)

// RouterConfig carries the dependencies of the HTTP surface.
type RouterConfig struct {
	Scorer         interfaces.ScoringService
	Metrics        *metrics.Registry
	Checks         *health.Registry
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(telemetry.RequestIDMiddleware())
	r.Use(telemetry.TracingMiddleware())
	r.Use(cfg.Metrics.Middleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	// Health check
	healthHandler := handlers.NewHealthHandler(cfg.Scorer, cfg.Checks)
	r.GET("/health", healthHandler.GetHealth)

	// Scoring
	scoringHandler := handlers.NewScoringHandler(cfg.Scorer)
	r.POST("/predict", scoringHandler.Predict)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", telemetry.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "X-Trace-ID", telemetry.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}
