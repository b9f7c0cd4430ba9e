package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/fraud-detection/internal/health"
	"github.com/akylbek/payment-system/fraud-detection/internal/interfaces"
	"github.com/akylbek/payment-system/fraud-detection/internal/models"
	"github.com/akylbek/payment-system/fraud-detection/internal/telemetry"
)

const (
	StatusOK      = "ok"
	StatusWarning = "warning"
)

type HealthHandler struct {
	scorer interfaces.ScoringService
	checks *health.Registry
}

// NewHealthHandler creates a health handler. checks may be nil.
func NewHealthHandler(scorer interfaces.ScoringService, checks *health.Registry) *HealthHandler {
	if checks == nil {
		checks = health.NewRegistry()
	}
	return &HealthHandler{scorer: scorer, checks: checks}
}

// GetHealth always answers 200. Status is "ok" only when the scorer is
// backed by a ready model; dependency checks are informational.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	_, checks := h.checks.CheckAll(c.Request.Context())

	resp := models.HealthResponse{
		Status:  StatusOK,
		Message: "Service is healthy",
		Service: telemetry.ServiceName,
		Scorer:  h.scorer.ScorerName(),
		Checks:  checks,
	}
	if !h.scorer.Ready() {
		resp.Status = StatusWarning
		resp.Message = "Service running but model not loaded"
	}

	c.JSON(http.StatusOK, resp)
}
