package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/fraud-detection/internal/interfaces"
	"github.com/akylbek/payment-system/fraud-detection/internal/models"
	"github.com/akylbek/payment-system/fraud-detection/internal/telemetry"
)

type ScoringHandler struct {
	scorer interfaces.ScoringService
}

func NewScoringHandler(scorer interfaces.ScoringService) *ScoringHandler {
	return &ScoringHandler{scorer: scorer}
}

// Predict scores the transaction in the request body.
func (h *ScoringHandler) Predict(c *gin.Context) {
	var tx models.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		telemetry.Logger.Warn("Error decoding transaction", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.scorer.Process(c.Request.Context(), &tx)
	if errors.Is(err, models.ErrInvalidTransaction) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:         err.Error(),
			TransactionID: tx.TransactionID,
		})
		return
	}
	if err != nil {
		telemetry.Logger.Error("Error scoring transaction",
			zap.String("transaction_id", tx.TransactionID),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:         "Error processing request: " + err.Error(),
			TransactionID: tx.TransactionID,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
