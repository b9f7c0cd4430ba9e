package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/fraud-detection/internal/health"
	"github.com/akylbek/payment-system/fraud-detection/internal/metrics"
	"github.com/akylbek/payment-system/fraud-detection/internal/models"
	"github.com/akylbek/payment-system/fraud-detection/internal/scoring"
)

type fakeScoringService struct {
	result *models.ScoringResult
	err    error
	ready  bool
	calls  int
}

func (f *fakeScoringService) Process(_ context.Context, tx *models.Transaction) (*models.ScoringResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.TransactionID = tx.TransactionID
	return &r, nil
}

func (f *fakeScoringService) ScorerName() string { return "fake" }
func (f *fakeScoringService) Ready() bool        { return f.ready }

func setupRouter(svc *fakeScoringService, checks *health.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/predict", NewScoringHandler(svc).Predict)
	r.GET("/health", NewHealthHandler(svc, checks).GetHealth)
	return r
}

func transactionBody(fields map[string]any) []byte {
	body := map[string]any{
		"transaction_id": "txn_42",
		"amount":         6000,
		"currency":       "USD",
		"payment_method": "credit_card",
		"customer_id":    "cus_1",
		"merchant_id":    "mer_1",
		"timestamp":      "2024-03-01T14:30:00",
	}
	for k, v := range fields {
		body[k] = v
	}
	b, _ := json.Marshal(body)
	return b
}

func postPredict(r http.Handler, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestPredict_200(t *testing.T) {
	svc := &fakeScoringService{result: &models.ScoringResult{
		FraudProbability: 0.8,
		IsFraudulent:     true,
		RiskScore:        80,
		RiskFactors:      []string{"Unusually high transaction amount"},
		Timestamp:        time.Date(2024, 3, 1, 14, 30, 1, 0, time.UTC),
	}}
	router := setupRouter(svc, nil)

	w := postPredict(router, transactionBody(nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "txn_42", resp["transaction_id"])
	assert.Equal(t, 0.8, resp["fraud_probability"])
	assert.Equal(t, true, resp["is_fraudulent"])
	assert.Equal(t, 80.0, resp["risk_score"])
	assert.Equal(t, []any{"Unusually high transaction amount"}, resp["risk_factors"])
	assert.Equal(t, "2024-03-01T14:30:01Z", resp["timestamp"])
}

func TestPredict_MalformedJSON_400(t *testing.T) {
	svc := &fakeScoringService{}
	w := postPredict(setupRouter(svc, nil), []byte(`{"transaction_id":`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
	assert.Equal(t, 0, svc.calls)
}

func TestPredict_InvalidTransaction_400(t *testing.T) {
	svc := &fakeScoringService{err: fmt.Errorf("%w: timestamp %q is not ISO-8601", models.ErrInvalidTransaction, "x")}
	w := postPredict(setupRouter(svc, nil), transactionBody(map[string]any{"timestamp": "x"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "not ISO-8601")
	assert.Equal(t, "txn_42", resp.TransactionID)
}

func TestPredict_ScoringFailure_500(t *testing.T) {
	svc := &fakeScoringService{err: fmt.Errorf("%w: %v", scoring.ErrScoringFailed, errors.New("boom"))}
	w := postPredict(setupRouter(svc, nil), transactionBody(nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Error processing request: scoring failed: boom", resp.Error)
	assert.NotContains(t, w.Body.String(), "fraud_probability")
}

// End to end through the real pipeline with the heuristic scorer.
func TestPredict_WithPipeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pipeline := scoring.NewPipeline(scoring.NewHeuristicScorer(), nil, nil)
	r := gin.New()
	r.POST("/predict", NewScoringHandler(pipeline).Predict)

	w := postPredict(r, transactionBody(map[string]any{
		"previous_transactions_count": 1,
		"user_account_age_days":       2,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ScoringResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.8, resp.FraudProbability)
	assert.True(t, resp.IsFraudulent)
	assert.Equal(t, 80, resp.RiskScore)
	assert.Equal(t, []string{
		scoring.FactorHighAmount,
		scoring.FactorNewCustomer,
		scoring.FactorRecentAccount,
	}, resp.RiskFactors)

	w = postPredict(r, transactionBody(map[string]any{"amount": 200, "timestamp": "yesterday"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPredict_MissingAmount_400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := metrics.NewRegistry()
	pipeline := scoring.NewPipeline(scoring.NewHeuristicScorer(), reg, nil)
	r := gin.New()
	r.POST("/predict", NewScoringHandler(pipeline).Predict)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(transactionBody(nil), &body))
	delete(body, "amount")
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := postPredict(r, payload)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "amount is required")
	assert.Equal(t, "txn_42", resp.TransactionID)
	assert.Zero(t, testutil.ToFloat64(reg.DetectionsTotal.WithLabelValues(models.OutcomeLegitimate)))
	assert.Zero(t, testutil.ToFloat64(reg.DetectionsTotal.WithLabelValues(models.OutcomeFraud)))
}

func TestHealth_WarningWithoutModel(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter(&fakeScoringService{ready: false}, nil).ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusWarning, resp.Status)
	assert.Equal(t, "Service running but model not loaded", resp.Message)
	assert.Equal(t, "fake", resp.Scorer)
}

func TestHealth_OKWithModelAndDependencyDetail(t *testing.T) {
	checks := health.NewRegistry()
	checks.Register(health.ConnChecker("nats", func() bool { return false }))

	w := httptest.NewRecorder()
	setupRouter(&fakeScoringService{ready: true}, checks).ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusOK, resp.Status)
	assert.Equal(t, "Service is healthy", resp.Message)
	require.Len(t, resp.Checks, 1)
	assert.Equal(t, "nats", resp.Checks[0].Name)
	assert.False(t, resp.Checks[0].Healthy)
}
