package risk

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/fraudrisk/internal/logging"
	"github.com/mbd888/fraudrisk/internal/metrics"
	"github.com/mbd888/fraudrisk/internal/schema"
	"github.com/mbd888/fraudrisk/internal/validation"
)

// PredictPath is the scoring route.
const PredictPath = "/predict_fraud"

// Handler provides HTTP endpoints for fraud scoring.
type Handler struct {
	service *Service
}

// NewHandler creates a new risk handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up scoring routes.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST(PredictPath, h.PredictFraud)
}

// RegisterAdminRoutes sets up read-only audit routes.
func (h *Handler) RegisterAdminRoutes(r gin.IRoutes) {
	r.GET("/assessments", h.ListAssessments)
}

// PredictResponse is the success body of POST /predict_fraud.
type PredictResponse struct {
	Status         string  `json:"status"`
	FraudRiskScore float64 `json:"fraud_risk_score"`
}

// ErrorResponse is the body of every client error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PredictFraud handles POST /predict_fraud
func (h *Handler) PredictFraud(c *gin.Context) {
	payload, err := decodePayload(c)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeInvalidJSON).Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON payload"})
		return
	}

	vec, err := schema.FromPayload(payload)
	if err != nil {
		metrics.PredictionsTotal.WithLabelValues(metrics.OutcomeInvalidFeatures).Inc()
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid feature structure: " + err.Error()})
		return
	}

	assessment, err := h.service.Score(c.Request.Context(), vec)
	if err != nil {
		logging.L(c.Request.Context()).Error("scoring failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to score transaction"})
		return
	}

	logging.L(c.Request.Context()).Debug("transaction scored",
		"id", assessment.ID,
		"score", assessment.Score,
		"decision", assessment.Decision,
	)

	c.JSON(http.StatusOK, PredictResponse{
		Status:         "success",
		FraudRiskScore: assessment.Score,
	})
}

// decodePayload parses the whole body as a single JSON object.
// Trailing data after the object is an error.
func decodePayload(c *gin.Context) (map[string]any, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, errors.New("payload is not a JSON object")
	}
	return payload, nil
}

// ListAssessments handles GET /assessments
func (h *Handler) ListAssessments(c *gin.Context) {
	limit := validation.QueryLimit(c, 50, 500)

	assessments, err := h.service.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list assessments"})
		return
	}
	if assessments == nil {
		assessments = []*Assessment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": assessments,
		"count":       len(assessments),
	})
}
