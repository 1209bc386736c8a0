package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	// Plain gauges are exported with their zero value.
	assert.True(t, strings.Contains(body, "fraudrisk_model_holdout_accuracy"))
	assert.True(t, strings.Contains(body, "fraudrisk_goroutines"))

	PredictionsTotal.WithLabelValues(OutcomeSuccess).Inc()

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, w.Body.String(), "fraudrisk_predictions_total")
}

func TestMiddleware_RecordsMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	HTTPRequestsTotal.Reset()

	r := gin.New()
	r.Use(Middleware())
	r.POST("/predict_fraud", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/predict_fraud", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	m := &dto.Metric{}
	counter, err := HTTPRequestsTotal.GetMetricWithLabelValues("POST", "/predict_fraud", "4xx")
	require.NoError(t, err)
	require.NoError(t, counter.Write(m))
	assert.Equal(t, 1.0, m.Counter.GetValue())
}

func TestStartInference_Observes(t *testing.T) {
	before := &dto.Metric{}
	require.NoError(t, InferenceDuration.Write(before))

	StartInference().ObserveDuration()

	after := &dto.Metric{}
	require.NoError(t, InferenceDuration.Write(after))
	assert.Equal(t, before.Histogram.GetSampleCount()+1, after.Histogram.GetSampleCount())
}
