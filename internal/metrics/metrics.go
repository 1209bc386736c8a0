// Package metrics provides Prometheus instrumentation for the fraud scoring service.
package metrics

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fraudrisk"

// Prediction outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeInvalidJSON     = "invalid_json"
	OutcomeInvalidFeatures = "invalid_features"
	OutcomeError           = "error"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PredictionsTotal counts scoring requests by outcome.
	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total fraud scoring requests by outcome.",
		},
		[]string{"outcome"},
	)

	// DecisionsTotal counts scored transactions by risk bucket.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Scored transactions by risk decision.",
		},
		[]string{"decision"},
	)

	// FraudRiskScore observes the distribution of returned scores.
	FraudRiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "fraud_risk_score",
		Help:      "Distribution of fraud risk scores returned.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1},
	})

	// InferenceDuration observes time spent in the classifier.
	InferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inference_duration_seconds",
		Help:      "Model inference latency in seconds.",
		Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3},
	})

	// AuditFailuresTotal counts assessments that could not be written to the audit store.
	AuditFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_failures_total",
		Help:      "Assessments dropped because the audit store write failed.",
	})

	// ModelInfo is 1 for the loaded model, labeled by format and feature count.
	ModelInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_info",
		Help:      "Loaded model artifact metadata.",
	}, []string{"format", "features"})

	// ModelHoldoutAccuracy exposes the holdout accuracy recorded at training time.
	ModelHoldoutAccuracy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_holdout_accuracy",
		Help:      "Holdout accuracy recorded in the loaded model artifact.",
	})

	// DBOpenConnections tracks open database connections.
	DBOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_open_connections",
		Help: "Number of open database connections.",
	})
	// DBInUseConnections tracks in-use database connections.
	DBInUseConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "db_in_use_connections",
		Help: "Number of in-use database connections.",
	})
	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "goroutines",
		Help: "Current number of goroutines.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PredictionsTotal,
		DecisionsTotal,
		FraudRiskScore,
		InferenceDuration,
		AuditFailuresTotal,
		ModelInfo,
		ModelHoldoutAccuracy,
		DBOpenConnections,
		DBInUseConnections,
		GoroutineCount,
	)
}

// StartInference starts a timer that observes into InferenceDuration.
func StartInference() *prometheus.Timer {
	return prometheus.NewTimer(InferenceDuration)
}

// StartDBStatsCollector periodically samples sql.DBStats and runtime goroutine
// count into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := db.Stats()
			DBOpenConnections.Set(float64(stats.OpenConnections))
			DBInUseConnections.Set(float64(stats.InUse))
			GoroutineCount.Set(float64(runtime.NumGoroutine()))
		}
	}
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath() // route pattern, not raw path
		if path == "" {
			path = "unmatched"
		}
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(c.Request.Method, path))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
