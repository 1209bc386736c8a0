// Package server sets up the fraud scoring HTTP service.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/mbd888/fraudrisk/internal/config"
	"github.com/mbd888/fraudrisk/internal/health"
	"github.com/mbd888/fraudrisk/internal/logging"
	"github.com/mbd888/fraudrisk/internal/metrics"
	"github.com/mbd888/fraudrisk/internal/model"
	"github.com/mbd888/fraudrisk/internal/risk"
	"github.com/mbd888/fraudrisk/internal/security"
	"github.com/mbd888/fraudrisk/internal/validation"
)

// ServiceName identifies the service in traces and logs.
const ServiceName = "fraudrisk"

// Version is reported by the health endpoint.
const Version = "0.1.0"

// drainDelay gives load balancers time to stop sending traffic.
var drainDelay = 5 * time.Second

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg          *config.Config
	artifact     *model.Artifact
	classifier   *model.LogisticRegression
	store        risk.Store
	riskService  *risk.Service
	health       *health.Registry
	db           *sql.DB // nil if using in-memory
	router       *gin.Engine
	httpSrv      *http.Server
	logger       *slog.Logger
	cancelRunCtx context.CancelFunc

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStore sets the assessment audit store (for testing)
func WithStore(store risk.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// New loads the model artifact and builds the router. A missing or invalid
// artifact is an error: the service never starts without a model.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
		health: health.NewRegistry(),
	}

	for _, opt := range opts {
		opt(s)
	}

	artifact, err := model.LoadArtifact(cfg.ModelPath)
	if err != nil {
		if errors.Is(err, model.ErrArtifactNotFound) {
			return nil, fmt.Errorf("%w (run the training pipeline first: go run ./cmd/train)", err)
		}
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	s.artifact = artifact
	s.classifier = artifact.Model()
	metrics.ModelInfo.WithLabelValues(artifact.Format, strconv.Itoa(len(artifact.Features))).Set(1)
	metrics.ModelHoldoutAccuracy.Set(artifact.Training.HoldoutAccuracy)
	s.logger.Info("model loaded",
		"path", cfg.ModelPath,
		"format", artifact.Format,
		"trained_at", artifact.TrainedAt,
		"holdout_accuracy", artifact.Training.HoldoutAccuracy,
	)

	// Audit storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if s.store == nil {
		if cfg.DatabaseURL != "" {
			db, err := sql.Open("postgres", cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to open database: %w", err)
			}

			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
			db.SetConnMaxLifetime(5 * time.Minute)

			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}

			pgStore := risk.NewPostgresStore(db)
			s.db = db
			s.store = pgStore
			s.health.Register("database", health.PingCheck("database", pgStore, 2*time.Second))
			s.logger.Info("using PostgreSQL audit storage", "url", maskDSN(cfg.DatabaseURL))
		} else {
			s.store = risk.NewMemoryStore()
			s.logger.Info("using in-memory audit storage")
		}
	}

	s.riskService = risk.NewService(s.classifier, s.store, s.logger)
	s.health.Register("model", health.ReadyCheck("model", s.riskService.Ready, "model not loaded"))

	// gin stays in debug mode outside production
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, risk.ErrorResponse{
			Error: "internal server error",
		})
	}))

	s.router.Use(security.HeadersMiddleware())
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))
	s.router.Use(otelgin.Middleware(ServiceName))
	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Honor an upstream request ID (load balancer, gateway).
		requestID := validation.SanitizeString(c.GetHeader("X-Request-ID"), validation.MaxRequestIDLength)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	riskHandler := risk.NewHandler(s.riskService)
	riskHandler.RegisterRoutes(s.router)
	riskHandler.RegisterAdminRoutes(s.router.Group("/v1"))
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Model     ModelSummary    `json:"model"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// ModelSummary describes the loaded artifact.
type ModelSummary struct {
	Format          string    `json:"format"`
	Features        []string  `json:"features"`
	TrainedAt       time.Time `json:"trained_at"`
	HoldoutAccuracy float64   `json:"holdout_accuracy"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.health.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:  status,
		Version: Version,
		Model: ModelSummary{
			Format:          s.artifact.Format,
			Features:        s.artifact.Features,
			TrainedAt:       s.artifact.TrainedAt,
			HoldoutAccuracy: s.artifact.Training.HoldoutAccuracy,
		},
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() || !s.riskService.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server and blocks until SIGINT, SIGTERM, or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"env", s.cfg.Env,
			"model_path", s.cfg.ModelPath,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	s.ready.Store(true)
	s.logger.Info("server ready")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		s.ready.Store(false)
		cancel()
		s.closeDB()
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	if s.httpSrv != nil {
		time.Sleep(drainDelay)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.closeDB()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) closeDB() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	} else {
		s.logger.Info("database connection closed")
	}
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
