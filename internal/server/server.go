// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/mbd888/trustgate/internal/auth"
	"github.com/mbd888/trustgate/internal/baseline"
	"github.com/mbd888/trustgate/internal/config"
	"github.com/mbd888/trustgate/internal/geocluster"
	"github.com/mbd888/trustgate/internal/health"
	"github.com/mbd888/trustgate/internal/logging"
	"github.com/mbd888/trustgate/internal/metrics"
	"github.com/mbd888/trustgate/internal/ratelimit"
	"github.com/mbd888/trustgate/internal/realtime"
	"github.com/mbd888/trustgate/internal/security"
	"github.com/mbd888/trustgate/internal/traces"
	"github.com/mbd888/trustgate/internal/trust"
	"github.com/mbd888/trustgate/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg            *config.Config
	trustService   *trust.Service
	clusterService *geocluster.Service
	authMgr        *auth.Manager
	realtimeHub    *realtime.Hub
	healthReg      *health.Registry
	rateLimiter    *ratelimit.Limiter
	tracesShutdown func(context.Context) error
	db             *sql.DB // nil if using in-memory
	router         *gin.Engine
	httpSrv        *http.Server
	logger         *slog.Logger
	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run

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

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, cfg.LogFormat),
	}

	// Apply options first (may set logger)
	for _, opt := range opts {
		opt(s)
	}

	// Context for initialization
	ctx := context.Background()

	var (
		trustStore    trust.Store
		baselineStore baseline.Store
		clusterStore  geocluster.Store
		authStore     auth.Store
	)

	// Initialize storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		// Test connection
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))

		trustPG := trust.NewPostgresStore(db)
		if err := trustPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate evaluations store", "error", err)
		}
		trustStore = trustPG

		baselinePG := baseline.NewPostgresStore(db)
		if err := baselinePG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate baseline store", "error", err)
		}
		baselineStore = baselinePG

		clusterPG := geocluster.NewPostgresStore(db)
		if err := clusterPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate cluster store", "error", err)
		}
		clusterStore = clusterPG

		authPG := auth.NewPostgresStore(db)
		if err := authPG.Migrate(ctx); err != nil {
			s.logger.Warn("failed to migrate auth store", "error", err)
		}
		authStore = authPG
	} else {
		s.logger.Info("using in-memory storage (data will not persist)")
		trustStore = trust.NewMemoryStore()
		baselineStore = baseline.NewMemoryStore()
		clusterStore = geocluster.NewMemoryStore()
		authStore = auth.NewMemoryStore()
	}

	s.authMgr = auth.NewManager(authStore)
	s.logger.Info("API authentication enabled")

	// Create realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	// Location cluster learner doubles as the engine's trusted-location index
	s.clusterService = geocluster.NewService(clusterStore)

	engine := trust.NewEngine(
		trust.WithClusterIndex(s.clusterService),
		trust.WithThresholds(trust.Thresholds{
			Trusted:  cfg.TrustedThreshold,
			Reverify: cfg.ReverifyThreshold,
		}),
	)

	s.trustService = trust.NewService(engine, trustStore, baselineStore,
		trust.WithVisitRecorder(&clusterVisitRecorder{s.clusterService}),
		trust.WithEventSink(&realtimeEventSink{s.realtimeHub}),
	)
	s.logger.Info("trust engine configured",
		"trustedThreshold", cfg.TrustedThreshold,
		"reverifyThreshold", cfg.ReverifyThreshold,
	)

	// Health checks
	s.healthReg = health.NewRegistry()
	if s.db != nil {
		db := s.db
		s.healthReg.Register("database", func(ctx context.Context) health.Status {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return health.Status{Name: "database", Healthy: false, Detail: err.Error()}
			}
			return health.Status{Name: "database", Healthy: true}
		})
	}

	// Tracing (no-op when OTLP endpoint unset)
	shutdown, err := traces.Init(ctx, cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("failed to initialize tracing", "error", err)
	} else {
		s.tracesShutdown = shutdown
	}

	// Configure gin
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
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(s.allowedOrigins()))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Rate limiting
	rlCfg := ratelimit.DefaultConfig()
	rlCfg.RequestsPerMinute = s.cfg.RateLimitRPS * 60
	rlCfg.BurstSize = s.cfg.RateLimitRPS
	s.rateLimiter = ratelimit.New(rlCfg)
	s.router.Use(s.rateLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) allowedOrigins() []string {
	if s.cfg.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(s.cfg.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
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

		// Log level based on status code
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
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time streaming
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	// V1 API group
	v1 := s.router.Group("/v1")
	// Validate identifier URL params on all v1 routes (no-op when param absent)
	v1.Use(validation.IDParamMiddleware("userID", "deviceID"))

	trustHandler := trust.NewHandler(s.trustService)
	clusterHandler := geocluster.NewHandler(s.clusterService)
	authHandler := auth.NewHandler(s.authMgr)

	// PUBLIC ROUTES (no auth required)
	v1.GET("/auth/info", authHandler.Info)
	trustHandler.RegisterRoutes(v1)

	// PROTECTED ROUTES (require API key)
	protected := v1.Group("")
	protected.Use(auth.Middleware(s.authMgr), auth.RequireAuth(s.authMgr))
	{
		trustHandler.RegisterProtectedRoutes(protected)
		clusterHandler.RegisterProtectedRoutes(protected)

		// API key management
		protected.GET("/auth/keys", authHandler.ListKeys)
		protected.POST("/auth/keys", authHandler.CreateKey)
		protected.DELETE("/auth/keys/:keyId", authHandler.RevokeKey)
		protected.POST("/auth/keys/:keyId/regenerate", authHandler.RegenerateKey)
		protected.GET("/auth/me", authHandler.GetCurrentClient)
	}

	// ADMIN ROUTES (require the admin secret)
	admin := v1.Group("/admin")
	admin.Use(auth.RequireAdmin(s.cfg.AdminSecret))
	{
		clusterHandler.RegisterAdminRoutes(admin)
		admin.POST("/clients/:clientID/keys", s.issueClientKey)
		admin.GET("/realtime/stats", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.realtimeHub.Stats())
		})
	}
}

// issueClientKey handles POST /v1/admin/clients/:clientID/keys
// Bootstraps API access for a new integrating client.
func (s *Server) issueClientKey(c *gin.Context) {
	clientID := c.Param("clientID")
	if !validation.IsValidID(clientID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_identifier",
			"message": "clientID must contain only letters, digits, dots, dashes and underscores",
		})
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	c.ShouldBindJSON(&req)
	if req.Name == "" {
		req.Name = "Primary key"
	}
	req.Name = validation.SanitizeString(req.Name, 200)

	rawKey, keyInfo, err := s.authMgr.GenerateKey(c.Request.Context(), clientID, req.Name)
	if err != nil {
		s.logger.Error("failed to generate API key", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create API key",
		})
		return
	}

	s.logger.Info("client API key issued",
		"clientId", clientID,
		"keyId", keyInfo.ID,
	)

	c.JSON(http.StatusCreated, gin.H{
		"clientId": clientID,
		"apiKey":   rawKey,
		"keyId":    keyInfo.ID,
		"warning":  "Store this API key securely. It will not be shown again.",
		"usage":    "Include 'Authorization: Bearer <apiKey>' header in requests.",
	})
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, checks := s.healthReg.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
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
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "TrustGate",
		"description": "Trust scoring and decision engine for mobile authentication",
		"version":     "0.1.0",
		"decisions":   []string{"trusted", "reverify", "blocked"},
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
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

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start realtime hub
	if s.realtimeHub != nil {
		go s.realtimeHub.Run(runCtx)
	}

	// Start DB stats collector for pool gauges
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
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

	// Cancel the context for all background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
		s.logger.Info("rate limiter stopped")
	}

	// Flush traces
	if s.tracesShutdown != nil {
		if err := s.tracesShutdown(ctx); err != nil {
			s.logger.Error("trace shutdown error", "error", err)
		}
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// -----------------------------------------------------------------------------
// Adapters
// -----------------------------------------------------------------------------

// clusterVisitRecorder adapts geocluster.Service to trust.VisitRecorder
type clusterVisitRecorder struct {
	svc *geocluster.Service
}

func (r *clusterVisitRecorder) RecordVisit(ctx context.Context, userID string, lat, lon float64) error {
	_, err := r.svc.RecordVisit(ctx, userID, lat, lon)
	return err
}

// realtimeEventSink adapts realtime.Hub to trust.EventSink
type realtimeEventSink struct {
	hub *realtime.Hub
}

func (e *realtimeEventSink) EvaluationCompleted(result *trust.EvaluationResult) {
	if e.hub == nil || result == nil || result.Report == nil {
		return
	}
	report := result.Report

	e.hub.BroadcastEvaluation(map[string]interface{}{
		"evaluationId": report.ID,
		"userId":       report.UserID,
		"deviceId":     report.DeviceID,
		"score":        report.Score,
		"status":       string(result.FinalStatus),
		"hardBlocked":  report.HardBlocked,
	})

	if report.HardBlocked {
		e.hub.BroadcastHardBlock(map[string]interface{}{
			"evaluationId": report.ID,
			"userId":       report.UserID,
			"deviceId":     report.DeviceID,
			"rule":         report.HardBlockRule,
		})
	}

	if report.Decay != nil && report.Decay.Severity != trust.DecayNone {
		e.hub.BroadcastDecayAlert(map[string]interface{}{
			"evaluationId": report.ID,
			"userId":       report.UserID,
			"deviceId":     report.DeviceID,
			"severity":     string(report.Decay.Severity),
			"amount":       report.Decay.Amount,
			"action":       string(result.Action),
		})
	}
}
