package rest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/therealutkarshpriyadarshi/lvq/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/lvq/pkg/config"
	"github.com/therealutkarshpriyadarshi/lvq/pkg/observability"
)

// Server exposes the LVQ engine over HTTP/JSON: codebook handles,
// training, evaluation and persistence, with optional JWT auth and
// per-client rate limiting in front.
type Server struct {
	config     *config.Config
	registry   *Registry
	handler    *Handler
	logger     *observability.Logger
	metrics    *observability.Metrics
	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer creates a new REST API server
func NewServer(cfg *config.Config, logger *observability.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}

	if err := os.MkdirAll(cfg.Engine.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	metrics := observability.NewMetrics()
	registry := NewRegistry(cfg.Engine.MaxCodebooks, cfg.Engine.MaxStats)

	s := &Server{
		config:   cfg,
		registry: registry,
		handler:  NewHandler(registry, cfg.Engine, logger, metrics),
		logger:   logger,
		metrics:  metrics,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      s.withMiddleware(s.mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.handle("GET /v1/health", "health", s.handler.HealthCheck)

	s.handle("POST /v1/codebooks", "create", s.handler.CreateCodebook)
	s.handle("POST /v1/codebooks/load", "load", s.handler.LoadCodebook)
	s.handle("GET /v1/codebooks/{handle}", "info", s.handler.GetCodebook)
	s.handle("DELETE /v1/codebooks/{handle}", "delete", s.handler.DeleteCodebook)

	s.handle("PUT /v1/codebooks/{handle}/prototypes/{index}", "set", s.handler.SetPrototype)
	s.handle("GET /v1/codebooks/{handle}/prototypes/{index}", "get", s.handler.GetPrototype)
	s.handle("POST /v1/codebooks/{handle}/randomize", "randomize", s.handler.Randomize)

	s.handle("POST /v1/codebooks/{handle}/classify", "classify", s.handler.Classify)
	s.handle("POST /v1/codebooks/{handle}/best", "best", s.handler.Best)

	s.handle("POST /v1/codebooks/{handle}/train", "train", s.handler.Train)
	s.handle("POST /v1/codebooks/{handle}/train/supervised", "train_supervised", s.handler.TrainSupervised)
	s.handle("POST /v1/codebooks/{handle}/train/unsupervised", "train_unsupervised", s.handler.TrainUnsupervised)

	s.handle("POST /v1/codebooks/{handle}/test/classifier", "test_classifier", s.handler.TestClassifier)
	s.handle("POST /v1/codebooks/{handle}/test/clustering", "test_clustering", s.handler.TestClustering)
	s.handle("GET /v1/stats/{handle}", "stats", s.handler.GetStats)
	s.handle("DELETE /v1/stats/{handle}", "delete_stats", s.handler.DeleteStats)

	s.handle("POST /v1/codebooks/{handle}/store", "store", s.handler.StoreCodebook)

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// handle registers a route with request metrics attached.
func (s *Server) handle(pattern, name string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		fn(rec, r)

		status := "ok"
		if rec.status >= 400 {
			status = "error"
		}
		s.metrics.ObserveRequest(name, status, time.Since(start))
	})
}

// withMiddleware layers rate limiting and authentication in front of
// the mux.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	auth := middleware.AuthMiddleware(middleware.AuthConfig{
		Enabled:     s.config.Auth.Enabled,
		JWTSecret:   s.config.Auth.JWTSecret,
		PublicPaths: []string{"/v1/health", "/metrics"},
	})

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Enabled:        s.config.RateLimit.Enabled,
		RequestsPerSec: s.config.RateLimit.RequestsPerSec,
		Burst:          s.config.RateLimit.Burst,
	})

	return middleware.RateLimitMiddleware(limiter)(auth(next))
}

// Handler exposes the full middleware-wrapped handler, mainly for
// tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and blocks until the listener fails or the
// server is shut down.
func (s *Server) Start() error {
	s.logger.Info("REST server listening", map[string]interface{}{
		"address": s.config.Server.Address(),
		"auth":    s.config.Auth.Enabled,
	})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down REST server")
	return s.httpServer.Shutdown(ctx)
}
