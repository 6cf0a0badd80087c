package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/ratelimit"
)

// Server is the workflow HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Config holds all dependencies and settings for creating a Server.
type Config struct {
	Store  Store
	Engine WorkflowRunner
	Logger *slog.Logger

	// RateLimiter guards the run endpoint. Nil disables limiting.
	RateLimiter ratelimit.Limiter

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	EmbeddingProvider   string
	MockMode            bool
	MaxRequestBodyBytes int64

	// OpenAPISpec is the embedded API definition, served at /openapi.yaml.
	OpenAPISpec []byte
}

// New creates a new HTTP server with all routes configured.
func New(cfg Config) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Engine:              cfg.Engine,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		EmbeddingProvider:   cfg.EmbeddingProvider,
		MockMode:            cfg.MockMode,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	// Runs execute synchronously and hold a database connection for the
	// whole pipeline, so the run endpoint is limited per client IP.
	runRL := ratelimit.Middleware(cfg.RateLimiter, ratelimit.IPKeyFunc,
		func(r *http.Request) string { return RequestIDFromContext(r.Context()) })

	mux := http.NewServeMux()
	mux.Handle("POST /tasks/run", runRL(http.HandlerFunc(h.HandleRunTask)))
	mux.HandleFunc("GET /tasks/{task_id}", h.HandleGetTask)
	mux.HandleFunc("GET /tasks/{task_id}/audit", h.HandleGetAudit)
	mux.HandleFunc("GET /customers", h.HandleListCustomers)
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID -> tracing -> logging -> recovery -> handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
