package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matthewgwang/utra-da/internal/coach"
	"github.com/matthewgwang/utra-da/internal/pipeline"
	"github.com/matthewgwang/utra-da/internal/ratelimit"
	"github.com/matthewgwang/utra-da/internal/storage"
)

// Server is the UTRA data-analysis HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
type ServerConfig struct {
	DB         *storage.DB
	Normalizer *pipeline.Normalizer
	PathGen    *pipeline.PathGenerator
	CoachSvc   *coach.Service
	Logger     *slog.Logger

	// Limiter bounds per-client request rates. nil disables limiting.
	Limiter ratelimit.Limiter

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		Normalizer:          cfg.Normalizer,
		PathGen:             cfg.PathGen,
		CoachSvc:            cfg.CoachSvc,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Run ingestion and queries.
	mux.HandleFunc("POST /ingest", h.HandleIngest)
	mux.HandleFunc("GET /runs", h.HandleListRuns)
	mux.HandleFunc("DELETE /runs/clear", h.HandleClearRuns)
	mux.HandleFunc("GET /runs/{run_id}", h.HandleGetRun)
	mux.HandleFunc("POST /runs/{run_id}/analyze", h.HandleAnalyzeRun)
	mux.HandleFunc("GET /runs/{run_id}/path", h.HandleRunPath)

	// Live telemetry, outside the run-analysis pipeline.
	mux.HandleFunc("POST /telemetry", h.HandleIngestTelemetry)
	mux.HandleFunc("GET /telemetry/latest", h.HandleLatestTelemetry)

	// Health (no envelope dependencies beyond the DB ping).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID, CORS, rate limit, tracing, logging, recovery, handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}, cfg.Logger)(handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
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
