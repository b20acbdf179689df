// Package server exposes the creator pipeline over HTTP.
//
// Routes:
//
//	POST /api/v1/generate       multipart: user_text, file, product_file, format, platforms
//	POST /api/v1/analyze-style  JSON: {"text_samples": [...]}
//	GET  /health, /ready, /metrics
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/mhpenta/creatorflow"
	"github.com/mhpenta/creatorflow/config"
	"github.com/mhpenta/creatorflow/metrics"
)

const (
	generatePath     = "/api/v1/generate"
	analyzeStylePath = "/api/v1/analyze-style"
)

// Generator runs the creator pipeline.
type Generator interface {
	Generate(ctx context.Context, req creatorflow.GenerationRequest) (*creatorflow.GenerationResult, error)
}

// StyleAnalyzer extracts a writing-style profile.
type StyleAnalyzer interface {
	Analyze(ctx context.Context, samples []string) (*creatorflow.StyleProfile, error)
}

// Server is the HTTP surface of creatorflow.
type Server struct {
	generator Generator
	style     StyleAnalyzer
	cfg       config.ServerConfig

	logger    *slog.Logger
	collector *metrics.Collector

	ready atomic.Bool
	http  *http.Server
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger for the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records HTTP metrics and serves /metrics from collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) {
		s.collector = collector
	}
}

// New creates a Server. It reports ready immediately; use SetReady to change that.
func New(generator Generator, style StyleAnalyzer, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		generator: generator,
		style:     style,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ready.Store(true)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// SetReady flips the /ready probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("POST "+generatePath, s.handleGenerate)
	mux.HandleFunc("POST "+analyzeStylePath, s.handleAnalyzeStyle)
	if s.collector != nil {
		mux.Handle("GET /metrics", s.collector.Handler())
	}

	return Chain(mux,
		Recovery(s.logger),
		RequestID(),
		RequestLogger(s.logger, s.collector),
		CORS(s.cfg.CORSAllowedOrigins),
		RateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst),
	)
}

// ListenAndServe serves until Shutdown is called. It returns nil after a
// graceful shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)
	return s.http.Shutdown(ctx)
}
