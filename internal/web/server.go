// Package web provides the HTTP server and handlers for CSV anomaly detection.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/csvanomaly/internal/config"
	"github.com/JonMunkholm/csvanomaly/internal/core"
	mw "github.com/JonMunkholm/csvanomaly/internal/web/middleware"
)

// Server is the HTTP server for the detection service.
type Server struct {
	pipeline *core.Pipeline
	limiter  *core.RunLimiter
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server

	requests *clientLimiter
	uploads  *clientLimiter
}

// NewServer creates a new Server instance.
func NewServer(pipeline *core.Pipeline, limiter *core.RunLimiter, cfg *config.Config) *Server {
	s := &Server{
		pipeline: pipeline,
		limiter:  limiter,
		cfg:      cfg,
		router:   chi.NewRouter(),
		requests: newClientLimiter(cfg.Rate.RequestsPerMinute),
		uploads:  newClientLimiter(cfg.Rate.UploadLimit),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.requests))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)

	// Operations
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Get("/limits", s.handleLimits)
		r.Get("/runs", s.handleRuns)

		// Detection runs have their own, stricter budget
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				r.Use(s.rateLimit(s.uploads))
			}
			r.Post("/detect", s.handleDetect)
			r.Post("/detect/categorical", s.handleDetectCategorical)
		})
	})
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SweepLimiters evicts idle rate limiter entries until ctx ends.
func (s *Server) SweepLimiters(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.requests.sweep(now)
			s.uploads.sweep(now)
		}
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if enableCSP {
				// htmx is loaded from unpkg; everything else is same-origin
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}

			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}
