package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/shikra/internal/domain"
	"github.com/opensource-finance/shikra/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, screener Screener, catalog *rules.Catalog, custom *rules.ExpressionEngine, version string) *Server {
	handler := NewHandler(repo, cache, bus, screener, catalog, custom, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Applicant intake
	router.Post("/applicants", handler.CreateApplicant)
	router.Get("/applicants/{id}", handler.GetApplicant)
	router.Get("/applicants/{id}/flags", handler.ListApplicantFlags)

	// Screening
	router.Post("/screenings/{applicantID}", handler.Screen)
	router.Post("/screenings/{applicantID}/async", handler.ScreenAsync)
	router.Get("/screenings/{applicantID}/enhanced", handler.Enhanced)

	// Fraud flags
	router.Get("/loans/{id}/flags", handler.ListLoanFlags)
	router.Get("/flags", handler.ListFlags)

	// Rule catalog management
	router.Get("/rules", handler.ListRules)
	router.Get("/rules/{code}", handler.GetRule)
	router.Post("/rules", handler.CreateRule)
	router.Post("/rules/reload", handler.ReloadRules)
	router.Put("/rules/{code}/active", handler.SetRuleActive)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
