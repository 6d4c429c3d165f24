// Package api provides the HTTP API for NestScout.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/api/handler"
	"github.com/nestscout/nestscout/internal/api/middleware"
	"github.com/nestscout/nestscout/internal/auth"
	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	JWTService     *auth.JWTService
	Properties     *property.Service
	InterestPoints *interestpoint.Registry
	Predictions    *prediction.Engine
	Providers      *resilience.Registry

	// Pipeline enables POST /v1/ingest when set.
	Pipeline handler.Ingester

	// Readiness checks run on /v1/ops/ready, keyed by subsystem name.
	Readiness map[string]handler.ReadinessChecker
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "nestscout-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Providers, cfg.Readiness)
	propertyHandler := handler.NewPropertyHandler(cfg.Properties)
	pointHandler := handler.NewInterestPointHandler(cfg.InterestPoints)
	predictionHandler := handler.NewPredictionHandler(cfg.Predictions, cfg.Properties, cfg.InterestPoints)

	authMiddleware := middleware.Auth(cfg.JWTService)

	// Rate limit middleware for different endpoint categories
	strictRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)         // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status exposes provider internals, admin only
			r.With(authMiddleware, middleware.RequireAdmin).Get("/status", opsHandler.SystemStatus)
		})

		// Property endpoints - standard rate limiting
		r.Route("/properties", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", propertyHandler.List)
			r.Post("/", propertyHandler.Create)
			r.Get("/search", propertyHandler.Search)
			r.Route("/{propertyId}", func(r chi.Router) {
				r.Get("/", propertyHandler.Get)
				r.Put("/", propertyHandler.Update)
				r.Delete("/", propertyHandler.Delete)
				// Prediction compute fans out to the routing provider
				r.With(expensiveRateLimit).Post("/predictions:compute", predictionHandler.ComputeForProperty)
			})
		})

		// Interest point endpoints - reads are public, writes and
		// bulk transfer are admin only
		r.Route("/interest-points", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", pointHandler.List)
			r.With(authMiddleware, middleware.RequireAdmin).Post("/", pointHandler.Create)
			// Bulk transfer gets the strictest rate class
			r.With(strictRateLimit, authMiddleware, middleware.RequireAdmin).Get("/export", pointHandler.Export)
			r.With(strictRateLimit, authMiddleware, middleware.RequireAdmin).Post("/import", pointHandler.Import)
			r.Route("/{pointId}", func(r chi.Router) {
				r.Get("/", pointHandler.Get)
				r.With(authMiddleware, middleware.RequireAdmin).Put("/", pointHandler.Update)
				r.With(authMiddleware, middleware.RequireAdmin).Delete("/", pointHandler.Delete)
				r.With(authMiddleware, middleware.RequireAdmin).Put("/active", pointHandler.SetActive)
			})
		})

		// Prediction endpoints - expensive rate limiting
		r.With(expensiveRateLimit).Post("/predictions:compute", predictionHandler.Compute)
		r.With(expensiveRateLimit).Post("/predictions:batch", predictionHandler.Batch)

		// Ingestion endpoint - expensive, enabled only when the
		// pipeline is configured
		if cfg.Pipeline != nil {
			ingestHandler := handler.NewIngestHandler(cfg.Pipeline)
			r.With(expensiveRateLimit).Post("/ingest", ingestHandler.Ingest)
		}
	})

	return r
}
