// Package main provides the entrypoint for the NestScout API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/api"
	"github.com/nestscout/nestscout/internal/api/handler"
	"github.com/nestscout/nestscout/internal/api/middleware"
	"github.com/nestscout/nestscout/internal/auth"
	"github.com/nestscout/nestscout/internal/database"
	"github.com/nestscout/nestscout/internal/geocoding"
	"github.com/nestscout/nestscout/internal/ingest"
	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/notion"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/provider/resilience"
	"github.com/nestscout/nestscout/internal/routing/here"
	"github.com/nestscout/nestscout/internal/scraper"
	"github.com/nestscout/nestscout/internal/telegram"
	"github.com/nestscout/nestscout/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "nestscout-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting NestScout API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Provider health registry, shared by all external clients
	providers := resilience.NewRegistry()

	// Routing is the core of the service; fail fast without a key
	hereAPIKey := os.Getenv("HERE_API_KEY")
	if hereAPIKey == "" {
		log.Fatal().Msg("HERE_API_KEY is required")
	}

	hereClient := here.NewClient(here.ClientConfig{
		APIKey:   hereAPIKey,
		Registry: providers,
		Logger:   log,
	})

	// Interest point registry
	pointsPath := os.Getenv("INTEREST_POINTS_FILE")
	if pointsPath == "" {
		pointsPath = "interest_points.json"
	}
	points, err := interestpoint.NewRegistry(interestpoint.RegistryConfig{
		Path:   pointsPath,
		Logger: log,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", pointsPath).Msg("failed to load interest points")
	}

	// Prediction engine
	engine := prediction.NewEngine(prediction.EngineConfig{
		Provider: hereClient,
		Points:   points,
		Logger:   log,
	})

	// Property storage: Postgres by default, in-memory when disabled
	readiness := map[string]handler.ReadinessChecker{}
	var repo property.Repository
	if os.Getenv("DB_ENABLED") == "false" {
		log.Warn().Msg("database disabled - using in-memory property store")
		repo = property.NewInMemoryRepository()
	} else {
		dbConfig := database.ConfigFromEnv()
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		repo = property.NewPostgresRepository(pool)
		readiness["database"] = func(r *http.Request) error {
			return pool.Ping(r.Context())
		}
	}

	properties := property.NewService(property.ServiceConfig{
		Repository: repo,
		Logger:     log,
	})

	// Geocoding shares the HERE key
	geocoder := geocoding.NewClient(geocoding.ClientConfig{
		APIKey:   hereAPIKey,
		Registry: providers,
		Logger:   log,
	})

	// Scrapers
	scrapers := scraper.NewFactory(scraper.FactoryConfig{
		Registry: providers,
		Logger:   log,
	})

	// Ingestion pipeline; Notion publishing is optional
	pipelineCfg := ingest.PipelineConfig{
		Scrapers:   scrapers,
		Properties: properties,
		Geocoder:   geocoder,
		Predictor:  engine,
		Points:     points,
		Logger:     log,
	}

	var notionClient *notion.Client
	notionToken := os.Getenv("NOTION_TOKEN")
	notionDatabaseID := os.Getenv("NOTION_DATABASE_ID")
	if notionToken != "" && notionDatabaseID != "" {
		notionClient, err = notion.NewClient(notion.ClientConfig{
			Token:      notionToken,
			DatabaseID: notionDatabaseID,
			Registry:   providers,
			Logger:     log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize notion client")
		}
		pipelineCfg.Publisher = notionClient
		log.Info().Msg("notion publishing enabled")
	} else {
		log.Warn().Msg("notion not configured - pages will not be published")
	}

	pipeline := ingest.NewPipeline(pipelineCfg)

	// JWT service for admin endpoints
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "https://api.nestscout.ie"
	}
	jwtAudience := os.Getenv("JWT_AUDIENCE")
	if jwtAudience == "" {
		jwtAudience = "nestscout-api"
	}

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     jwtIssuer,
		Audience:   jwtAudience,
	})

	// Telegram bot, optional
	botCtx, botCancel := context.WithCancel(ctx)
	defer botCancel()

	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		botCfg := telegram.BotConfig{
			Token:    botToken,
			Pipeline: pipeline,
			Logger:   log,
		}
		if notionClient != nil {
			botCfg.Workspace = notionClient
		}
		bot, err := telegram.NewBot(botCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize telegram bot")
		}
		go func() {
			if runErr := bot.Run(botCtx); runErr != nil && runErr != context.Canceled {
				log.Error().Err(runErr).Msg("telegram bot stopped")
			}
		}()
		log.Info().Msg("telegram bot started")
	} else {
		log.Warn().Msg("telegram bot not configured")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		JWTService:     jwtService,
		Properties:     properties,
		InterestPoints: points,
		Predictions:    engine,
		Providers:      providers,
		Pipeline:       pipeline,
		Readiness:      readiness,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	botCancel()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
