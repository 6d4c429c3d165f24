// Package main provides the entrypoint for the NestScout background worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/database"
	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/notion"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/provider/resilience"
	"github.com/nestscout/nestscout/internal/routing/here"
	"github.com/nestscout/nestscout/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "nestscout-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting NestScout worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers := resilience.NewRegistry()

	hereAPIKey := os.Getenv("HERE_API_KEY")
	if hereAPIKey == "" {
		log.Fatal().Msg("HERE_API_KEY is required")
	}
	hereClient := here.NewClient(here.ClientConfig{
		APIKey:   hereAPIKey,
		Registry: providers,
		Logger:   log,
	})

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

	engine := prediction.NewEngine(prediction.EngineConfig{
		Provider: hereClient,
		Points:   points,
		Logger:   log,
	})

	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	properties := property.NewService(property.ServiceConfig{
		Repository: property.NewPostgresRepository(pool),
		Logger:     log,
	})

	jobCfg := worker.EnrichJobConfig{
		Config:     worker.DefaultEnrichConfig(),
		Logger:     log,
		Properties: properties,
		Engine:     engine,
		Points:     points,
	}

	notionToken := os.Getenv("NOTION_TOKEN")
	notionDatabaseID := os.Getenv("NOTION_DATABASE_ID")
	if notionToken != "" && notionDatabaseID != "" {
		notionClient, err := notion.NewClient(notion.ClientConfig{
			Token:      notionToken,
			DatabaseID: notionDatabaseID,
			Registry:   providers,
			Logger:     log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize notion client")
		}
		jobCfg.Publisher = notionClient
		log.Info().Msg("notion publishing enabled")
	} else {
		log.Warn().Msg("notion not configured - refreshed predictions will not be published")
	}

	enrichJob := worker.NewEnrichJob(jobCfg)

	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if projectID == "" || subscription == "" {
		log.Fatal().Msg("PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION are required")
	}

	pubsubHandler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        projectID,
		SubscriptionName: subscription,
		EnrichJob:        enrichJob,
		Logger:           log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
	}
	defer pubsubHandler.Close()

	// Health check server
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health response write is best-effort
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"version": Version,
			"metrics": enrichJob.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("health server error")
		}
	}()

	// Start message processing
	go func() {
		if err := pubsubHandler.Start(ctx); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("pubsub handler stopped")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
