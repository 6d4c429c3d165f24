package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	enrichJob        *EnrichJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	EnrichJob        *EnrichJob
	Logger           zerolog.Logger
}

// EnrichMessage represents a prediction enrichment job message.
type EnrichMessage struct {
	JobType     string   `json:"job_type"`
	PropertyIDs []string `json:"property_ids,omitempty"`
	RefreshAll  bool     `json:"refresh_all,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Enrichment runs can take minutes per message; hold the lease long
	// enough for a full catalogue walk.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 4
	subscriber.ReceiveSettings.MaxExtension = 30 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		enrichJob:        cfg.EnrichJob,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var enrichMsg EnrichMessage
	if err := json.Unmarshal(msg.Data, &enrichMsg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch enrichMsg.JobType {
	case "prediction_refresh":
		err = h.handlePredictionRefresh(ctx, enrichMsg)
	default:
		logger.Warn().Str("job_type", enrichMsg.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	duration := time.Since(startTime)
	logger.Info().
		Str("job_type", enrichMsg.JobType).
		Dur("duration", duration).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handlePredictionRefresh(ctx context.Context, msg EnrichMessage) error {
	h.logger.Info().
		Bool("refresh_all", msg.RefreshAll).
		Int("property_count", len(msg.PropertyIDs)).
		Msg("starting prediction refresh")

	var result *EnrichResult
	switch {
	case msg.RefreshAll:
		result = h.enrichJob.RunAll(ctx)
	case len(msg.PropertyIDs) > 0:
		result = h.enrichJob.RunForProperties(ctx, msg.PropertyIDs)
	default:
		return fmt.Errorf("message names no properties and refresh_all is false")
	}

	h.logger.Info().
		Dur("duration", result.Duration).
		Int("processed", result.PropertiesProcessed).
		Int("skipped", result.PropertiesSkipped).
		Int("failed_pairs", result.FailedPairs).
		Msg("prediction refresh completed")

	// A run where every prediction pair failed usually means the
	// routing provider is down; redeliver so the run retries later.
	if result.PropertiesProcessed > 0 && result.PredictionsComputed == 0 && result.FailedPairs > 0 {
		return fmt.Errorf("all %d prediction pairs failed", result.FailedPairs)
	}

	return nil
}
