package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/notion"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/routing"
)

// PredictionEngine computes travel predictions for property batches.
type PredictionEngine interface {
	PredictBatch(ctx context.Context, properties []prediction.BatchProperty, points []interestpoint.InterestPoint) []prediction.BatchResult
}

// PointSource supplies the interest points predictions target.
type PointSource interface {
	ListActive() []interestpoint.InterestPoint
	All() []interestpoint.InterestPoint
}

// Publisher pushes refreshed predictions to the Notion workspace.
type Publisher interface {
	SaveProperty(ctx context.Context, input notion.PageInput) (*notion.SaveResult, error)
}

// EnrichJob recomputes travel predictions for stored properties.
type EnrichJob struct {
	config     EnrichConfig
	logger     zerolog.Logger
	properties *property.Service
	engine     PredictionEngine
	points     PointSource

	// Publisher is optional, nil if Notion is not configured.
	publisher Publisher

	metrics *EnrichMetrics
}

// EnrichMetrics tracks enrichment job statistics.
type EnrichMetrics struct {
	mu sync.RWMutex

	TotalRuns           int64
	PropertiesProcessed int64
	PropertiesSkipped   int64
	PredictionsComputed int64
	FailedPairs         int64
	Published           int64
	PublishFailures     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// EnrichJobConfig holds configuration for creating an EnrichJob.
type EnrichJobConfig struct {
	Config     EnrichConfig
	Logger     zerolog.Logger
	Properties *property.Service
	Engine     PredictionEngine
	Points     PointSource
	Publisher  Publisher
}

// NewEnrichJob creates a new prediction enrichment processor.
func NewEnrichJob(cfg EnrichJobConfig) *EnrichJob {
	return &EnrichJob{
		config:     cfg.Config.withDefaults(),
		logger:     cfg.Logger,
		properties: cfg.Properties,
		engine:     cfg.Engine,
		points:     cfg.Points,
		publisher:  cfg.Publisher,
		metrics:    &EnrichMetrics{},
	}
}

// EnrichResult contains the result of one enrichment run.
type EnrichResult struct {
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
	PropertiesProcessed int
	PropertiesSkipped   int
	PredictionsComputed int
	FailedPairs         int
	Published           int
	PublishFailures     int
	Errors              []EnrichError
}

// EnrichError records one per-property failure during a run.
type EnrichError struct {
	PropertyID string
	Stage      string
	Error      string
}

// RunAll recomputes predictions for every stored property, walking the
// store page by page.
func (j *EnrichJob) RunAll(ctx context.Context) *EnrichResult {
	result := j.newResult()

	cursor := ""
	for {
		page, err := j.properties.List(ctx, property.ListOptions{
			Limit:  j.config.PageSize,
			Cursor: cursor,
		})
		if err != nil {
			j.logger.Error().Err(err).Msg("failed to list properties")
			result.Errors = append(result.Errors, EnrichError{Stage: "list", Error: err.Error()})
			break
		}

		j.enrichPage(ctx, page.Items, result)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	j.finish(result)
	return result
}

// RunForProperties recomputes predictions for the named properties only.
// Unknown IDs are recorded as errors, not fatal.
func (j *EnrichJob) RunForProperties(ctx context.Context, ids []string) *EnrichResult {
	result := j.newResult()

	items := make([]*property.Property, 0, len(ids))
	for _, id := range ids {
		p, err := j.properties.Get(ctx, id)
		if err != nil {
			result.Errors = append(result.Errors, EnrichError{
				PropertyID: id,
				Stage:      "load",
				Error:      err.Error(),
			})
			continue
		}
		items = append(items, p)
	}

	j.enrichPage(ctx, items, result)
	j.finish(result)
	return result
}

func (j *EnrichJob) newResult() *EnrichResult {
	return &EnrichResult{StartTime: time.Now()}
}

func (j *EnrichJob) finish(result *EnrichResult) {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("processed", result.PropertiesProcessed).
		Int("skipped", result.PropertiesSkipped).
		Int("predictions", result.PredictionsComputed).
		Int("failed_pairs", result.FailedPairs).
		Int("published", result.Published).
		Msg("prediction enrichment completed")
}

// enrichPage batches one page of properties through the engine and
// publishes per-property results.
func (j *EnrichJob) enrichPage(ctx context.Context, items []*property.Property, result *EnrichResult) {
	points := j.points.ListActive()
	if len(points) == 0 {
		j.logger.Warn().Msg("no active interest points, nothing to compute")
		result.PropertiesSkipped += len(items)
		return
	}

	// Properties without coordinates cannot be routed.
	eligible := make([]*property.Property, 0, len(items))
	for _, p := range items {
		if !p.Address.HasCoordinates() {
			result.PropertiesSkipped++
			continue
		}
		eligible = append(eligible, p)
	}

	byID := make(map[string]*property.Property, len(eligible))
	for start := 0; start < len(eligible); start += j.config.BatchSize {
		end := start + j.config.BatchSize
		if end > len(eligible) {
			end = len(eligible)
		}

		batch := make([]prediction.BatchProperty, 0, end-start)
		for _, p := range eligible[start:end] {
			byID[p.ID] = p
			batch = append(batch, prediction.BatchProperty{
				ID:       p.ID,
				Location: routing.Coordinate{Lat: *p.Address.Latitude, Lon: *p.Address.Longitude},
			})
		}

		batchCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		results := j.engine.PredictBatch(batchCtx, batch, points)
		cancel()

		for _, br := range results {
			result.PropertiesProcessed++
			result.PredictionsComputed += len(br.Predictions)
			result.FailedPairs += br.FailedPairs
			j.publish(ctx, byID[br.PropertyID], br, result)
		}
	}
}

func (j *EnrichJob) publish(ctx context.Context, p *property.Property, br prediction.BatchResult, result *EnrichResult) {
	if !j.config.PublishToNotion || j.publisher == nil || p == nil {
		return
	}

	set := &prediction.PropertyPredictionSet{
		PropertyID:      p.ID,
		PropertyAddress: p.Address.FormattedAddress,
		Location:        routing.Coordinate{Lat: *p.Address.Latitude, Lon: *p.Address.Longitude},
		Predictions:     br.Predictions,
		FailedPairs:     br.FailedPairs,
		CalculatedAt:    time.Now().UTC(),
	}
	if len(br.Predictions) > 0 {
		set.PredictionDate = br.Predictions[0].PredictionDate
	}

	pointNames := make(map[string]string)
	for _, point := range j.points.All() {
		pointNames[point.ID] = point.Name
	}

	if _, err := j.publisher.SaveProperty(ctx, notion.PageInput{
		Property:    p,
		Predictions: set,
		PointNames:  pointNames,
	}); err != nil {
		j.logger.Warn().Err(err).Str("property_id", p.ID).Msg("notion publish failed")
		result.PublishFailures++
		result.Errors = append(result.Errors, EnrichError{
			PropertyID: p.ID,
			Stage:      "publish",
			Error:      err.Error(),
		})
		return
	}
	result.Published++
}

func (j *EnrichJob) updateMetrics(result *EnrichResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.PropertiesProcessed += int64(result.PropertiesProcessed)
	j.metrics.PropertiesSkipped += int64(result.PropertiesSkipped)
	j.metrics.PredictionsComputed += int64(result.PredictionsComputed)
	j.metrics.FailedPairs += int64(result.FailedPairs)
	j.metrics.Published += int64(result.Published)
	j.metrics.PublishFailures += int64(result.PublishFailures)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *EnrichJob) GetMetrics() EnrichMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return EnrichMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		PropertiesProcessed: j.metrics.PropertiesProcessed,
		PropertiesSkipped:   j.metrics.PropertiesSkipped,
		PredictionsComputed: j.metrics.PredictionsComputed,
		FailedPairs:         j.metrics.FailedPairs,
		Published:           j.metrics.Published,
		PublishFailures:     j.metrics.PublishFailures,
		LastRunAt:           j.metrics.LastRunAt,
		LastRunDuration:     j.metrics.LastRunDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *EnrichJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":           m.TotalRuns,
		"properties_processed": m.PropertiesProcessed,
		"properties_skipped":   m.PropertiesSkipped,
		"predictions_computed": m.PredictionsComputed,
		"failed_pairs":         m.FailedPairs,
		"published":            m.Published,
		"publish_failures":     m.PublishFailures,
		"last_run_at":          m.LastRunAt,
		"last_run_duration":    m.LastRunDuration.String(),
		"total_duration":       m.TotalDuration.String(),
	}
}
