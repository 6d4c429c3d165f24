// Package ingest orchestrates turning a listing URL into a stored,
// geocoded, prediction-enriched property record.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/notion"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/routing"
)

// ErrNoListing is returned when a scrape yields a property without any
// listing attached.
var ErrNoListing = errors.New("scraped property carries no listing")

// Scraper turns a listing URL into a property candidate.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*property.Property, error)
	SupportedWebsites() []string
}

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (routing.Coordinate, error)
}

// Predictor computes travel-time predictions for a located property.
type Predictor interface {
	PredictForProperty(ctx context.Context, propertyID string, location routing.Coordinate, address string) *prediction.PropertyPredictionSet
}

// Publisher pushes a property page to an external workspace.
type Publisher interface {
	SaveProperty(ctx context.Context, in notion.PageInput) (*notion.SaveResult, error)
}

// PipelineConfig holds the pipeline's collaborators. Scrapers and
// Properties are required; the rest degrade to skipped stages when nil.
type PipelineConfig struct {
	Scrapers   Scraper
	Properties *property.Service
	Geocoder   Geocoder
	Predictor  Predictor
	Points     *interestpoint.Registry
	Publisher  Publisher
	Logger     zerolog.Logger
}

// Pipeline runs the ingestion stages for one listing URL.
type Pipeline struct {
	scrapers   Scraper
	properties *property.Service
	geocoder   Geocoder
	predictor  Predictor
	points     *interestpoint.Registry
	publisher  Publisher
	logger     zerolog.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		scrapers:   cfg.Scrapers,
		properties: cfg.Properties,
		geocoder:   cfg.Geocoder,
		predictor:  cfg.Predictor,
		points:     cfg.Points,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
	}
}

// Result reports what each stage produced. Warnings carry the stages
// that were skipped or failed without aborting the ingest.
type Result struct {
	Property    *property.Property                `json:"property"`
	Predictions *prediction.PropertyPredictionSet `json:"predictions,omitempty"`
	NotionPage  *notion.SaveResult                `json:"notion_page,omitempty"`
	Warnings    []string                          `json:"warnings,omitempty"`
}

// IngestURL runs scrape, store, geocode, predict and publish for one
// listing URL. Scraping and storing must succeed; later stages degrade,
// so a property whose address cannot be geocoded is still stored and
// returned, just without predictions.
func (p *Pipeline) IngestURL(ctx context.Context, url string) (*Result, error) {
	scraped, err := p.scrapers.Scrape(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("scraping %s: %w", url, err)
	}
	if len(scraped.Listings) == 0 {
		return nil, ErrNoListing
	}

	stored, err := p.properties.FindOrCreateByListing(ctx, scraped, scraped.Listings[0])
	if err != nil {
		return nil, fmt.Errorf("storing property: %w", err)
	}

	result := &Result{Property: stored}

	location, ok := p.resolveLocation(ctx, result)
	if ok {
		result.Predictions = p.predict(ctx, result, location)
	}

	p.publish(ctx, result)

	p.logger.Info().
		Str("url", url).
		Str("property_id", result.Property.ID).
		Bool("geocoded", ok).
		Int("warnings", len(result.Warnings)).
		Msg("listing ingested")

	return result, nil
}

// resolveLocation returns the property's coordinates, geocoding and
// persisting them when the scrape did not supply any.
func (p *Pipeline) resolveLocation(ctx context.Context, result *Result) (routing.Coordinate, bool) {
	prop := result.Property
	if prop.Address.HasCoordinates() {
		return routing.Coordinate{Lat: *prop.Address.Latitude, Lon: *prop.Address.Longitude}, true
	}

	if p.geocoder == nil {
		result.warn("geocoding skipped: no geocoder configured")
		return routing.Coordinate{}, false
	}

	address := prop.Address.FormattedAddress
	if address == "" {
		address = prop.Address.Street + ", " + prop.Address.City
	}

	coord, err := p.geocoder.Geocode(ctx, address)
	if err != nil {
		p.logger.Warn().Err(err).Str("address", address).Msg("geocoding failed")
		result.warn("geocoding failed: " + err.Error())
		return routing.Coordinate{}, false
	}

	prop.Address.Latitude = &coord.Lat
	prop.Address.Longitude = &coord.Lon
	updated, err := p.properties.Update(ctx, prop.ID, prop)
	if err != nil {
		result.warn("persisting coordinates failed: " + err.Error())
		return coord, true
	}
	result.Property = updated

	return coord, true
}

func (p *Pipeline) predict(ctx context.Context, result *Result, location routing.Coordinate) *prediction.PropertyPredictionSet {
	if p.predictor == nil {
		result.warn("predictions skipped: no predictor configured")
		return nil
	}
	return p.predictor.PredictForProperty(ctx, result.Property.ID, location, result.Property.Address.FormattedAddress)
}

func (p *Pipeline) publish(ctx context.Context, result *Result) {
	if p.publisher == nil {
		return
	}

	page, err := p.publisher.SaveProperty(ctx, notion.PageInput{
		Property:    result.Property,
		Predictions: result.Predictions,
		PointNames:  p.pointNames(),
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("property_id", result.Property.ID).Msg("notion publish failed")
		result.warn("notion publish failed: " + err.Error())
		return
	}
	result.NotionPage = page
}

func (p *Pipeline) pointNames() map[string]string {
	if p.points == nil {
		return nil
	}
	points := p.points.All()
	names := make(map[string]string, len(points))
	for _, pt := range points {
		names[pt.ID] = pt.Name
	}
	return names
}

// SupportedWebsites lists the sites the pipeline can ingest from.
func (p *Pipeline) SupportedWebsites() []string {
	return p.scrapers.SupportedWebsites()
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
