package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nestscout/nestscout/internal/notion"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/routing"
)

type fakeScraper struct {
	prop *property.Property
	err  error
}

func (f *fakeScraper) Scrape(ctx context.Context, url string) (*property.Property, error) {
	if f.err != nil {
		return nil, f.err
	}
	// Hand out a copy so pipeline mutations don't leak between calls.
	cp := *f.prop
	cp.Listings = append([]property.WebsiteListing(nil), f.prop.Listings...)
	return &cp, nil
}

func (f *fakeScraper) SupportedWebsites() []string { return []string{"daft"} }

type fakeGeocoder struct {
	coord routing.Coordinate
	err   error
	calls []string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (routing.Coordinate, error) {
	f.calls = append(f.calls, address)
	if f.err != nil {
		return routing.Coordinate{}, f.err
	}
	return f.coord, nil
}

type fakePredictor struct {
	set   *prediction.PropertyPredictionSet
	calls int
}

func (f *fakePredictor) PredictForProperty(ctx context.Context, propertyID string, location routing.Coordinate, address string) *prediction.PropertyPredictionSet {
	f.calls++
	set := *f.set
	set.PropertyID = propertyID
	set.Location = location
	return &set
}

type fakePublisher struct {
	err   error
	pages []notion.PageInput
}

func (f *fakePublisher) SaveProperty(ctx context.Context, in notion.PageInput) (*notion.SaveResult, error) {
	f.pages = append(f.pages, in)
	if f.err != nil {
		return nil, f.err
	}
	return &notion.SaveResult{PageID: "page-1", PageURL: "https://notion.so/page-1"}, nil
}

func scrapedProperty() *property.Property {
	return &property.Property{
		Address: property.Address{
			Street:           "5 Main Street",
			City:             "Athlone",
			Country:          "Ireland",
			FormattedAddress: "5 Main Street, Athlone",
		},
		PropertyType: property.TypeHouse,
		Listings: []property.WebsiteListing{
			{
				Website:     property.SourceDaft,
				ListingID:   "123456",
				ListingURL:  "https://www.daft.ie/for-sale/house/123456",
				Price:       300000,
				Currency:    "EUR",
				Status:      property.StatusActive,
				DateScraped: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
			},
		},
	}
}

func newTestPipeline(t *testing.T, cfg PipelineConfig) *Pipeline {
	t.Helper()
	if cfg.Properties == nil {
		cfg.Properties = property.NewService(property.ServiceConfig{
			Repository: property.NewInMemoryRepository(),
			Now:        func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) },
		})
	}
	return NewPipeline(cfg)
}

func TestIngestURLFullPipeline(t *testing.T) {
	geocoder := &fakeGeocoder{coord: routing.Coordinate{Lat: 53.42, Lon: -7.94}}
	predictor := &fakePredictor{set: &prediction.PropertyPredictionSet{
		PredictionDate: "2025-09-05",
		Predictions: []prediction.TravelPrediction{
			{InterestPointID: "work", Mode: routing.ModeDriving, DurationMinutes: 25},
		},
	}}
	publisher := &fakePublisher{}

	p := newTestPipeline(t, PipelineConfig{
		Scrapers:  &fakeScraper{prop: scrapedProperty()},
		Geocoder:  geocoder,
		Predictor: predictor,
		Publisher: publisher,
	})

	result, err := p.IngestURL(context.Background(), "https://www.daft.ie/for-sale/house/123456")
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}

	if result.Property.ID == "" {
		t.Error("expected stored property to have an ID")
	}
	if !result.Property.Address.HasCoordinates() {
		t.Error("expected geocoded coordinates on stored property")
	}
	if got := *result.Property.Address.Latitude; got != 53.42 {
		t.Errorf("latitude = %v, want 53.42", got)
	}
	if len(geocoder.calls) != 1 || geocoder.calls[0] != "5 Main Street, Athlone" {
		t.Errorf("geocoder calls = %v", geocoder.calls)
	}

	if result.Predictions == nil {
		t.Fatal("expected predictions")
	}
	if result.Predictions.PropertyID != result.Property.ID {
		t.Errorf("prediction property ID = %q, want %q", result.Predictions.PropertyID, result.Property.ID)
	}

	if result.NotionPage == nil || result.NotionPage.PageID != "page-1" {
		t.Errorf("notion page = %+v", result.NotionPage)
	}
	if len(publisher.pages) != 1 {
		t.Fatalf("publisher calls = %d, want 1", len(publisher.pages))
	}
	if publisher.pages[0].Predictions == nil {
		t.Error("expected predictions passed to publisher")
	}

	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestIngestURLScrapeFailureAborts(t *testing.T) {
	p := newTestPipeline(t, PipelineConfig{
		Scrapers: &fakeScraper{err: errors.New("page unavailable")},
	})

	_, err := p.IngestURL(context.Background(), "https://www.daft.ie/for-sale/house/123456")
	if err == nil {
		t.Fatal("expected error when scraping fails")
	}
}

func TestIngestURLGeocodeFailureDegrades(t *testing.T) {
	predictor := &fakePredictor{set: &prediction.PropertyPredictionSet{}}
	publisher := &fakePublisher{}

	p := newTestPipeline(t, PipelineConfig{
		Scrapers:  &fakeScraper{prop: scrapedProperty()},
		Geocoder:  &fakeGeocoder{err: errors.New("no results")},
		Predictor: predictor,
		Publisher: publisher,
	})

	result, err := p.IngestURL(context.Background(), "https://www.daft.ie/for-sale/house/123456")
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}

	if result.Predictions != nil {
		t.Error("expected no predictions without coordinates")
	}
	if predictor.calls != 0 {
		t.Errorf("predictor calls = %d, want 0", predictor.calls)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a geocoding warning")
	}
	// The property is still stored and published.
	if result.Property.ID == "" {
		t.Error("expected stored property")
	}
	if len(publisher.pages) != 1 {
		t.Errorf("publisher calls = %d, want 1", len(publisher.pages))
	}
}

func TestIngestURLSkipsGeocodingWhenScrapeHasCoordinates(t *testing.T) {
	lat, lon := 53.3268, -6.2936
	prop := scrapedProperty()
	prop.Address.Latitude = &lat
	prop.Address.Longitude = &lon

	geocoder := &fakeGeocoder{}
	predictor := &fakePredictor{set: &prediction.PropertyPredictionSet{}}

	p := newTestPipeline(t, PipelineConfig{
		Scrapers:  &fakeScraper{prop: prop},
		Geocoder:  geocoder,
		Predictor: predictor,
	})

	result, err := p.IngestURL(context.Background(), "https://www.daft.ie/for-sale/house/123456")
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}

	if len(geocoder.calls) != 0 {
		t.Errorf("geocoder calls = %v, want none", geocoder.calls)
	}
	if predictor.calls != 1 {
		t.Errorf("predictor calls = %d, want 1", predictor.calls)
	}
	if result.Predictions == nil {
		t.Error("expected predictions")
	}
	if result.Predictions.Location.Lat != lat {
		t.Errorf("prediction location lat = %v, want %v", result.Predictions.Location.Lat, lat)
	}
}

func TestIngestURLPublishFailureDegrades(t *testing.T) {
	p := newTestPipeline(t, PipelineConfig{
		Scrapers:  &fakeScraper{prop: scrapedProperty()},
		Geocoder:  &fakeGeocoder{coord: routing.Coordinate{Lat: 53.42, Lon: -7.94}},
		Predictor: &fakePredictor{set: &prediction.PropertyPredictionSet{}},
		Publisher: &fakePublisher{err: errors.New("notion unavailable")},
	})

	result, err := p.IngestURL(context.Background(), "https://www.daft.ie/for-sale/house/123456")
	if err != nil {
		t.Fatalf("IngestURL: %v", err)
	}

	if result.NotionPage != nil {
		t.Error("expected no notion page on publish failure")
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a publish warning")
	}
}

func TestIngestURLDeduplicatesRepeatScrapes(t *testing.T) {
	store := property.NewService(property.ServiceConfig{
		Repository: property.NewInMemoryRepository(),
		Now:        func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) },
	})

	p := newTestPipeline(t, PipelineConfig{
		Scrapers:   &fakeScraper{prop: scrapedProperty()},
		Properties: store,
	})

	first, err := p.IngestURL(context.Background(), "https://www.daft.ie/for-sale/house/123456")
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := p.IngestURL(context.Background(), "https://www.daft.ie/for-sale/house/123456")
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if first.Property.ID != second.Property.ID {
		t.Errorf("repeat ingest created a new property: %q vs %q", first.Property.ID, second.Property.ID)
	}
	if got := len(second.Property.Listings); got != 1 {
		t.Errorf("listings = %d, want 1", got)
	}
}
