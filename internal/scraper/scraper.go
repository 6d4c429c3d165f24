// Package scraper fetches and parses property listing pages from
// supported listing sites into property records.
package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/provider/resilience"
)

// Predefined errors for scraping operations.
var (
	// ErrUnsupportedURL is returned when no scraper handles the URL.
	ErrUnsupportedURL = errors.New("no scraper available for URL")

	// ErrListingIDNotFound is returned when a URL carries no listing ID.
	ErrListingIDNotFound = errors.New("could not extract listing ID from URL")

	// ErrAccessForbidden is returned when the listing site blocks the request.
	ErrAccessForbidden = errors.New("listing site refused the request")

	// ErrListingNotParsed is returned when the page yields no usable listing.
	ErrListingNotParsed = errors.New("could not parse listing from page")
)

// Scraper extracts a property record from a listing page URL.
type Scraper interface {
	// Website identifies the listing site this scraper handles.
	Website() property.WebsiteSource

	// CanHandle reports whether this scraper recognizes the URL as a
	// listing page on its site.
	CanHandle(url string) bool

	// ExtractListingID pulls the site listing ID out of the URL.
	ExtractListingID(url string) (string, error)

	// Scrape fetches the listing page and returns a property record
	// carrying a single listing for this site.
	Scrape(ctx context.Context, url string) (*property.Property, error)
}

// FactoryConfig holds configuration for the scraper factory.
type FactoryConfig struct {
	// HTTPClient is shared by all scrapers (optional).
	HTTPClient HTTPDoer

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for scraping operations.
	Logger zerolog.Logger
}

// Factory routes listing URLs to the scraper for their site.
type Factory struct {
	scrapers []Scraper
}

// NewFactory creates a factory with all site scrapers registered.
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{
		scrapers: []Scraper{
			NewDaftScraper(DaftConfig{
				HTTPClient: cfg.HTTPClient,
				Registry:   cfg.Registry,
				Logger:     cfg.Logger,
			}),
		},
	}
}

// ScraperFor returns the scraper that handles the URL, or nil.
func (f *Factory) ScraperFor(url string) Scraper {
	for _, s := range f.scrapers {
		if s.CanHandle(url) {
			return s
		}
	}
	return nil
}

// Scrape dispatches the URL to its site scraper.
func (f *Factory) Scrape(ctx context.Context, url string) (*property.Property, error) {
	s := f.ScraperFor(url)
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}
	return s.Scrape(ctx, url)
}

// SupportedWebsites lists the sites the factory can scrape.
func (f *Factory) SupportedWebsites() []string {
	out := make([]string, 0, len(f.scrapers))
	for _, s := range f.scrapers {
		out = append(out, string(s.Website()))
	}
	return out
}
