package property

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the property service.
type ServiceConfig struct {
	// Repository persists properties (required).
	Repository Repository

	// Now returns the current time. Default: time.Now
	Now func() time.Time

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service provides property operations.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a new property service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   cfg.Repository,
		now:    now,
		logger: cfg.Logger,
	}
}

// Create stores a new property, assigning an ID when none is set.
func (s *Service) Create(ctx context.Context, p *Property) (*Property, error) {
	if p.ID == "" {
		p.ID = newPropertyID()
	}
	if p.Address.Country == "" {
		p.Address.Country = "Ireland"
	}

	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().Str("property_id", p.ID).Str("city", p.Address.City).Msg("created property")
	return p, nil
}

// Get retrieves a property by ID.
func (s *Service) Get(ctx context.Context, id string) (*Property, error) {
	return s.repo.Get(ctx, id)
}

// Update replaces a stored property, preserving its creation timestamp.
func (s *Service) Update(ctx context.Context, id string, p *Property) (*Property, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.ID = id
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a property by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// List retrieves properties with pagination, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	return s.repo.List(ctx, opts)
}

// Search retrieves properties matching the filters.
func (s *Service) Search(ctx context.Context, filters SearchFilters) ([]*Property, error) {
	return s.repo.Search(ctx, filters)
}

// UpsertListing attaches a site listing to the property. A listing from
// the same site with the same listing ID updates in place; anything
// else appends.
func (s *Service) UpsertListing(ctx context.Context, propertyID string, listing WebsiteListing) (*Property, error) {
	p, err := s.repo.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	listing.DateScraped = now

	updated := false
	for i := range p.Listings {
		if p.Listings[i].Website == listing.Website && p.Listings[i].ListingID == listing.ListingID {
			listing.DateUpdated = &now
			p.Listings[i] = listing
			updated = true
			break
		}
	}
	if !updated {
		p.Listings = append(p.Listings, listing)
	}

	p.UpdatedAt = now
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("property_id", propertyID).
		Str("website", string(listing.Website)).
		Str("listing_id", listing.ListingID).
		Bool("updated_existing", updated).
		Msg("upserted listing")
	return p, nil
}

// FindOrCreateByListing returns the property already carrying the
// given listing, or creates a fresh property from the candidate when
// none does. Used by the ingestion path to deduplicate scrapes.
func (s *Service) FindOrCreateByListing(ctx context.Context, candidate *Property, listing WebsiteListing) (*Property, error) {
	existing, err := s.repo.FindByListing(ctx, listing.Website, listing.ListingID)
	if err == nil {
		return s.UpsertListing(ctx, existing.ID, listing)
	}
	if !errors.Is(err, ErrPropertyNotFound) {
		return nil, err
	}

	listing.DateScraped = s.now()
	candidate.Listings = []WebsiteListing{listing}
	return s.Create(ctx, candidate)
}

func newPropertyID() string {
	return "prop_" + uuid.New().String()[:22]
}
