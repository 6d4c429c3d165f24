package property

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu         sync.RWMutex
	properties map[string]*Property
}

// NewInMemoryRepository creates a new in-memory property repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		properties: make(map[string]*Property),
	}
}

// Get retrieves a property by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, ErrPropertyNotFound
	}

	cpy := clone(p)
	return cpy, nil
}

// FindByListing retrieves the property carrying the given site listing.
func (r *InMemoryRepository) FindByListing(_ context.Context, website WebsiteSource, listingID string) (*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.properties {
		for _, l := range p.Listings {
			if l.Website == website && l.ListingID == listingID {
				return clone(p), nil
			}
		}
	}
	return nil, ErrPropertyNotFound
}

// List retrieves properties with pagination, newest first.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Property, 0, len(r.properties))
	for _, p := range r.properties {
		items = append(items, clone(p))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].ID
	}
	return result, nil
}

// Search retrieves properties matching the filters.
func (r *InMemoryRepository) Search(_ context.Context, filters SearchFilters) ([]*Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Property, 0)
	for _, p := range r.properties {
		if matches(p, filters) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Create creates a new property.
func (r *InMemoryRepository) Create(_ context.Context, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.properties[p.ID] = clone(p)
	return nil
}

// Update updates an existing property.
func (r *InMemoryRepository) Update(_ context.Context, p *Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[p.ID]; !ok {
		return ErrPropertyNotFound
	}
	r.properties[p.ID] = clone(p)
	return nil
}

// Delete deletes a property by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.properties[id]; !ok {
		return ErrPropertyNotFound
	}
	delete(r.properties, id)
	return nil
}

func clone(p *Property) *Property {
	cpy := *p
	cpy.Listings = make([]WebsiteListing, len(p.Listings))
	copy(cpy.Listings, p.Listings)
	return &cpy
}

func matches(p *Property, f SearchFilters) bool {
	if f.City != "" && !strings.EqualFold(p.Address.City, f.City) {
		return false
	}
	if f.PropertyType != "" && p.PropertyType != f.PropertyType {
		return false
	}
	if f.MinBedrooms > 0 && p.Bedrooms < f.MinBedrooms {
		return false
	}
	if f.MinPrice > 0 || f.MaxPrice > 0 {
		primary := p.PrimaryListing()
		if primary == nil {
			return false
		}
		if f.MinPrice > 0 && primary.Price < f.MinPrice {
			return false
		}
		if f.MaxPrice > 0 && primary.Price > f.MaxPrice {
			return false
		}
	}
	if f.Website != "" {
		found := false
		for _, l := range p.ActiveListings() {
			if l.Website == f.Website {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
