package property

import "context"

// ListOptions contains options for listing properties.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains the results of listing properties.
type ListResult struct {
	Items      []*Property
	NextCursor string
}

// Repository defines the interface for property persistence.
type Repository interface {
	// Get retrieves a property by ID.
	Get(ctx context.Context, id string) (*Property, error)

	// FindByListing retrieves the property carrying the given site
	// listing. Returns ErrPropertyNotFound when no property has it.
	FindByListing(ctx context.Context, website WebsiteSource, listingID string) (*Property, error)

	// List retrieves properties with pagination, newest first.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Search retrieves properties matching the filters.
	Search(ctx context.Context, filters SearchFilters) ([]*Property, error)

	// Create creates a new property.
	Create(ctx context.Context, p *Property) error

	// Update updates an existing property.
	Update(ctx context.Context, p *Property) error

	// Delete deletes a property by ID.
	Delete(ctx context.Context, id string) error
}
