package property

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Listings are stored as a JSONB document alongside the property row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL property repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const propertyColumns = `
	id, street, city, county, postal_code, country,
	latitude, longitude, formatted_address,
	property_type, bedrooms, bathrooms, area_sqm, energy_rating,
	listings, created_at, updated_at
`

// Get retrieves a property by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	return r.scanProperty(r.pool.QueryRow(ctx, query, id))
}

// FindByListing retrieves the property carrying the given site listing.
func (r *PostgresRepository) FindByListing(ctx context.Context, website WebsiteSource, listingID string) (*Property, error) {
	match, err := json.Marshal([]map[string]string{{
		"website":    string(website),
		"listing_id": listingID,
	}})
	if err != nil {
		return nil, fmt.Errorf("encoding listing match: %w", err)
	}

	query := `SELECT ` + propertyColumns + ` FROM properties WHERE listings @> $1::jsonb`
	return r.scanProperty(r.pool.QueryRow(ctx, query, string(match)))
}

// List retrieves properties with pagination, newest first.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, fetchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := r.collectProperties(rows)
	if err != nil {
		return nil, err
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].ID
	}
	return result, nil
}

// Search retrieves properties matching the filters.
func (r *PostgresRepository) Search(ctx context.Context, filters SearchFilters) ([]*Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE 1=1`
	args := []any{}

	if filters.City != "" {
		args = append(args, filters.City)
		query += fmt.Sprintf(" AND lower(city) = lower($%d)", len(args))
	}
	if filters.PropertyType != "" {
		args = append(args, string(filters.PropertyType))
		query += fmt.Sprintf(" AND property_type = $%d", len(args))
	}
	if filters.MinBedrooms > 0 {
		args = append(args, filters.MinBedrooms)
		query += fmt.Sprintf(" AND bedrooms >= $%d", len(args))
	}
	if filters.Website != "" {
		match, err := json.Marshal([]map[string]string{{"website": string(filters.Website)}})
		if err != nil {
			return nil, fmt.Errorf("encoding website match: %w", err)
		}
		args = append(args, string(match))
		query += fmt.Sprintf(" AND listings @> $%d::jsonb", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := r.collectProperties(rows)
	if err != nil {
		return nil, err
	}

	// Price bounds apply to the primary listing inside the JSONB
	// document, filtered here rather than in SQL.
	if filters.MinPrice > 0 || filters.MaxPrice > 0 {
		filtered := items[:0]
		for _, p := range items {
			primary := p.PrimaryListing()
			if primary == nil {
				continue
			}
			if filters.MinPrice > 0 && primary.Price < filters.MinPrice {
				continue
			}
			if filters.MaxPrice > 0 && primary.Price > filters.MaxPrice {
				continue
			}
			filtered = append(filtered, p)
		}
		items = filtered
	}
	return items, nil
}

// Create creates a new property.
func (r *PostgresRepository) Create(ctx context.Context, p *Property) error {
	listings, err := json.Marshal(p.Listings)
	if err != nil {
		return fmt.Errorf("encoding listings: %w", err)
	}

	query := `
		INSERT INTO properties (` + propertyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Address.Street,
		p.Address.City,
		p.Address.County,
		p.Address.PostalCode,
		p.Address.Country,
		p.Address.Latitude,
		p.Address.Longitude,
		p.Address.FormattedAddress,
		string(p.PropertyType),
		p.Bedrooms,
		p.Bathrooms,
		p.AreaSqm,
		p.EnergyRating,
		string(listings),
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// Update updates an existing property.
func (r *PostgresRepository) Update(ctx context.Context, p *Property) error {
	listings, err := json.Marshal(p.Listings)
	if err != nil {
		return fmt.Errorf("encoding listings: %w", err)
	}

	query := `
		UPDATE properties SET
			street = $2, city = $3, county = $4, postal_code = $5, country = $6,
			latitude = $7, longitude = $8, formatted_address = $9,
			property_type = $10, bedrooms = $11, bathrooms = $12,
			area_sqm = $13, energy_rating = $14,
			listings = $15, updated_at = $16
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Address.Street,
		p.Address.City,
		p.Address.County,
		p.Address.PostalCode,
		p.Address.Country,
		p.Address.Latitude,
		p.Address.Longitude,
		p.Address.FormattedAddress,
		string(p.PropertyType),
		p.Bedrooms,
		p.Bathrooms,
		p.AreaSqm,
		p.EnergyRating,
		string(listings),
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

// Delete deletes a property by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

func (r *PostgresRepository) scanProperty(row pgx.Row) (*Property, error) {
	var (
		p        Property
		listings []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Address.Street,
		&p.Address.City,
		&p.Address.County,
		&p.Address.PostalCode,
		&p.Address.Country,
		&p.Address.Latitude,
		&p.Address.Longitude,
		&p.Address.FormattedAddress,
		&p.PropertyType,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.AreaSqm,
		&p.EnergyRating,
		&listings,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}

	if len(listings) > 0 {
		if err := json.Unmarshal(listings, &p.Listings); err != nil {
			return nil, fmt.Errorf("decoding listings: %w", err)
		}
	}
	return &p, nil
}

func (r *PostgresRepository) collectProperties(rows pgx.Rows) ([]*Property, error) {
	var items []*Property
	for rows.Next() {
		p, err := r.scanProperty(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
