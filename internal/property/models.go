// Package property stores normalized property records aggregated from
// listing sites. One property can carry listings from several sites.
package property

import (
	"errors"
	"time"
)

// Predefined errors for property operations.
var (
	// ErrPropertyNotFound is returned when no property has the given ID.
	ErrPropertyNotFound = errors.New("property not found")
)

// PropertyType classifies a property.
type PropertyType string

const (
	TypeHouse      PropertyType = "house"
	TypeApartment  PropertyType = "apartment"
	TypeDuplex     PropertyType = "duplex"
	TypeTownhouse  PropertyType = "townhouse"
	TypeBungalow   PropertyType = "bungalow"
	TypeCottage    PropertyType = "cottage"
	TypePenthouse  PropertyType = "penthouse"
	TypeStudio     PropertyType = "studio"
	TypeLand       PropertyType = "land"
	TypeCommercial PropertyType = "commercial"
)

// ListingStatus is the lifecycle state of one site listing.
type ListingStatus string

const (
	StatusActive    ListingStatus = "active"
	StatusSold      ListingStatus = "sold"
	StatusRented    ListingStatus = "rented"
	StatusWithdrawn ListingStatus = "withdrawn"
	StatusExpired   ListingStatus = "expired"
)

// WebsiteSource identifies the listing site a listing came from.
type WebsiteSource string

const (
	SourceDaft     WebsiteSource = "daft"
	SourceMyHome   WebsiteSource = "myhome"
	SourceDoneDeal WebsiteSource = "dondeal"
	SourceRent     WebsiteSource = "rent"
	SourceOther    WebsiteSource = "other"
)

// Address locates a property. Coordinates are optional until the
// ingestion path geocodes the address.
type Address struct {
	Street           string   `json:"street"`
	City             string   `json:"city"`
	County           string   `json:"county,omitempty"`
	PostalCode       string   `json:"postal_code,omitempty"`
	Country          string   `json:"country"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
}

// HasCoordinates reports whether the address has been geocoded.
func (a Address) HasCoordinates() bool {
	return a.Latitude != nil && a.Longitude != nil
}

// AgentInfo identifies the listing agent.
type AgentInfo struct {
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	Agency string `json:"agency,omitempty"`
}

// WebsiteListing is one property listing on one site.
type WebsiteListing struct {
	Website     WebsiteSource `json:"website"`
	ListingID   string        `json:"listing_id"`
	ListingURL  string        `json:"listing_url"`
	Price       float64       `json:"price"`
	Currency    string        `json:"currency"`
	Status      ListingStatus `json:"status"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
	Agent       *AgentInfo    `json:"agent,omitempty"`
	DateScraped time.Time     `json:"date_scraped"`
	DateUpdated *time.Time    `json:"date_updated,omitempty"`
}

// Property is the core entity aggregating listings across sites.
type Property struct {
	ID           string           `json:"id"`
	Address      Address          `json:"address"`
	PropertyType PropertyType     `json:"property_type"`
	Bedrooms     int              `json:"bedrooms,omitempty"`
	Bathrooms    int              `json:"bathrooms,omitempty"`
	AreaSqm      float64          `json:"area_sqm,omitempty"`
	EnergyRating string           `json:"energy_rating,omitempty"`
	Listings     []WebsiteListing `json:"listings"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ActiveListings returns the listings still marked active.
func (p *Property) ActiveListings() []WebsiteListing {
	out := make([]WebsiteListing, 0, len(p.Listings))
	for _, l := range p.Listings {
		if l.Status == StatusActive {
			out = append(out, l)
		}
	}
	return out
}

// PrimaryListing returns the first active listing, or nil.
func (p *Property) PrimaryListing() *WebsiteListing {
	for i := range p.Listings {
		if p.Listings[i].Status == StatusActive {
			return &p.Listings[i]
		}
	}
	return nil
}

// SearchFilters narrows a property search. Zero values mean "any".
type SearchFilters struct {
	City         string
	PropertyType PropertyType
	MinPrice     float64
	MaxPrice     float64
	MinBedrooms  int
	Website      WebsiteSource
}
