// Package interestpoint manages the configured set of destinations
// that property commute predictions are computed against.
package interestpoint

import (
	"errors"

	"github.com/nestscout/nestscout/internal/routing"
)

// Predefined errors for registry operations.
var (
	// ErrNotFound is returned when no interest point has the given ID.
	ErrNotFound = errors.New("interest point not found")
	// ErrDuplicateID is returned when adding a point whose ID is taken.
	ErrDuplicateID = errors.New("interest point ID already exists")
	// ErrInvalidPoint is returned when a point fails validation.
	ErrInvalidPoint = errors.New("invalid interest point")
)

// InterestPoint is a fixed named destination, e.g. a workplace or a
// school, with coordinates and a preferred transportation mode. Points
// are read-only to the prediction engine; only the registry's own CRUD
// operations mutate them.
type InterestPoint struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Address     string   `json:"address,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsActive    bool     `json:"is_active"`

	// DefaultMode is the transportation mode used for every prediction
	// to this point. Callers never override it per request.
	DefaultMode routing.TransportMode `json:"default_transportation_mode"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Location returns the point's coordinates.
func (p InterestPoint) Location() routing.Coordinate {
	return routing.Coordinate{Lat: p.Latitude, Lon: p.Longitude}
}

// Validate checks the fields required of every registry entry.
func (p InterestPoint) Validate() error {
	if p.ID == "" || p.Name == "" {
		return ErrInvalidPoint
	}
	if err := p.Location().Validate(); err != nil {
		return ErrInvalidPoint
	}
	if p.DefaultMode != "" && !p.DefaultMode.IsValid() {
		return ErrInvalidPoint
	}
	return nil
}

// configDocument is the on-disk registry shape.
type configDocument struct {
	Settings       configSettings  `json:"settings"`
	InterestPoints []InterestPoint `json:"interest_points"`
}

// configSettings carries registry-wide defaults persisted alongside
// the points.
type configSettings struct {
	DefaultTransportationMode routing.TransportMode `json:"default_transportation_mode"`
	DefaultDepartureTime      string                `json:"default_departure_time"`
	DefaultDepartureDays      []string              `json:"default_departure_days"`
}

func defaultSettings() configSettings {
	return configSettings{
		DefaultTransportationMode: routing.ModeDriving,
		DefaultDepartureTime:      "09:00",
		DefaultDepartureDays:      []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
	}
}
