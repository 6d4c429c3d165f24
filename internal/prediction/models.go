// Package prediction computes travel-time predictions from a property
// to a set of interest points for a fixed future target: the next
// Friday at 09:00. Provider responses come in two shapes, point-to-point
// routes and multi-leg transit itineraries, and both are normalized
// into the same TravelPrediction structure.
package prediction

import (
	"errors"
	"time"

	"github.com/nestscout/nestscout/internal/routing"
)

// Sentinel errors for prediction extraction.
var (
	// ErrMalformedRoute indicates the provider returned a route whose
	// summary block is missing entirely. Extraction fails rather than
	// reporting a zero-duration trip.
	ErrMalformedRoute = errors.New("malformed route: missing summary")
)

// Defaults applied by extraction when a transit section omits its
// transport details.
const (
	unknownTransportMode = "unknown"
	unknownTransportName = "Unknown"
	unknownTransportLine = "Unknown"
)

// RouteLeg is one homogeneous segment of a transit itinerary: a single
// vehicle ride or a single walking stretch.
type RouteLeg struct {
	Type            string `json:"type"`
	DurationMinutes int    `json:"duration_minutes"`
	DistanceMeters  int    `json:"distance_m"`

	// Mode, Name and Line describe the vehicle for transit legs.
	// Walking legs carry Mode "walking" and Name "Walking".
	Mode string `json:"mode,omitempty"`
	Name string `json:"name,omitempty"`
	Line string `json:"line,omitempty"`
}

// TravelPrediction is the normalized result of one origin to interest
// point calculation.
type TravelPrediction struct {
	Origin          routing.Coordinate    `json:"origin"`
	InterestPointID string                `json:"interest_point_id"`
	Mode            routing.TransportMode `json:"transport_mode"`
	DistanceKm      float64               `json:"distance_km"`
	DurationMinutes int                   `json:"duration_minutes"`

	// PredictionDate is the resolved target Friday, "YYYY-MM-DD".
	PredictionDate string `json:"prediction_date"`
	// DepartureTime is always "09:00".
	DepartureTime string `json:"departure_time"`
	// ArrivalTime is departure plus total duration, "HH:MM".
	ArrivalTime string `json:"arrival_time"`

	// Legs is populated only for public transport predictions, in
	// itinerary order.
	Legs []RouteLeg `json:"legs,omitempty"`

	// Walking totals across pedestrian legs, transit predictions only.
	TotalWalkingMinutes    *int     `json:"total_walking_minutes,omitempty"`
	TotalWalkingDistanceKm *float64 `json:"total_walking_distance_km,omitempty"`
}

// PropertyPredictionSet aggregates the predictions from one property to
// every active interest point. Failed pairs are omitted from
// Predictions and counted in FailedPairs.
type PropertyPredictionSet struct {
	PropertyID      string             `json:"property_id"`
	PropertyAddress string             `json:"property_address,omitempty"`
	Location        routing.Coordinate `json:"location"`
	PredictionDate  string             `json:"prediction_date"`
	Predictions     []TravelPrediction `json:"predictions"`
	FailedPairs     int                `json:"failed_pairs"`
	CalculatedAt    time.Time          `json:"calculated_at"`
}

// BatchProperty identifies one property in a batch prediction request.
type BatchProperty struct {
	ID       string             `json:"id"`
	Location routing.Coordinate `json:"location"`
}

// BatchResult is the per-property outcome of a batch prediction run.
type BatchResult struct {
	PropertyID       string             `json:"property_id"`
	Predictions      []TravelPrediction `json:"predictions"`
	TotalPredictions int                `json:"total_predictions"`
	FailedPairs      int                `json:"failed_pairs"`
}
