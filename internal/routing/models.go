// Package routing provides travel-time route computation against an
// external routing provider, covering point-to-point directions and
// multi-leg public-transit itineraries.
package routing

import (
	"context"
	"errors"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetDirections retrieves a point-to-point route for every mode
	// except public transport. The response carries the Regular tag.
	GetDirections(ctx context.Context, req Request) (*RouteResponse, error)
	// GetTransitItinerary retrieves a public-transit itinerary. The
	// response carries the Transit tag.
	GetTransitItinerary(ctx context.Context, req Request) (*RouteResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// TransportMode represents a mode of transport an interest point can be
// reached by. The set is closed; ToWire is exhaustive over it.
type TransportMode string

const (
	ModeDriving         TransportMode = "driving"
	ModeWalking         TransportMode = "walking"
	ModePublicTransport TransportMode = "publicTransport"
	ModeBicycling       TransportMode = "bicycling"
	ModeTruck           TransportMode = "truck"
	ModeTaxi            TransportMode = "taxi"
	ModeBus             TransportMode = "bus"
	ModeTrain           TransportMode = "train"
	ModeSubway          TransportMode = "subway"
	ModeTram            TransportMode = "tram"
	ModeFerry           TransportMode = "ferry"
)

// AllModes lists every supported transport mode.
func AllModes() []TransportMode {
	return []TransportMode{
		ModeDriving, ModeWalking, ModePublicTransport, ModeBicycling,
		ModeTruck, ModeTaxi, ModeBus, ModeTrain, ModeSubway, ModeTram,
		ModeFerry,
	}
}

// IsValid reports whether m is one of the supported modes.
func (m TransportMode) IsValid() bool {
	for _, known := range AllModes() {
		if m == known {
			return true
		}
	}
	return false
}

// ToWire maps a transport mode onto the provider wire-format string.
// Unknown modes fall back to "car", matching the provider's own default.
func (m TransportMode) ToWire() string {
	switch m {
	case ModeDriving:
		return "car"
	case ModeWalking:
		return "pedestrian"
	case ModePublicTransport:
		return "publicTransport"
	case ModeBicycling:
		return "bicycle"
	case ModeTruck:
		return "truck"
	case ModeTaxi:
		return "taxi"
	case ModeBus:
		return "bus"
	case ModeTrain:
		return "train"
	case ModeSubway:
		return "subway"
	case ModeTram:
		return "tram"
	case ModeFerry:
		return "ferry"
	default:
		return "car"
	}
}

// Coordinate represents a geographic point in WGS84 degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinate is within valid ranges.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return ErrInvalidCoordinates
	}
	if c.Lon < -180 || c.Lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Request is the request for computing a route between two points.
type Request struct {
	Origin      Coordinate
	Destination Coordinate
	Mode        TransportMode

	// Departure is the intended departure time in ISO-8601, e.g.
	// "2025-09-05T09:00:00". When empty the provider assumes "now";
	// callers computing future predictions must always set it for
	// transit requests.
	Departure string
}

// ResponseKind tags which shape a RouteResponse carries. Extraction is
// selected purely by this tag, never by inspecting the payload.
type ResponseKind int

const (
	// KindRegular marks a point-to-point directions response.
	KindRegular ResponseKind = iota
	// KindTransit marks a multi-leg transit itinerary response.
	KindTransit
)

// RouteResponse is the tagged union returned by a Provider. Exactly one
// of Regular or Transit is populated, according to Kind.
type RouteResponse struct {
	Kind     ResponseKind
	Provider string

	// Regular is set when Kind == KindRegular. A nil Summary means the
	// provider returned a route without a summary block; extraction
	// must treat that as malformed rather than as a zero-length trip.
	Regular *RegularRoute

	// Transit is set when Kind == KindTransit.
	Transit *TransitItinerary
}

// RegularRoute is the first route of a directions response.
type RegularRoute struct {
	Summary *RouteSummary
}

// RouteSummary holds the provider's route totals.
type RouteSummary struct {
	DurationSeconds int
	LengthMeters    int
}

// TransitItinerary is the first itinerary of a transit response.
type TransitItinerary struct {
	Sections []TransitSection
}

// Section types reported by the transit endpoint.
const (
	SectionTypeTransit    = "transit"
	SectionTypePedestrian = "pedestrian"
)

// TransitSection is one homogeneous segment of a transit itinerary.
type TransitSection struct {
	Type          string
	TravelSummary RouteSummary
	Transport     SectionTransport
}

// SectionTransport describes the vehicle of a transit section. Fields
// may be empty when the provider omits them.
type SectionTransport struct {
	Mode string
	Name string
	Line string
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying sentinel error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
