// Package here provides a client for the HERE Routing v8 and HERE
// Public Transit v8 APIs.
package here

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/provider/resilience"
	"github.com/nestscout/nestscout/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "here"

	// DefaultRoutingBaseURL is the HERE Routing v8 base URL.
	DefaultRoutingBaseURL = "https://router.hereapi.com/v8"

	// DefaultTransitBaseURL is the HERE Public Transit v8 base URL.
	DefaultTransitBaseURL = "https://transit.router.hereapi.com/v8"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second
)

// Transit request tuning. Itineraries allow at most three transfers and
// at most 2km of walking at 1.4 m/s.
const (
	transitAlternatives  = "1"
	transitMaxChanges    = "3"
	transitMaxWalkMeters = "2000"
	transitWalkSpeedMps  = "1.4"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the HERE client.
type ClientConfig struct {
	// APIKey is the HERE API key (required).
	APIKey string

	// RoutingBaseURL is the directions API base URL (optional).
	RoutingBaseURL string

	// TransitBaseURL is the transit API base URL (optional).
	TransitBaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 30s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a HERE API client covering both routing endpoints.
type Client struct {
	apiKey         string
	routingBaseURL string
	transitBaseURL string
	httpClient     HTTPDoer
	logger         zerolog.Logger
}

// NewClient creates a new HERE client.
func NewClient(cfg ClientConfig) *Client {
	routingBaseURL := cfg.RoutingBaseURL
	if routingBaseURL == "" {
		routingBaseURL = DefaultRoutingBaseURL
	}

	transitBaseURL := cfg.TransitBaseURL
	if transitBaseURL == "" {
		transitBaseURL = DefaultTransitBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:         cfg.APIKey,
		routingBaseURL: routingBaseURL,
		transitBaseURL: transitBaseURL,
		httpClient:     httpClient,
		logger:         cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections retrieves a point-to-point route from the HERE Routing
// v8 API. The transport mode is translated to its wire form; public
// transport requests belong on GetTransitItinerary instead.
func (c *Client) GetDirections(ctx context.Context, req routing.Request) (*routing.RouteResponse, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("origin", formatCoordinate(req.Origin))
	params.Set("destination", formatCoordinate(req.Destination))
	params.Set("transportMode", req.Mode.ToWire())
	params.Set("return", "summary,travelSummary")
	params.Set("apiKey", c.apiKey)
	if req.Departure != "" {
		params.Set("departureTime", req.Departure)
	}

	c.logger.Debug().
		Str("mode", req.Mode.ToWire()).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting directions from HERE")

	var hereResp hereRoutesResponse
	if err := c.get(ctx, c.routingBaseURL+"/routes", params, &hereResp); err != nil {
		return nil, err
	}

	if len(hereResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	route := hereResp.Routes[0]
	regular := &routing.RegularRoute{}
	if route.Summary != nil {
		regular.Summary = &routing.RouteSummary{
			DurationSeconds: route.Summary.Duration,
			LengthMeters:    route.Summary.Length,
		}
	}

	return &routing.RouteResponse{
		Kind:     routing.KindRegular,
		Provider: ProviderName,
		Regular:  regular,
	}, nil
}

// GetTransitItinerary retrieves a multi-leg public-transit itinerary
// from the HERE Public Transit v8 API.
func (c *Client) GetTransitItinerary(ctx context.Context, req routing.Request) (*routing.RouteResponse, error) {
	if err := c.validateRequest(req); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("origin", formatCoordinate(req.Origin))
	params.Set("destination", formatCoordinate(req.Destination))
	params.Set("return", "travelSummary")
	params.Set("alternatives", transitAlternatives)
	params.Set("changes", transitMaxChanges)
	params.Set("pedestrian[maxDistance]", transitMaxWalkMeters)
	params.Set("pedestrian[speed]", transitWalkSpeedMps)
	params.Set("apiKey", c.apiKey)
	if req.Departure != "" {
		params.Set("departureTime", req.Departure)
	}

	c.logger.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lon", req.Origin.Lon).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lon", req.Destination.Lon).
		Msg("requesting transit itinerary from HERE")

	var hereResp hereRoutesResponse
	if err := c.get(ctx, c.transitBaseURL+"/routes", params, &hereResp); err != nil {
		return nil, err
	}

	if len(hereResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no transit itinerary found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	route := hereResp.Routes[0]
	itinerary := &routing.TransitItinerary{
		Sections: make([]routing.TransitSection, 0, len(route.Sections)),
	}
	for _, section := range route.Sections {
		converted := routing.TransitSection{
			Type: section.Type,
		}
		if section.TravelSummary != nil {
			converted.TravelSummary = routing.RouteSummary{
				DurationSeconds: section.TravelSummary.Duration,
				LengthMeters:    section.TravelSummary.Length,
			}
		}
		if section.Transport != nil {
			converted.Transport = routing.SectionTransport{
				Mode: section.Transport.Mode,
				Name: section.Transport.Name,
				Line: section.Transport.Line,
			}
		}
		itinerary.Sections = append(itinerary.Sections, converted)
	}

	return &routing.RouteResponse{
		Kind:     routing.KindTransit,
		Provider: ProviderName,
		Transit:  itinerary,
	}, nil
}

// get executes a GET request against the given endpoint and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return c.handleErrorResponse(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// handleErrorResponse maps HERE error responses to domain errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var hereErr hereErrorResponse
	if err := json.Unmarshal(body, &hereErr); err != nil {
		hereErr.Title = fmt.Sprintf("routing provider returned status %d", statusCode)
	}

	message := hereErr.Cause
	if message == "" {
		message = hereErr.Title
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "FORBIDDEN",
			Message:  "API access denied - check API key configuration",
			Err:      routing.ErrProviderUnavailable,
		}
	case http.StatusBadRequest:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  message,
			Err:      routing.ErrInvalidCoordinates,
		}
	default:
		if statusCode >= 500 {
			return &routing.Error{
				Provider: ProviderName,
				Code:     fmt.Sprintf("SERVER_%d", statusCode),
				Message:  "routing provider is temporarily unavailable",
				Err:      routing.ErrProviderUnavailable,
			}
		}
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  message,
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

func (c *Client) validateRequest(req routing.Request) error {
	if err := req.Origin.Validate(); err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	return nil
}

// formatCoordinate renders a coordinate as "lat,lng" for query params.
func formatCoordinate(c routing.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lon, 'f', -1, 64)
}
