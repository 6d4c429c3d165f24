// Package geocoding resolves free-text addresses to coordinates via
// the HERE Geocoding API.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/provider/resilience"
	"github.com/nestscout/nestscout/internal/routing"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "here-geocoding"

	// DefaultBaseURL is the HERE Geocoding API base URL.
	DefaultBaseURL = "https://geocode.search.hereapi.com/v1"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second
)

// Predefined errors for geocoding operations.
var (
	// ErrNoResults is returned when the address resolves to nothing.
	ErrNoResults = errors.New("no geocoding results for address")
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	// APIKey is the HERE API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a HERE Geocoding API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
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
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Geocode resolves a free-text address to coordinates, taking the
// single best match.
func (c *Client) Geocode(ctx context.Context, address string) (routing.Coordinate, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("limit", "1")
	params.Set("apiKey", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/geocode?"+params.Encode(), nil)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().Str("address", address).Msg("geocoding address")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return routing.Coordinate{}, fmt.Errorf("geocoding provider returned status %d", resp.StatusCode)
	}

	var geocodeResp geocodeResponse
	if err := json.Unmarshal(body, &geocodeResp); err != nil {
		return routing.Coordinate{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(geocodeResp.Items) == 0 {
		return routing.Coordinate{}, ErrNoResults
	}

	position := geocodeResp.Items[0].Position
	coord := routing.Coordinate{Lat: position.Lat, Lon: position.Lng}
	if err := coord.Validate(); err != nil {
		return routing.Coordinate{}, fmt.Errorf("geocoding result: %w", err)
	}

	c.logger.Debug().
		Str("address", address).
		Float64("lat", coord.Lat).
		Float64("lon", coord.Lon).
		Msg("geocoded address")
	return coord, nil
}

// FormatAddress joins the non-empty address parts into the free-text
// query form the geocoder expects.
func FormatAddress(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

// geocodeResponse represents the HERE geocoding response.
type geocodeResponse struct {
	Items []geocodeItem `json:"items"`
}

type geocodeItem struct {
	Title    string          `json:"title,omitempty"`
	Position geocodePosition `json:"position"`
}

type geocodePosition struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
