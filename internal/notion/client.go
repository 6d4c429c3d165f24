// Package notion publishes property records, with their travel-time
// predictions, to a Notion database over the Notion REST API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/provider/resilience"
)

const (
	// ProviderName identifies the Notion integration for health tracking.
	ProviderName = "notion"

	// DefaultBaseURL is the Notion REST API base URL.
	DefaultBaseURL = "https://api.notion.com/v1"

	// notionVersion pins the API revision. Notion rejects requests
	// without this header.
	notionVersion = "2022-06-28"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second
)

// Predefined errors for Notion operations.
var (
	// ErrMissingToken is returned when no integration token is configured.
	ErrMissingToken = errors.New("notion integration token is required")

	// ErrMissingDatabaseID is returned when no database ID is configured.
	ErrMissingDatabaseID = errors.New("notion database ID is required")
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Notion client.
type ClientConfig struct {
	// Token is the Notion integration token (required).
	Token string

	// DatabaseID is the target database (required).
	DatabaseID string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 15s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Notion REST API client scoped to one database.
type Client struct {
	token      string
	databaseID string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a Notion client. Token and database ID are required.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.DatabaseID == "" {
		return nil, ErrMissingDatabaseID
	}

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
		token:      cfg.Token,
		databaseID: cfg.DatabaseID,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}, nil
}

// SaveResult describes the Notion page created for a property.
type SaveResult struct {
	PageID  string `json:"page_id"`
	PageURL string `json:"page_url"`
}

// SaveProperty creates a page for the property in the configured
// database.
func (c *Client) SaveProperty(ctx context.Context, in PageInput) (*SaveResult, error) {
	if in.Property == nil {
		return nil, errors.New("property is required")
	}

	page := buildPageRequest(c.databaseID, in)

	var created pageResponse
	if err := c.do(ctx, http.MethodPost, "/pages", page, &created); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("property_id", in.Property.ID).
		Str("page_id", created.ID).
		Msg("property saved to notion")

	return &SaveResult{PageID: created.ID, PageURL: created.URL}, nil
}

// CheckDatabase verifies the configured database exists and the token
// can reach it.
func (c *Client) CheckDatabase(ctx context.Context) error {
	var db databaseResponse
	return c.do(ctx, http.MethodGet, "/databases/"+c.databaseID, nil, &db)
}

// DatabaseInfo describes the configured database.
type DatabaseInfo struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Properties []string `json:"properties"`
}

// GetDatabaseInfo retrieves the configured database's metadata.
func (c *Client) GetDatabaseInfo(ctx context.Context) (*DatabaseInfo, error) {
	var db databaseResponse
	if err := c.do(ctx, http.MethodGet, "/databases/"+c.databaseID, nil, &db); err != nil {
		return nil, err
	}

	info := &DatabaseInfo{
		ID:    db.ID,
		URL:   db.URL,
		Title: "Untitled",
	}
	if len(db.Title) > 0 {
		info.Title = db.Title[0].PlainText
	}
	for name := range db.Properties {
		info.Properties = append(info.Properties, name)
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", notionVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) handleErrorResponse(status int, body []byte) error {
	var apiErr notionErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("notion API error (%d %s): %s", status, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("notion API error: status %d", status)
}

type pageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type databaseResponse struct {
	ID         string                     `json:"id"`
	URL        string                     `json:"url"`
	Title      []notionPlainText          `json:"title"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type notionPlainText struct {
	PlainText string `json:"plain_text"`
}

type notionErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
