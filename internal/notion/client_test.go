package notion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/routing"
)

func sampleProperty() *property.Property {
	return &property.Property{
		ID: "prop_test1234",
		Address: property.Address{
			Street:     "168 Rutland Avenue",
			City:       "Dublin 12",
			County:     "Crumlin",
			PostalCode: "D12CT80",
			Country:    "Ireland",
		},
		PropertyType: property.TypeHouse,
		Bedrooms:     2,
		Bathrooms:    1,
		AreaSqm:      119,
		EnergyRating: "D1",
		Listings: []property.WebsiteListing{
			{
				Website:     property.SourceDaft,
				ListingID:   "6200303",
				ListingURL:  "https://www.daft.ie/for-sale/house/6200303",
				Price:       450000,
				Currency:    "EUR",
				Status:      property.StatusActive,
				Description: "Charming end of terrace home.",
			},
		},
		CreatedAt: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func samplePredictions() *prediction.PropertyPredictionSet {
	walkMin := 5
	walkKm := 0.4
	return &prediction.PropertyPredictionSet{
		PropertyID:     "prop_test1234",
		PredictionDate: "2025-09-05",
		Predictions: []prediction.TravelPrediction{
			{
				InterestPointID: "work",
				Mode:            routing.ModeDriving,
				DurationMinutes: 25,
				DistanceKm:      12.5,
				PredictionDate:  "2025-09-05",
				DepartureTime:   "09:00",
				ArrivalTime:     "09:25",
			},
			{
				InterestPointID:        "school",
				Mode:                   routing.ModePublicTransport,
				DurationMinutes:        20,
				DistanceKm:             5,
				PredictionDate:         "2025-09-05",
				DepartureTime:          "09:00",
				ArrivalTime:            "09:20",
				TotalWalkingMinutes:    &walkMin,
				TotalWalkingDistanceKm: &walkKm,
			},
		},
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		Token:      "secret-token",
		DatabaseID: "db-123",
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(ClientConfig{DatabaseID: "db-123"})
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewClient(ClientConfig{Token: "secret"})
	assert.ErrorIs(t, err, ErrMissingDatabaseID)
}

func TestSaveProperty(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/pages", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, notionVersion, r.Header.Get("Notion-Version"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "page-abc", "url": "https://notion.so/page-abc"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	result, err := c.SaveProperty(context.Background(), PageInput{
		Property:    sampleProperty(),
		Predictions: samplePredictions(),
		PointNames:  map[string]string{"work": "Work Office"},
	})
	require.NoError(t, err)
	assert.Equal(t, "page-abc", result.PageID)
	assert.Equal(t, "https://notion.so/page-abc", result.PageURL)

	parent := captured["parent"].(map[string]any)
	assert.Equal(t, "db-123", parent["database_id"])

	props := captured["properties"].(map[string]any)
	title := props["Name"].(map[string]any)["title"].([]any)
	titleText := title[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	assert.Equal(t, "🏠 House - 168 Rutland Avenue, Dublin 12, Crumlin, D12CT80", titleText)

	assert.Contains(t, props, "Energy Rating")
	assert.Contains(t, props, "County")

	children := captured["children"].([]any)
	var lines []string
	for _, child := range children {
		block := child.(map[string]any)
		var body map[string]any
		switch block["type"] {
		case "paragraph":
			body = block["paragraph"].(map[string]any)
		case "heading_2":
			body = block["heading_2"].(map[string]any)
		}
		rich := body["rich_text"].([]any)
		lines = append(lines, rich[0].(map[string]any)["text"].(map[string]any)["content"].(string))
	}

	assert.Contains(t, lines, "Charming end of terrace home.")
	assert.Contains(t, lines, "Listings")
	assert.Contains(t, lines, "• Daft: EUR 450,000 - active - https://www.daft.ie/for-sale/house/6200303")
	assert.Contains(t, lines, "Travel Times (Friday 2025-09-05, 09:00)")
	assert.Contains(t, lines, "• Work Office (driving): 25min, 12.5 km, arrives 09:25")
	assert.Contains(t, lines, "• school (publicTransport): 20min, 5.0 km, arrives 09:20 (5min walking, 0.400 km)")
}

func TestSavePropertyAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": "validation_error", "message": "Name is not a property that exists"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	_, err := c.SaveProperty(context.Background(), PageInput{Property: sampleProperty()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation_error")
	assert.Contains(t, err.Error(), "Name is not a property that exists")
}

func TestCheckDatabase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/databases/db-123", r.URL.Path)
		w.Write([]byte(`{"id": "db-123", "url": "https://notion.so/db-123", "title": [], "properties": {}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	assert.NoError(t, c.CheckDatabase(context.Background()))
}

func TestCheckDatabaseUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code": "object_not_found", "message": "Could not find database"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	assert.Error(t, c.CheckDatabase(context.Background()))
}

func TestGetDatabaseInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": "db-123",
			"url": "https://notion.so/db-123",
			"title": [{"plain_text": "Properties"}],
			"properties": {"Name": {}, "Price": {}}
		}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	info, err := c.GetDatabaseInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "db-123", info.ID)
	assert.Equal(t, "Properties", info.Title)
	assert.ElementsMatch(t, []string{"Name", "Price"}, info.Properties)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "EUR 450,000", formatPrice(450000, "EUR"))
	assert.Equal(t, "EUR 1,250,000", formatPrice(1250000, ""))
	assert.Equal(t, "GBP 950", formatPrice(950, "GBP"))
}

func TestFormatListingsInfo(t *testing.T) {
	assert.Equal(t, "No listings", formatListingsInfo(nil))

	withdrawn := []property.WebsiteListing{{Website: property.SourceDaft, Price: 100, Status: property.StatusWithdrawn}}
	assert.Equal(t, "No active listings", formatListingsInfo(withdrawn))

	active := []property.WebsiteListing{
		{Website: property.SourceDaft, Price: 450000, Currency: "EUR", Status: property.StatusActive},
		{Website: property.SourceMyHome, Price: 455000, Currency: "EUR", Status: property.StatusActive},
	}
	assert.Equal(t, "daft: EUR 450,000 | myhome: EUR 455,000", formatListingsInfo(active))
}
