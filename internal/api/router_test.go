package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestscout/nestscout/internal/api"
	"github.com/nestscout/nestscout/internal/api/models"
	"github.com/nestscout/nestscout/internal/auth"
	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/provider/resilience"
	"github.com/nestscout/nestscout/internal/routing"
)

// stubProvider returns a fixed 20-minute, 10 km route for every request.
type stubProvider struct{}

func (stubProvider) GetDirections(_ context.Context, _ routing.Request) (*routing.RouteResponse, error) {
	return &routing.RouteResponse{
		Kind:     routing.KindRegular,
		Provider: "stub",
		Regular: &routing.RegularRoute{
			Summary: &routing.RouteSummary{DurationSeconds: 1200, LengthMeters: 10000},
		},
	}, nil
}

func (stubProvider) GetTransitItinerary(_ context.Context, _ routing.Request) (*routing.RouteResponse, error) {
	return &routing.RouteResponse{
		Kind:     routing.KindTransit,
		Provider: "stub",
		Transit: &routing.TransitItinerary{
			Sections: []routing.TransitSection{
				{Type: routing.SectionTypeTransit, TravelSummary: routing.RouteSummary{DurationSeconds: 1200, LengthMeters: 10000}},
			},
		},
	}, nil
}

func (stubProvider) Name() string { return "stub" }

const pointsFixture = `{
	"interest_points": [
		{"id": "work", "name": "Work", "category": "work", "latitude": 53.3498, "longitude": -6.2603},
		{"id": "school", "name": "School", "category": "education", "latitude": 53.34, "longitude": -6.25, "default_transportation_mode": "publicTransport"}
	]
}`

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.nestscout.ie",
		Audience:   "nestscout-api",
	})
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zerolog.New(io.Discard)

	pointsPath := filepath.Join(t.TempDir(), "interest_points.json")
	require.NoError(t, os.WriteFile(pointsPath, []byte(pointsFixture), 0o600))

	points, err := interestpoint.NewRegistry(interestpoint.RegistryConfig{
		Path:   pointsPath,
		Logger: logger,
	})
	require.NoError(t, err)

	properties := property.NewService(property.ServiceConfig{
		Repository: property.NewInMemoryRepository(),
		Logger:     logger,
	})

	engine := prediction.NewEngine(prediction.EngineConfig{
		Provider: stubProvider{},
		Points:   points,
		Logger:   logger,
	})

	providers := resilience.NewRegistry()
	providers.RecordSuccess("stub")

	return api.NewRouter(api.RouterConfig{
		Version:        "test",
		BuildTime:      "2026-01-01T00:00:00Z",
		Logger:         logger,
		JWTService:     testJWTService(),
		Properties:     properties,
		InterestPoints: points,
		Predictions:    engine,
		Providers:      providers,
	})
}

// addAuthHeader adds a valid Bearer token for the given role.
func addAuthHeader(t *testing.T, req *http.Request, role string) {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("usr_testuser123", role)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatusRequiresAdmin(t *testing.T) {
	router := newTestRouter(t)

	// No token
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Non-admin token
	req = httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAuthHeader(t, req, "user")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Admin token
	req = httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAuthHeader(t, req, auth.RoleAdmin)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "stub", status.Providers[0].Provider)
}

func TestRouter_PropertyLifecycle(t *testing.T) {
	router := newTestRouter(t)

	input := property.Property{
		Address: property.Address{
			Street:  "168 Rutland Avenue",
			City:    "Dublin",
			Country: "Ireland",
		},
		PropertyType: property.TypeHouse,
		Bedrooms:     3,
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/properties", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Location"))

	var created property.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	// Get
	req = httptest.NewRequest(http.MethodGet, "/v1/properties/"+created.ID, http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// List
	req = httptest.NewRequest(http.MethodGet, "/v1/properties?limit=10", http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var listBody struct {
		Items []property.Property      `json:"items"`
		Meta  models.PagedResponseMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listBody))
	assert.Len(t, listBody.Items, 1)
	assert.Equal(t, 10, listBody.Meta.Limit)

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/v1/properties/"+created.ID, http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Gone
	req = httptest.NewRequest(http.MethodGet, "/v1/properties/"+created.ID, http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_PropertyValidation(t *testing.T) {
	router := newTestRouter(t)

	body, _ := json.Marshal(property.Property{})
	req := httptest.NewRequest(http.MethodPost, "/v1/properties", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.NotEmpty(t, problem.Errors)
}

func TestRouter_InterestPointsPublicRead(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/interest-points", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []interestpoint.InterestPoint `json:"items"`
		Count int                           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestRouter_InterestPointMutationRequiresAdmin(t *testing.T) {
	router := newTestRouter(t)

	point := interestpoint.InterestPoint{
		ID:        "gym",
		Name:      "Gym",
		Category:  "leisure",
		Latitude:  53.35,
		Longitude: -6.26,
	}
	body, _ := json.Marshal(point)

	// No token
	req := httptest.NewRequest(http.MethodPost, "/v1/interest-points", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Admin token
	req = httptest.NewRequest(http.MethodPost, "/v1/interest-points", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, auth.RoleAdmin)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Deactivate
	req = httptest.NewRequest(http.MethodPut, "/v1/interest-points/gym/active", bytes.NewReader([]byte(`{"active": false}`)))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, auth.RoleAdmin)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var updated interestpoint.InterestPoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.False(t, updated.IsActive)
}

func TestRouter_InterestPointExportImport(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/interest-points/export", http.NoBody)
	addAuthHeader(t, req, auth.RoleAdmin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "interest-points.json")

	exported := w.Body.Bytes()

	req = httptest.NewRequest(http.MethodPost, "/v1/interest-points/import", bytes.NewReader(exported))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req, auth.RoleAdmin)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Imported int `json:"imported"`
		Total    int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Imported)
}

func TestRouter_PredictionCompute(t *testing.T) {
	router := newTestRouter(t)

	input := models.PredictionComputeRequest{
		Origin:      models.Point{Lat: 53.3268, Lon: -6.2936},
		Destination: models.Point{Lat: 53.3498, Lon: -6.2603},
		Mode:        "driving",
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/predictions:compute", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var pred prediction.TravelPrediction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pred))
	assert.Equal(t, 20, pred.DurationMinutes)
	assert.Equal(t, 10.0, pred.DistanceKm)
	assert.Equal(t, "09:00", pred.DepartureTime)
}

func TestRouter_PredictionComputeInvalidMode(t *testing.T) {
	router := newTestRouter(t)

	body := []byte(`{"origin":{"lat":1,"lon":1},"destination":{"lat":2,"lon":2},"mode":"teleport"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/predictions:compute", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_PredictionBatch(t *testing.T) {
	router := newTestRouter(t)

	input := models.PredictionBatchRequest{
		Properties: []models.BatchPropertyInput{
			{ID: "prop_1", Location: models.Point{Lat: 53.3268, Lon: -6.2936}},
			{ID: "prop_2", Location: models.Point{Lat: 53.34, Lon: -6.3}},
		},
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/predictions:batch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Results []prediction.BatchResult `json:"results"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Results, 2)
	// 2 active points per property
	assert.Equal(t, 2, result.Results[0].TotalPredictions)
}

func TestRouter_PredictionForPropertyWithoutCoordinates(t *testing.T) {
	router := newTestRouter(t)

	input := property.Property{
		Address: property.Address{
			Street:  "1 Main Street",
			City:    "Dublin",
			Country: "Ireland",
		},
		PropertyType: property.TypeApartment,
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/properties", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created property.Property
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	req = httptest.NewRequest(http.MethodPost, "/v1/properties/"+created.ID+"/predictions:compute", http.NoBody)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
