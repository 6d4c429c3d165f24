package geocoding_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestscout/nestscout/internal/geocoding"
)

func newTestClient(baseURL string) *geocoding.Client {
	return geocoding.NewClient(geocoding.ClientConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "12 Abbey Street, Dublin, Ireland", q.Get("q"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "test-key", q.Get("apiKey"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{
					"title": "12 Abbey Street, Dublin",
					"position": {"lat": 53.3489, "lng": -6.2601}
				}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	coord, err := client.Geocode(context.Background(), "12 Abbey Street, Dublin, Ireland")
	require.NoError(t, err)
	assert.Equal(t, 53.3489, coord.Lat)
	assert.Equal(t, -6.2601, coord.Lon)
}

func TestClient_GeocodeNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Geocode(context.Background(), "nowhere at all")
	require.Error(t, err)
	assert.ErrorIs(t, err, geocoding.ErrNoResults)
}

func TestClient_GeocodeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Geocode(context.Background(), "12 Abbey Street")
	require.Error(t, err)
}

func TestFormatAddress(t *testing.T) {
	got := geocoding.FormatAddress("12 Abbey Street", "Dublin", "", "D01 X2Y3", "Ireland")
	assert.Equal(t, "12 Abbey Street, Dublin, D01 X2Y3, Ireland", got)

	assert.Equal(t, "", geocoding.FormatAddress("", ""))
}
