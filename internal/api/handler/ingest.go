package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nestscout/nestscout/internal/api/models"
	"github.com/nestscout/nestscout/internal/api/response"
	"github.com/nestscout/nestscout/internal/ingest"
)

// Ingester runs the listing ingestion pipeline for one URL.
type Ingester interface {
	IngestURL(ctx context.Context, url string) (*ingest.Result, error)
}

// IngestHandler handles the listing URL ingestion endpoint.
type IngestHandler struct {
	pipeline Ingester
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(pipeline Ingester) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

// Ingest handles POST /v1/ingest - scrape a listing URL, store the
// property, geocode, predict travel times and publish.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		response.BadRequest(w, r, "url must be an absolute http(s) URL", []models.FieldError{
			{Field: "url", Message: "must start with http:// or https://"},
		})
		return
	}

	result, err := h.pipeline.IngestURL(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, ingest.ErrNoListing) {
			response.BadRequest(w, r, "no listing could be extracted from the URL", nil)
			return
		}
		response.BadRequest(w, r, "ingestion failed: "+err.Error(), nil)
		return
	}
	response.Created(w, r, "/v1/properties/"+result.Property.ID, result)
}
