package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nestscout/nestscout/internal/api/models"
	"github.com/nestscout/nestscout/internal/api/response"
	"github.com/nestscout/nestscout/internal/interestpoint"
	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/routing"
)

// maxBatchProperties caps a single batch compute request.
const maxBatchProperties = 50

// PredictionHandler handles travel time prediction endpoints.
type PredictionHandler struct {
	engine     *prediction.Engine
	properties *property.Service
	points     *interestpoint.Registry
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(engine *prediction.Engine, properties *property.Service, points *interestpoint.Registry) *PredictionHandler {
	return &PredictionHandler{
		engine:     engine,
		properties: properties,
		points:     points,
	}
}

// Compute handles POST /v1/predictions:compute - one origin/destination
// pair for the next Friday 09:00 departure.
func (h *PredictionHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	mode := routing.TransportMode(req.Mode)
	if req.Mode != "" && !mode.IsValid() {
		response.BadRequest(w, r, "unsupported transport mode: "+req.Mode, []models.FieldError{
			{Field: "mode", Message: "must be one of the supported transport modes"},
		})
		return
	}

	pred, err := h.engine.PredictOne(r.Context(),
		routing.Coordinate{Lat: req.Origin.Lat, Lon: req.Origin.Lon},
		routing.Coordinate{Lat: req.Destination.Lat, Lon: req.Destination.Lon},
		mode,
	)
	if err != nil {
		response.ServiceUnavailable(w, r, "routing provider unavailable")
		return
	}
	response.JSON(w, r, http.StatusOK, pred)
}

// ComputeForProperty handles POST /v1/properties/{propertyId}/predictions:compute.
// Computes predictions from the property to every active interest point.
func (h *PredictionHandler) ComputeForProperty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "propertyId")

	p, err := h.properties.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, property.ErrPropertyNotFound) {
			response.NotFound(w, r, "property not found")
			return
		}
		response.InternalError(w, r, "failed to get property")
		return
	}
	if !p.Address.HasCoordinates() {
		response.BadRequest(w, r, "property has no coordinates; geocode before computing predictions", nil)
		return
	}

	location := routing.Coordinate{Lat: *p.Address.Latitude, Lon: *p.Address.Longitude}
	set := h.engine.PredictForProperty(r.Context(), p.ID, location, p.Address.FormattedAddress)
	response.JSON(w, r, http.StatusOK, set)
}

// Batch handles POST /v1/predictions:batch - predictions from several
// properties to every active interest point. Per-pair failures are
// reported, not fatal.
func (h *PredictionHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if len(req.Properties) == 0 {
		response.BadRequest(w, r, "properties must not be empty", nil)
		return
	}
	if len(req.Properties) > maxBatchProperties {
		response.BadRequest(w, r, "too many properties in one batch", nil)
		return
	}

	properties := make([]prediction.BatchProperty, 0, len(req.Properties))
	for _, p := range req.Properties {
		properties = append(properties, prediction.BatchProperty{
			ID:       p.ID,
			Location: routing.Coordinate{Lat: p.Location.Lat, Lon: p.Location.Lon},
		})
	}

	results := h.engine.PredictBatch(r.Context(), properties, h.points.ListActive())
	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}
