package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nestscout/nestscout/internal/api/models"
	"github.com/nestscout/nestscout/internal/api/response"
	"github.com/nestscout/nestscout/internal/property"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// PropertyHandler handles property CRUD and search endpoints.
type PropertyHandler struct {
	properties *property.Service
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(properties *property.Service) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

// List handles GET /v1/properties - paginated listing, newest first.
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := property.ListOptions{
		Limit:  defaultPageLimit,
		Cursor: r.URL.Query().Get("cursor"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			response.BadRequest(w, r, "limit must be a positive integer", nil)
			return
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}
		opts.Limit = limit
	}

	result, err := h.properties.List(r.Context(), opts)
	if err != nil {
		response.InternalError(w, r, "failed to list properties")
		return
	}

	meta := models.PagedResponseMeta{Limit: opts.Limit}
	if result.NextCursor != "" {
		meta.NextCursor = &result.NextCursor
	}
	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"items": result.Items,
		"meta":  meta,
	})
}

// Get handles GET /v1/properties/{propertyId}.
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	response.JSON(w, r, http.StatusOK, p)
}

// Create handles POST /v1/properties.
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p property.Property
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if fieldErrors := validateProperty(&p); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	created, err := h.properties.Create(r.Context(), &p)
	if err != nil {
		response.InternalError(w, r, "failed to create property")
		return
	}
	response.Created(w, r, "/v1/properties/"+created.ID, created)
}

// Update handles PUT /v1/properties/{propertyId}.
func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "propertyId")

	var p property.Property
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if fieldErrors := validateProperty(&p); len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	updated, err := h.properties.Update(r.Context(), id, &p)
	if err != nil {
		if errors.Is(err, property.ErrPropertyNotFound) {
			response.NotFound(w, r, "property not found")
			return
		}
		response.InternalError(w, r, "failed to update property")
		return
	}
	response.JSON(w, r, http.StatusOK, updated)
}

// Delete handles DELETE /v1/properties/{propertyId}.
func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "propertyId")

	if err := h.properties.Delete(r.Context(), id); err != nil {
		if errors.Is(err, property.ErrPropertyNotFound) {
			response.NotFound(w, r, "property not found")
			return
		}
		response.InternalError(w, r, "failed to delete property")
		return
	}
	response.NoContent(w, r)
}

// Search handles GET /v1/properties/search with filter query parameters.
func (h *PropertyHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := property.SearchFilters{
		City:         q.Get("city"),
		PropertyType: property.PropertyType(q.Get("property_type")),
		Website:      property.WebsiteSource(q.Get("website")),
	}

	var fieldErrors []models.FieldError
	if raw := q.Get("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "min_price", Message: "must be a non-negative number"})
		} else {
			filters.MinPrice = v
		}
	}
	if raw := q.Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "max_price", Message: "must be a non-negative number"})
		} else {
			filters.MaxPrice = v
		}
	}
	if raw := q.Get("min_bedrooms"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "min_bedrooms", Message: "must be a non-negative integer"})
		} else {
			filters.MinBedrooms = v
		}
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	results, err := h.properties.Search(r.Context(), filters)
	if err != nil {
		response.InternalError(w, r, "failed to search properties")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"items": results,
		"count": len(results),
	})
}

func validateProperty(p *property.Property) []models.FieldError {
	var fieldErrors []models.FieldError
	if p.Address.Street == "" && p.Address.FormattedAddress == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "address", Message: "street or formatted_address is required"})
	}
	if p.Address.City == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "address.city", Message: "city is required"})
	}
	return fieldErrors
}
