package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nestscout/nestscout/internal/api/response"
	"github.com/nestscout/nestscout/internal/interestpoint"
)

// maxImportSize caps the interest point import payload at 1 MiB.
const maxImportSize = 1 << 20

// InterestPointHandler handles interest point management endpoints.
type InterestPointHandler struct {
	points *interestpoint.Registry
}

// NewInterestPointHandler creates a new InterestPointHandler.
func NewInterestPointHandler(points *interestpoint.Registry) *InterestPointHandler {
	return &InterestPointHandler{points: points}
}

// List handles GET /v1/interest-points. Supports optional category and
// active query filters.
func (h *InterestPointHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var items []interestpoint.InterestPoint
	switch {
	case q.Get("category") != "":
		items = h.points.GetByCategory(q.Get("category"))
	case q.Get("active") == "true":
		items = h.points.ListActive()
	default:
		items = h.points.All()
	}

	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Get handles GET /v1/interest-points/{pointId}.
func (h *InterestPointHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pointId")

	point, err := h.points.GetByID(id)
	if err != nil {
		response.NotFound(w, r, "interest point not found")
		return
	}
	response.JSON(w, r, http.StatusOK, point)
}

// Create handles POST /v1/interest-points.
func (h *InterestPointHandler) Create(w http.ResponseWriter, r *http.Request) {
	var point interestpoint.InterestPoint
	if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if err := h.points.Add(point); err != nil {
		switch {
		case errors.Is(err, interestpoint.ErrDuplicateID):
			response.Conflict(w, r, "interest point ID already exists")
		case errors.Is(err, interestpoint.ErrInvalidPoint):
			response.BadRequest(w, r, err.Error(), nil)
		default:
			response.InternalError(w, r, "failed to create interest point")
		}
		return
	}
	response.Created(w, r, "/v1/interest-points/"+point.ID, point)
}

// Update handles PUT /v1/interest-points/{pointId}.
func (h *InterestPointHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pointId")

	var point interestpoint.InterestPoint
	if err := json.NewDecoder(r.Body).Decode(&point); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	if err := h.points.Update(id, point); err != nil {
		switch {
		case errors.Is(err, interestpoint.ErrNotFound):
			response.NotFound(w, r, "interest point not found")
		case errors.Is(err, interestpoint.ErrInvalidPoint):
			response.BadRequest(w, r, err.Error(), nil)
		default:
			response.InternalError(w, r, "failed to update interest point")
		}
		return
	}

	updated, err := h.points.GetByID(id)
	if err != nil {
		response.InternalError(w, r, "failed to load updated interest point")
		return
	}
	response.JSON(w, r, http.StatusOK, updated)
}

// Delete handles DELETE /v1/interest-points/{pointId}.
func (h *InterestPointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pointId")

	if err := h.points.Delete(id); err != nil {
		if errors.Is(err, interestpoint.ErrNotFound) {
			response.NotFound(w, r, "interest point not found")
			return
		}
		response.InternalError(w, r, "failed to delete interest point")
		return
	}
	response.NoContent(w, r)
}

// SetActive handles PUT /v1/interest-points/{pointId}/active with
// body {"active": bool}.
func (h *InterestPointHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "pointId")

	var body struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Active == nil {
		response.BadRequest(w, r, "body must contain an active boolean", nil)
		return
	}

	if err := h.points.SetActive(id, *body.Active); err != nil {
		if errors.Is(err, interestpoint.ErrNotFound) {
			response.NotFound(w, r, "interest point not found")
			return
		}
		response.InternalError(w, r, "failed to update interest point")
		return
	}

	point, err := h.points.GetByID(id)
	if err != nil {
		response.InternalError(w, r, "failed to load updated interest point")
		return
	}
	response.JSON(w, r, http.StatusOK, point)
}

// Export handles GET /v1/interest-points/export. Admin only.
func (h *InterestPointHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.points.Export()
	if err != nil {
		response.InternalError(w, r, "failed to export interest points")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="interest-points.json"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Import handles POST /v1/interest-points/import. Admin only. The body
// is the same JSON document Export produces.
func (h *InterestPointHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		response.BadRequest(w, r, "failed to read request body", nil)
		return
	}

	imported, err := h.points.Import(data)
	if err != nil {
		if errors.Is(err, interestpoint.ErrInvalidPoint) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		response.BadRequest(w, r, "invalid import document: "+err.Error(), nil)
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"imported": imported,
		"total":    len(h.points.All()),
	})
}
