// Package handler provides HTTP handlers for the NestScout API.
package handler

import (
	"net/http"
	"time"

	"github.com/nestscout/nestscout/internal/api/models"
	"github.com/nestscout/nestscout/internal/api/response"
	"github.com/nestscout/nestscout/internal/provider/resilience"
)

// ReadinessChecker reports whether a subsystem is ready to serve.
type ReadinessChecker func(r *http.Request) error

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	readiness map[string]ReadinessChecker
}

// NewOpsHandler creates a new OpsHandler. The registry and readiness
// checks are optional.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, readiness map[string]ReadinessChecker) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		readiness: readiness,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. A failing
// subsystem turns the response into a 503.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   time.Now().UTC(),
	}

	details := map[string]interface{}{}
	for name, check := range h.readiness {
		if err := check(r); err != nil {
			health.Status = models.HealthStatusFail
			details[name] = err.Error()
		} else {
			details[name] = "ok"
		}
	}
	if len(details) > 0 {
		health.Details = details
	}

	status := http.StatusOK
	if health.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       now,
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	for name, check := range h.readiness {
		sub := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := check(r); err != nil {
			sub.Status = models.HealthStatusFail
			status.Status = models.HealthStatusDegraded
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.registry != nil {
		for _, health := range h.registry.GetAllHealth() {
			p := models.ProviderStatus{
				Provider:      health.Name,
				Status:        models.HealthStatusOK,
				State:         health.State.String(),
				LastSuccessAt: health.LastSuccess,
				LastFailureAt: health.LastFailure,
			}
			if !health.Healthy() {
				p.Status = models.HealthStatusDegraded
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, p)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}
