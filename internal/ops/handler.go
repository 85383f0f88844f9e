// Package ops provides the operational HTTP surface of the agent: health
// probes and the metrics endpoint. The agent is driven by the filesystem,
// not by HTTP, so this is the whole surface.
package ops

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"jobhost/internal/health"
)

// Handler contains HTTP handlers for the operational endpoints.
type Handler struct {
	health *health.Checker
}

// NewHandler creates a new ops handler
func NewHandler(healthChecker *health.Checker) *Handler {
	return &Handler{
		health: healthChecker,
	}
}

// Livez handles GET /livez - liveness probe.
// Returns 200 if the process is alive. Does not check dependencies.
func (h *Handler) Livez(w http.ResponseWriter, r *http.Request) {
	response := h.health.Liveness(r.Context())
	h.writeJSON(w, http.StatusOK, response)
}

// Readyz handles GET /readyz - readiness probe.
// Returns 200 if the agent is ready to supervise jobs.
// Returns 503 if a dependency (executor backend, jobs root) is unavailable.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	response := h.health.Readiness(r.Context())

	status := http.StatusOK
	if !response.IsHealthy() {
		status = http.StatusServiceUnavailable
	}

	h.writeJSON(w, status, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
