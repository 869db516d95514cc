package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the health endpoints.
type Handler struct {
	monitor *Monitor
}

// NewHandler creates a new health handler.
func NewHandler(monitor *Monitor) *Handler {
	return &Handler{monitor: monitor}
}

// HandleHealth reports the aggregate status. Critical maps to 503.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := Worst(h.monitor.CheckHealth(r.Context()))

	response := map[string]string{"status": string(status)}
	w.Header().Set("Content-Type", "application/json")

	if status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(response)
}

// HandleDetailed reports every component.
func (h *Handler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	components := h.monitor.CheckHealth(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthReport{
		SystemStatus: Worst(components),
		Components:   components,
	})
}
