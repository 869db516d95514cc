package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vietddude/explorer/internal/core/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to its status: validation 400, not found 404, dependency 503
// with Retry-After, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: requestID(r.Context())}

	var (
		verr *domain.ValidationError
		derr *domain.DependencyError
	)
	switch {
	case errors.As(err, &verr):
		resp.Field = verr.Field
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, resp)
	case errors.As(err, &derr):
		slog.ErrorContext(r.Context(), "Dependency failure", "path", r.URL.Path, "request_id", resp.RequestID, "error", err)
		if derr.Retryable() {
			w.Header().Set("Retry-After", "1")
		}
		resp.Error = "service temporarily unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "request_id", resp.RequestID, "error", err)
		resp.Error = "internal error"
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}
