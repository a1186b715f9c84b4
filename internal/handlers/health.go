package handlers

import (
	"context"
	"net/http"
	"time"

	"siyuan-recall/internal/contextutil"
)

// HealthHandler reports the sidecar's view of the note store and the local
// index.
type HealthHandler struct {
	sidecar            Sidecar
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(sidecar Sidecar) *HealthHandler {
	return &HealthHandler{
		sidecar:            sidecar,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP answers 200 when the note store is reachable and the index is
// readable, 503 otherwise. The index being disabled is not an issue.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	hs := h.sidecar.Health(checkCtx)
	if hs.Available {
		checks["note_store"] = "ok"
	} else {
		logger.WarnContext(ctx, "note store health check failed", "error", hs.Err)
		checks["note_store"] = "error"
		issues = append(issues, "note_store_unavailable")
	}

	if _, err := h.sidecar.Stats(checkCtx); err != nil {
		logger.WarnContext(ctx, "index health check failed", "error", err)
		checks["index"] = "error"
		issues = append(issues, "index_unavailable")
	} else {
		checks["index"] = "ok"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
