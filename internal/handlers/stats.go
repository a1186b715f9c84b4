package handlers

import (
	"net/http"

	"siyuan-recall/internal/contextutil"
)

// StatsHandler reports local index counters.
type StatsHandler struct {
	sidecar Sidecar
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(sidecar Sidecar) *StatsHandler {
	return &StatsHandler{sidecar: sidecar}
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	stats, err := h.sidecar.Stats(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read index stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to read index stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// SyncHandler triggers one incremental sync on demand.
type SyncHandler struct {
	sidecar Sidecar
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(sidecar Sidecar) *SyncHandler {
	return &SyncHandler{sidecar: sidecar}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	result, err := h.sidecar.SyncNow(ctx)
	if err != nil {
		logger.WarnContext(ctx, "on-demand sync rejected", "error", err)
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	logger.InfoContext(ctx, "on-demand sync finished",
		"indexed", result.Indexed, "deleted", result.Deleted,
		"skipped", result.Skipped, "failed", result.Failed)
	writeJSON(w, http.StatusOK, result)
}
