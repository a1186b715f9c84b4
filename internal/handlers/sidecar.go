// Package handlers exposes the sidecar over HTTP: the hook endpoints the
// chat gateway calls on prompt events, plus health and index diagnostics.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"siyuan-recall/internal/plugin"
	"siyuan-recall/internal/siyuan"
	"siyuan-recall/internal/storage"
	syncsvc "siyuan-recall/internal/sync"
)

// Sidecar is the coordinator surface the HTTP layer depends on.
type Sidecar interface {
	BeforeAgentStart(ctx context.Context, prompt string) *plugin.HookResult
	AgentEnd(ctx context.Context, sessionID string, success bool)
	CommandNew(ctx context.Context)
	Health(ctx context.Context) siyuan.HealthStatus
	Stats(ctx context.Context) (*storage.Stats, error)
	SyncNow(ctx context.Context) (*syncsvc.Result, error)
}

// ErrorResponse is the JSON body for error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}
