package handlers

import (
	"encoding/json"
	"net/http"

	"siyuan-recall/internal/contextutil"
)

// BeforeAgentStartRequest is the prompt event payload from the gateway.
type BeforeAgentStartRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId,omitempty"`
}

// BeforeAgentStartHandler runs recall for a prompt event and returns the
// context to prepend, if any.
type BeforeAgentStartHandler struct {
	sidecar Sidecar
}

// NewBeforeAgentStartHandler creates a new BeforeAgentStartHandler.
func NewBeforeAgentStartHandler(sidecar Sidecar) *BeforeAgentStartHandler {
	return &BeforeAgentStartHandler{sidecar: sidecar}
}

func (h *BeforeAgentStartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req BeforeAgentStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// The hook never fails the gateway: internal problems degrade to an
	// empty result, so this always answers 200.
	res := h.sidecar.BeforeAgentStart(ctx, req.Prompt)
	writeJSON(w, http.StatusOK, res)
}

// AgentEndRequest is the conversation-finished event payload.
type AgentEndRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Success   bool   `json:"success"`
}

// AgentEndHandler acknowledges the end-of-conversation event.
type AgentEndHandler struct {
	sidecar Sidecar
}

// NewAgentEndHandler creates a new AgentEndHandler.
func NewAgentEndHandler(sidecar Sidecar) *AgentEndHandler {
	return &AgentEndHandler{sidecar: sidecar}
}

func (h *AgentEndHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AgentEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.sidecar.AgentEnd(ctx, req.SessionID, req.Success)
	w.WriteHeader(http.StatusNoContent)
}

// CommandNewHandler acknowledges the session-reset command.
type CommandNewHandler struct {
	sidecar Sidecar
}

// NewCommandNewHandler creates a new CommandNewHandler.
func NewCommandNewHandler(sidecar Sidecar) *CommandNewHandler {
	return &CommandNewHandler{sidecar: sidecar}
}

func (h *CommandNewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.sidecar.CommandNew(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
