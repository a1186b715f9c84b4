package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"siyuan-recall/internal/plugin"
	"siyuan-recall/internal/siyuan"
	"siyuan-recall/internal/storage"
	syncsvc "siyuan-recall/internal/sync"
)

// fakeSidecar records calls and returns canned results.
type fakeSidecar struct {
	hookResult *plugin.HookResult
	health     siyuan.HealthStatus
	stats      *storage.Stats
	statsErr   error
	syncResult *syncsvc.Result
	syncErr    error

	prompts   []string
	agentEnds int
	resets    int
}

func (f *fakeSidecar) BeforeAgentStart(_ context.Context, prompt string) *plugin.HookResult {
	f.prompts = append(f.prompts, prompt)
	if f.hookResult != nil {
		return f.hookResult
	}
	return &plugin.HookResult{}
}

func (f *fakeSidecar) AgentEnd(context.Context, string, bool) { f.agentEnds++ }
func (f *fakeSidecar) CommandNew(context.Context)             { f.resets++ }

func (f *fakeSidecar) Health(context.Context) siyuan.HealthStatus { return f.health }

func (f *fakeSidecar) Stats(context.Context) (*storage.Stats, error) {
	return f.stats, f.statsErr
}

func (f *fakeSidecar) SyncNow(context.Context) (*syncsvc.Result, error) {
	return f.syncResult, f.syncErr
}

func TestBeforeAgentStartHandlerReturnsContext(t *testing.T) {
	sidecar := &fakeSidecar{
		hookResult: &plugin.HookResult{
			PrependContext: "===== RECALLED NOTES BEGIN =====\n...",
			Reason:         "intent_query",
		},
	}
	h := NewBeforeAgentStartHandler(sidecar)

	req := httptest.NewRequest(http.MethodPost, "/hooks/before-agent-start",
		strings.NewReader(`{"prompt":"how does raft work","sessionId":"s1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res plugin.HookResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if !strings.Contains(res.PrependContext, "RECALLED NOTES BEGIN") {
		t.Errorf("prependContext = %q, want recalled context", res.PrependContext)
	}
	if len(sidecar.prompts) != 1 || sidecar.prompts[0] != "how does raft work" {
		t.Errorf("sidecar saw prompts %v", sidecar.prompts)
	}
}

func TestBeforeAgentStartHandlerSkippedResult(t *testing.T) {
	sidecar := &fakeSidecar{
		hookResult: &plugin.HookResult{Skipped: true, Reason: "too_short"},
	}
	h := NewBeforeAgentStartHandler(sidecar)

	req := httptest.NewRequest(http.MethodPost, "/hooks/before-agent-start",
		strings.NewReader(`{"prompt":"hi"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when recall skips", rec.Code)
	}
	var res plugin.HookResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if !res.Skipped || res.Reason != "too_short" {
		t.Errorf("result = %+v, want skipped too_short", res)
	}
}

func TestBeforeAgentStartHandlerRejectsBadJSON(t *testing.T) {
	h := NewBeforeAgentStartHandler(&fakeSidecar{})

	req := httptest.NewRequest(http.MethodPost, "/hooks/before-agent-start",
		strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAgentEndHandler(t *testing.T) {
	sidecar := &fakeSidecar{}
	h := NewAgentEndHandler(sidecar)

	req := httptest.NewRequest(http.MethodPost, "/hooks/agent-end",
		strings.NewReader(`{"sessionId":"s1","success":true}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if sidecar.agentEnds != 1 {
		t.Errorf("agentEnds = %d, want 1", sidecar.agentEnds)
	}
}

func TestCommandNewHandler(t *testing.T) {
	sidecar := &fakeSidecar{}
	h := NewCommandNewHandler(sidecar)

	req := httptest.NewRequest(http.MethodPost, "/hooks/command-new", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if sidecar.resets != 1 {
		t.Errorf("resets = %d, want 1", sidecar.resets)
	}
}

func TestSyncHandlerConflictWhileBusy(t *testing.T) {
	sidecar := &fakeSidecar{syncErr: fmt.Errorf("sync already running")}
	h := NewSyncHandler(sidecar)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSyncHandlerReturnsCounters(t *testing.T) {
	sidecar := &fakeSidecar{syncResult: &syncsvc.Result{Indexed: 3, Deleted: 1}}
	h := NewSyncHandler(sidecar)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res syncsvc.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if res.Indexed != 3 || res.Deleted != 1 {
		t.Errorf("result = %+v, want indexed 3 deleted 1", res)
	}
}
