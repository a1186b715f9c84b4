package plugin

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"siyuan-recall/internal/config"
	"siyuan-recall/internal/siyuan"
	"siyuan-recall/internal/siyuan/mocks"
	"siyuan-recall/internal/storage"
)

func newTestStore(t *testing.T) *storage.IndexRepo {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := storage.Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return storage.NewIndexRepo(db, dbPath, nil)
}

// newTestCoordinator wires the graph without Start so tests control the
// availability cache and the init barrier directly.
func newTestCoordinator(client siyuan.API, store storage.IndexStore, mutate func(*config.Config)) *Coordinator {
	cfg := config.Default()
	cfg.Index.Enabled = store != nil
	if mutate != nil {
		mutate(cfg)
	}
	c := New(cfg, client, store)
	close(c.ready)
	return c
}

func TestBeforeAgentStartEmptyPrompt(t *testing.T) {
	c := newTestCoordinator(nil, nil, nil)

	res := c.BeforeAgentStart(context.Background(), "   ")
	if !res.Skipped || res.Reason != "empty_prompt" {
		t.Errorf("BeforeAgentStart() = %+v, want empty_prompt skip", res)
	}
}

func TestBeforeAgentStartSkipsCommandsWithoutRemoteCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)
	// No expectations: any client call fails the test.
	c := newTestCoordinator(client, nil, nil)

	res := c.BeforeAgentStart(context.Background(), "/help please show commands")
	if !res.Skipped {
		t.Fatal("BeforeAgentStart() skipped = false, want true for slash command")
	}
	if !strings.HasPrefix(res.Reason, "intent_") {
		t.Errorf("BeforeAgentStart() reason = %q, want intent_* prefix", res.Reason)
	}
	if res.PrependContext != "" {
		t.Error("skipped result must not carry context")
	}
}

func TestBeforeAgentStartInjectsLocalContext(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &storage.Document{
		ID: "doc1", Title: "Raft", HPath: "/Journal/Raft", NotebookID: "nb1",
		NotebookName: "Journal", UpdatedAt: "2026-08-19T00:00:00Z",
		Content: "Raft\nleader election and log replication",
	}
	if err := store.IndexDocument(ctx, doc); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	c := newTestCoordinator(nil, store, func(cfg *config.Config) {
		cfg.Recall.SearchPaths = []string{"fts"}
	})
	c.available.Store(true)

	res := c.BeforeAgentStart(ctx, "how does raft handle leader election")
	if res.Skipped {
		t.Fatalf("BeforeAgentStart() skipped with reason %q", res.Reason)
	}
	if res.PrependContext == "" {
		t.Fatal("BeforeAgentStart() returned no context")
	}
	if !strings.Contains(res.PrependContext, "RECALLED NOTES BEGIN") {
		t.Error("context missing opening marker")
	}
	if !strings.Contains(res.PrependContext, "Raft") {
		t.Error("context missing matched document")
	}
	if len(res.RecalledDocs) == 0 {
		t.Error("result missing recalled docs metadata")
	}
}

func TestBeforeAgentStartResolvesLinkedDoc(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)

	client.EXPECT().GetBlockKramdown(gomock.Any(), "20220802180638-lhtbfty").Return(&siyuan.BlockKramdown{
		ID: "20220802180638-lhtbfty", Kramdown: "# Linked\nlinked body text",
	}, nil)
	client.EXPECT().GetBlockInfo(gomock.Any(), "20220802180638-lhtbfty").Return(&siyuan.BlockInfo{
		HPath: "/Journal/Linked", Updated: "20260820090000",
	}, nil)

	c := newTestCoordinator(client, nil, func(cfg *config.Config) {
		cfg.Recall.MinPromptLength = 10
		cfg.Recall.SearchPaths = []string{"fts"}
	})
	c.available.Store(true)

	res := c.BeforeAgentStart(context.Background(), "http://127.0.0.1:9081?id=20220802180638-lhtbfty")
	if res.Skipped {
		t.Fatalf("BeforeAgentStart() skipped with reason %q", res.Reason)
	}
	if !strings.Contains(res.PrependContext, "```markdown") {
		t.Error("context missing fenced linked doc body")
	}
	if !strings.Contains(res.PrependContext, "## 🔗") {
		t.Error("context missing linked doc header")
	}
}

func TestRemoteAvailableReconnectsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)
	client.EXPECT().HealthCheck(gomock.Any()).
		Return(siyuan.HealthStatus{Available: true, Version: "3.1.0"}).Times(1)

	c := newTestCoordinator(client, nil, nil)

	ctx := context.Background()
	if !c.remoteAvailable(ctx) {
		t.Fatal("remoteAvailable() = false after successful reconnect")
	}
	// Second call must hit the cache, not the client.
	if !c.remoteAvailable(ctx) {
		t.Fatal("remoteAvailable() = false on cached-true path")
	}
}

func TestRemoteAvailableReprobesWhileDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)
	client.EXPECT().HealthCheck(gomock.Any()).
		Return(siyuan.HealthStatus{Available: false, Err: "connection refused"}).Times(2)

	c := newTestCoordinator(client, nil, nil)

	ctx := context.Background()
	if c.remoteAvailable(ctx) {
		t.Fatal("remoteAvailable() = true while store is down")
	}
	if c.remoteAvailable(ctx) {
		t.Fatal("remoteAvailable() = true on second probe while down")
	}
}

func TestSyncNowWithoutIndex(t *testing.T) {
	c := newTestCoordinator(nil, nil, nil)
	if _, err := c.SyncNow(context.Background()); err == nil {
		t.Error("SyncNow() error = nil, want failure when index disabled")
	}
}

func TestSyncNowRespectsBusyGuard(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockAPI(ctrl)
	// No expectations: a busy guard hit must not reach the client.
	c := newTestCoordinator(client, newTestStore(t), nil)

	c.syncBusy.Store(true)
	if _, err := c.SyncNow(context.Background()); err == nil {
		t.Error("SyncNow() error = nil, want failure while a sync is running")
	}
}

func TestStatsWithoutStore(t *testing.T) {
	c := newTestCoordinator(nil, nil, nil)

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalDocs != 0 || stats.TotalBlocks != 0 {
		t.Errorf("Stats() = %+v, want zeroes when index disabled", stats)
	}
}
