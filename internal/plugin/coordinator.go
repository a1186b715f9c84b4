// Package plugin owns process-wide lifecycle: component wiring, background
// initialization, the periodic sync timer, availability tracking and the
// hook entrypoints the chat gateway calls.
package plugin

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"siyuan-recall/internal/config"
	"siyuan-recall/internal/intent"
	"siyuan-recall/internal/linkdoc"
	"siyuan-recall/internal/recall"
	"siyuan-recall/internal/siyuan"
	"siyuan-recall/internal/storage"
	syncsvc "siyuan-recall/internal/sync"
)

// readyWait is the soft deadline a hook spends waiting for background init.
// Recall still runs afterwards with whatever is ready; hooks never block the
// gateway indefinitely.
const readyWait = 3 * time.Second

// HookResult is the payload returned to the gateway for a prompt event. A
// zero-valued result means "inject nothing".
type HookResult struct {
	PrependContext string       `json:"prependContext,omitempty"`
	RecalledDocs   []recall.Doc `json:"recalledDocs,omitempty"`
	Skipped        bool         `json:"skipped,omitempty"`
	Reason         string       `json:"reason,omitempty"`
}

// Coordinator is the singleton component graph for one process.
type Coordinator struct {
	cfg       *config.Config
	client    siyuan.API
	db        *sql.DB
	store     storage.IndexStore
	engine    *recall.Engine
	formatter *recall.Formatter
	syncSvc   *syncsvc.Service

	available atomic.Bool
	syncBusy  atomic.Bool

	ready  chan struct{}
	cancel context.CancelFunc
	cron   *cron.Cron
}

var (
	registerMu sync.Mutex
	registered *Coordinator
)

// Register builds the singleton coordinator from the merged configuration
// and starts background initialization. Calling it again returns the
// existing instance.
func Register(configPath string, gatewayOverrides map[string]any) (*Coordinator, error) {
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered != nil {
		return registered, nil
	}

	cfg, err := config.Load(configPath, gatewayOverrides)
	if err != nil {
		return nil, err
	}

	client := siyuan.NewClient(cfg.Siyuan.APIURL, cfg.Siyuan.APIToken,
		time.Duration(cfg.Siyuan.TimeoutMs)*time.Millisecond)

	var db *sql.DB
	var store storage.IndexStore
	if cfg.Index.Enabled {
		db, err = storage.Open(cfg.Index.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open index database: %w", err)
		}
		if err := storage.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate index database: %w", err)
		}
		store = storage.NewIndexRepo(db, cfg.Index.DBPath, cfg.Index.ExcludedNotebookNames())
	}

	c := New(cfg, client, store)
	c.db = db
	c.Start(context.Background())

	registered = c
	return c, nil
}

// New wires the component graph without starting background work. The store
// may be nil when the local index is disabled.
func New(cfg *config.Config, client siyuan.API, store storage.IndexStore) *Coordinator {
	analyzer := intent.NewAnalyzer(cfg.Recall)
	resolver := linkdoc.NewResolver(client, cfg.LinkedDoc)
	engine := recall.NewEngine(store, client, analyzer, resolver, cfg.Recall)

	c := &Coordinator{
		cfg:       cfg,
		client:    client,
		store:     store,
		engine:    engine,
		formatter: recall.NewFormatter(cfg.Recall),
		ready:     make(chan struct{}),
	}
	engine.SetRemoteGate(c.remoteAvailable)

	if store != nil && cfg.Index.Enabled {
		c.syncSvc = syncsvc.NewService(client, store, cfg.Index)
	}
	return c
}

// Start launches background initialization: health probe, initial sync when
// needed, the periodic sync loop and the daily cleanup schedule.
func (c *Coordinator) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	go c.backgroundInit(ctx)
}

func (c *Coordinator) backgroundInit(ctx context.Context) {
	defer close(c.ready)

	hs := c.client.HealthCheck(ctx)
	c.available.Store(hs.Available)
	if !hs.Available {
		slog.WarnContext(ctx, "note store unavailable at startup", "error", hs.Err)
	} else {
		slog.InfoContext(ctx, "note store connected", "version", hs.Version)
	}

	if c.syncSvc == nil {
		return
	}

	if hs.Available {
		if _, err := c.syncSvc.InitialSync(ctx); err != nil {
			slog.WarnContext(ctx, "initial sync failed, will retry incrementally", "error", err)
		}
	}

	go c.runSyncLoop(ctx)
	c.startCleanupSchedule()
}

// runSyncLoop drives periodic incremental syncs. A tick that arrives while
// the previous run is still in flight is skipped.
func (c *Coordinator) runSyncLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.Index.SyncIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.syncBusy.CompareAndSwap(false, true) {
				slog.DebugContext(ctx, "previous sync still running, skipping tick")
				continue
			}
			if _, err := c.syncSvc.IncrementalSync(ctx); err != nil {
				slog.WarnContext(ctx, "incremental sync failed", "error", err)
				c.available.Store(false)
			} else {
				c.available.Store(true)
			}
			c.syncBusy.Store(false)
		}
	}
}

func (c *Coordinator) startCleanupSchedule() {
	days := c.cfg.Index.CleanupAgeDays
	if days <= 0 {
		days = 30
	}
	cr := cron.New()
	_ = cr.AddFunc("@daily", func() {
		ctx := context.Background()
		removed, err := c.store.CleanupOldDeleted(ctx, days)
		if err != nil {
			slog.WarnContext(ctx, "tombstone cleanup failed", "error", err)
			return
		}
		if removed > 0 {
			slog.InfoContext(ctx, "cleaned up old deleted documents", "removed", removed)
		}
	})
	cr.Start()
	c.cron = cr
}

// remoteAvailable is the engine's remote gate: trust a cached true, attempt
// exactly one reconnect on a cached false.
func (c *Coordinator) remoteAvailable(ctx context.Context) bool {
	if c.available.Load() {
		return true
	}
	hs := c.client.HealthCheck(ctx)
	c.available.Store(hs.Available)
	return hs.Available
}

// ensureInitialized waits for background init up to the soft deadline. The
// synchronously constructed components are usable either way.
func (c *Coordinator) ensureInitialized(ctx context.Context) {
	select {
	case <-c.ready:
	case <-ctx.Done():
	case <-time.After(readyWait):
		slog.DebugContext(ctx, "background init still running, proceeding")
	}
}

// BeforeAgentStart is the recall entrypoint. It never fails: any internal
// problem degrades to an empty result.
func (c *Coordinator) BeforeAgentStart(ctx context.Context, prompt string) *HookResult {
	if strings.TrimSpace(prompt) == "" {
		return &HookResult{Skipped: true, Reason: "empty_prompt"}
	}
	c.ensureInitialized(ctx)

	res := c.engine.Retrieve(ctx, prompt)
	if res.Skipped {
		slog.InfoContext(ctx, "recall skipped", "reason", res.Reason)
		return &HookResult{Skipped: true, Reason: res.Reason}
	}

	out := c.formatter.Format(res.Docs)
	if out == "" {
		slog.InfoContext(ctx, "recall produced no context", "reason", res.Reason, "query", res.Query)
		return &HookResult{Reason: res.Reason}
	}

	slog.InfoContext(ctx, "recall context injected",
		"docs", len(res.Docs), "chars", len(out), "query", res.Query)
	return &HookResult{
		PrependContext: out,
		RecalledDocs:   res.Docs,
		Reason:         res.Reason,
	}
}

// AgentEnd is the conversation write-back entrypoint. Persisting the
// exchange into the note store is handled by the gateway's writer, not this
// sidecar; the hook only acknowledges the event.
func (c *Coordinator) AgentEnd(ctx context.Context, sessionID string, success bool) {
	slog.DebugContext(ctx, "agent end event", "session_id", sessionID, "success", success)
}

// CommandNew handles the session-reset command. Placeholder: recall keeps no
// per-session state yet.
func (c *Coordinator) CommandNew(ctx context.Context) {
	slog.DebugContext(ctx, "session reset event")
}

// Health probes the note store and refreshes the availability cache.
func (c *Coordinator) Health(ctx context.Context) siyuan.HealthStatus {
	hs := c.client.HealthCheck(ctx)
	c.available.Store(hs.Available)
	return hs
}

// Stats reports index counters, or zeroes when the local index is disabled.
func (c *Coordinator) Stats(ctx context.Context) (*storage.Stats, error) {
	if c.store == nil {
		return &storage.Stats{}, nil
	}
	return c.store.Stats(ctx)
}

// SyncNow runs one incremental sync on demand, honoring the re-entrancy
// guard shared with the periodic loop.
func (c *Coordinator) SyncNow(ctx context.Context) (*syncsvc.Result, error) {
	if c.syncSvc == nil {
		return nil, fmt.Errorf("local index disabled")
	}
	if !c.syncBusy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("sync already running")
	}
	defer c.syncBusy.Store(false)
	return c.syncSvc.IncrementalSync(ctx)
}

// Ready exposes the init barrier for tests and the health endpoint.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.ready
}

// Config returns the merged configuration the coordinator was built from.
func (c *Coordinator) Config() *config.Config {
	return c.cfg
}

// ListenAddr returns the configured HTTP listen address.
func (c *Coordinator) ListenAddr() string {
	return c.cfg.Listen.Addr
}

// Close stops the timers and releases the database.
func (c *Coordinator) Close() error {
	registerMu.Lock()
	if registered == c {
		registered = nil
	}
	registerMu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	if c.cron != nil {
		c.cron.Stop()
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
