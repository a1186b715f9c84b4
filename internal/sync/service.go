// Package sync keeps the local index in step with the remote note store. An
// initial sync walks every open notebook once; incremental syncs pull only
// docs updated past the persisted watermark.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"siyuan-recall/internal/config"
	"siyuan-recall/internal/sections"
	"siyuan-recall/internal/siyuan"
	"siyuan-recall/internal/storage"
)

// The note store's compact timestamp, e.g. "20260820093000".
const compactLayout = "20060102150405"

// changedDocsPageSize is the page size for the changed-doc id walk. The walk
// pages until a short page, so a window larger than one page (bulk import,
// long downtime) is fully drained before the watermark advances.
const changedDocsPageSize = 2000

// Result reports what one sync run did.
type Result struct {
	Indexed int `json:"indexed"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// docMeta is the registry view of a remote document row.
type docMeta struct {
	id      string
	title   string
	hpath   string
	box     string
	updated string
}

// Service materializes remote documents into the local index.
type Service struct {
	client siyuan.API
	store  storage.IndexStore
	cfg    config.IndexConfig

	excludedNames map[string]struct{}

	mu          sync.Mutex
	notebooks   map[string]siyuan.Notebook // by id
	excludedIDs map[string]struct{}

	changedPage int

	now   func() time.Time
	sleep func(time.Duration)
}

// NewService creates a sync service over the given client and store.
func NewService(client siyuan.API, store storage.IndexStore, cfg config.IndexConfig) *Service {
	excluded := make(map[string]struct{})
	for _, n := range cfg.ExcludedNotebookNames() {
		excluded[n] = struct{}{}
	}
	return &Service{
		client:        client,
		store:         store,
		cfg:           cfg,
		excludedNames: excluded,
		notebooks:     make(map[string]siyuan.Notebook),
		excludedIDs:   make(map[string]struct{}),
		changedPage:   changedDocsPageSize,
		now:           time.Now,
		sleep:         time.Sleep,
	}
}

// InitialSync walks every open, non-excluded notebook and indexes all its
// documents. It runs at most once per index lifetime: a present watermark
// makes it a no-op. The watermark is sampled before any remote query so docs
// updated during the walk are re-fetched by the next incremental run.
func (s *Service) InitialSync(ctx context.Context) (*Result, error) {
	last, err := s.store.GetLastSyncTime(ctx)
	if err != nil {
		return nil, err
	}
	if last != "" {
		slog.DebugContext(ctx, "initial sync already completed", "last_sync", last)
		return &Result{}, nil
	}

	startedAt := s.now().UTC().Format(time.RFC3339)

	if err := s.refreshNotebooks(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh notebooks: %w", err)
	}

	res := &Result{}
	var resMu sync.Mutex
	var docs []*storage.Document

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxFetches())

	for _, nb := range s.snapshotNotebooks() {
		if nb.Closed {
			continue
		}
		if s.isExcludedBox(nb.ID) {
			slog.InfoContext(ctx, "skipping excluded notebook", "notebook", nb.Name)
			continue
		}

		metas, err := s.pageNotebookDocs(ctx, nb.ID)
		if err != nil {
			slog.WarnContext(ctx, "failed to page notebook documents",
				"notebook", nb.Name, "error", err)
			resMu.Lock()
			res.Failed++
			resMu.Unlock()
			continue
		}

		for _, meta := range metas {
			meta := meta
			g.Go(func() error {
				doc, err := s.materialize(gctx, meta)
				if err != nil {
					slog.WarnContext(gctx, "failed to materialize document",
						"doc_id", meta.id, "error", err)
					resMu.Lock()
					res.Failed++
					resMu.Unlock()
					return nil
				}
				resMu.Lock()
				docs = append(docs, doc)
				resMu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := s.store.SyncDocuments(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to write initial sync batch: %w", err)
	}
	res.Indexed = len(docs)

	if err := s.store.UpdateSyncTime(ctx, startedAt); err != nil {
		return nil, fmt.Errorf("failed to persist sync watermark: %w", err)
	}

	slog.InfoContext(ctx, "initial sync completed",
		"indexed", res.Indexed, "failed", res.Failed)
	return res, nil
}

// IncrementalSync pulls documents updated past the watermark. The new
// watermark is sampled before the remote query, so a doc updated mid-run is
// picked up again next run rather than lost. A failed run leaves the
// watermark unchanged and the same window is retried.
func (s *Service) IncrementalSync(ctx context.Context) (*Result, error) {
	last, err := s.store.GetLastSyncTime(ctx)
	if err != nil {
		return nil, err
	}
	if last == "" {
		return s.InitialSync(ctx)
	}

	syncTime := s.now().UTC().Format(time.RFC3339)

	if err := s.refreshNotebooks(ctx); err != nil {
		slog.WarnContext(ctx, "notebook refresh failed, using cached set", "error", err)
	}

	since := compactFromISO(last)
	if since == "" {
		return nil, fmt.Errorf("unparseable sync watermark %q", last)
	}
	ids, err := s.changedDocIDs(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query changed blocks: %w", err)
	}

	res := &Result{}
	var resMu sync.Mutex
	var docs []*storage.Document

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxFetches())

	for _, id := range ids {
		id := id
		g.Go(func() error {
			meta, found, err := s.docRow(gctx, id)
			if err != nil {
				slog.WarnContext(gctx, "failed to fetch document row",
					"doc_id", id, "error", err)
				resMu.Lock()
				res.Failed++
				resMu.Unlock()
				return nil
			}
			if !found {
				if err := s.store.MarkDeleted(gctx, id); err != nil {
					slog.WarnContext(gctx, "failed to mark document deleted",
						"doc_id", id, "error", err)
					resMu.Lock()
					res.Failed++
					resMu.Unlock()
					return nil
				}
				resMu.Lock()
				res.Deleted++
				resMu.Unlock()
				return nil
			}
			if s.isExcludedBox(meta.box) {
				// No-traces policy: a notebook excluded after its docs were
				// indexed gets them purged, not just skipped.
				if err := s.store.RemoveFromIndex(gctx, id); err != nil {
					slog.WarnContext(gctx, "failed to purge excluded document",
						"doc_id", id, "error", err)
				}
				resMu.Lock()
				res.Skipped++
				resMu.Unlock()
				return nil
			}

			doc, err := s.materialize(gctx, meta)
			if err != nil {
				slog.WarnContext(gctx, "failed to materialize document",
					"doc_id", id, "error", err)
				resMu.Lock()
				res.Failed++
				resMu.Unlock()
				return nil
			}
			resMu.Lock()
			docs = append(docs, doc)
			resMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := s.store.SyncDocuments(ctx, docs); err != nil {
		return nil, fmt.Errorf("failed to write incremental sync batch: %w", err)
	}
	res.Indexed = len(docs)

	if err := s.store.UpdateSyncTime(ctx, syncTime); err != nil {
		return nil, fmt.Errorf("failed to persist sync watermark: %w", err)
	}

	if res.Indexed > 0 || res.Deleted > 0 || res.Failed > 0 {
		slog.InfoContext(ctx, "incremental sync completed",
			"indexed", res.Indexed, "deleted", res.Deleted,
			"skipped", res.Skipped, "failed", res.Failed)
	}
	return res, nil
}

// refreshNotebooks reloads the notebook cache and resolves the excluded-name
// set to notebook ids.
func (s *Service) refreshNotebooks(ctx context.Context) error {
	notebooks, err := s.client.ListNotebooks(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]siyuan.Notebook, len(notebooks))
	excludedIDs := make(map[string]struct{})
	for _, nb := range notebooks {
		byID[nb.ID] = nb
		if _, ok := s.excludedNames[nb.Name]; ok {
			excludedIDs[nb.ID] = struct{}{}
		}
	}

	s.mu.Lock()
	s.notebooks = byID
	s.excludedIDs = excludedIDs
	s.mu.Unlock()
	return nil
}

func (s *Service) snapshotNotebooks() []siyuan.Notebook {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]siyuan.Notebook, 0, len(s.notebooks))
	for _, nb := range s.notebooks {
		out = append(out, nb)
	}
	return out
}

func (s *Service) isExcludedBox(boxID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.excludedIDs[boxID]
	return ok
}

func (s *Service) notebookName(boxID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notebooks[boxID].Name
}

func (s *Service) maxFetches() int {
	if s.cfg.MaxConcurrentFetches > 0 {
		return s.cfg.MaxConcurrentFetches
	}
	return 4
}

func (s *Service) pageSize() int {
	if s.cfg.SQLPageSize > 0 {
		return s.cfg.SQLPageSize
	}
	return 200
}

// changedDocIDs walks the ids of docs whose blocks changed past the
// watermark, paging until a short page. Oldest-first ordering keeps the walk
// deterministic while docs keep changing underneath it.
func (s *Service) changedDocIDs(ctx context.Context, since string) ([]string, error) {
	size := s.changedPage
	if size <= 0 {
		size = changedDocsPageSize
	}

	var ids []string
	seen := make(map[string]struct{})
	for offset := 0; ; offset += size {
		stmt := fmt.Sprintf(
			"SELECT root_id FROM blocks WHERE updated > '%s' GROUP BY root_id ORDER BY MAX(updated) LIMIT %d OFFSET %d",
			since, size, offset)
		rows, err := s.client.SQL(ctx, stmt)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			id := rowString(row, "root_id", "rootID", "id")
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if len(rows) < size {
			return ids, nil
		}
	}
}

// pageNotebookDocs pages through a notebook's document rows until a short
// page terminates the walk.
func (s *Service) pageNotebookDocs(ctx context.Context, boxID string) ([]docMeta, error) {
	size := s.pageSize()
	var metas []docMeta
	for offset := 0; ; offset += size {
		stmt := fmt.Sprintf(
			"SELECT id, content, hpath, box, updated FROM blocks WHERE type = 'd' AND box = '%s' ORDER BY updated DESC LIMIT %d OFFSET %d",
			sqlQuote(boxID), size, offset)
		rows, err := s.client.SQL(ctx, stmt)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			meta := metaFromRow(row)
			if meta.id != "" {
				metas = append(metas, meta)
			}
		}
		if len(rows) < size {
			return metas, nil
		}
	}
}

// docRow fetches a single document row. found=false means the doc no longer
// exists remotely.
func (s *Service) docRow(ctx context.Context, id string) (docMeta, bool, error) {
	stmt := fmt.Sprintf(
		"SELECT id, content, hpath, box, updated FROM blocks WHERE id = '%s' AND type = 'd'",
		sqlQuote(id))
	rows, err := s.client.SQL(ctx, stmt)
	if err != nil {
		return docMeta{}, false, err
	}
	if len(rows) == 0 {
		return docMeta{}, false, nil
	}
	return metaFromRow(rows[0]), true, nil
}

// materialize fetches a document's markdown and builds its index rows.
func (s *Service) materialize(ctx context.Context, meta docMeta) (*storage.Document, error) {
	kram, err := s.fetchKramdown(ctx, meta.id)
	if err != nil {
		return nil, err
	}

	md := sections.Sanitize(kram)
	title := sections.Title(md, meta.title)
	content := sections.DedupContent(md, s.cfg.DocContentDedupWindow)
	// Titles live outside the doc body, prepend so title tokens are
	// searchable in the doc-level row.
	if title != "" && !strings.HasPrefix(content, title) {
		content = title + "\n" + content
	}

	secs := sections.Split(meta.id, md, sections.SplitOptions{
		Levels:      s.cfg.SectionHeadingLevels,
		MaxChars:    s.cfg.SectionMaxChars,
		DedupWindow: s.cfg.SectionDedupWindowSize,
		MaxSections: s.cfg.MaxSectionsToIndex,
	})

	return &storage.Document{
		ID:           meta.id,
		Title:        title,
		HPath:        meta.hpath,
		NotebookID:   meta.box,
		NotebookName: s.notebookName(meta.box),
		UpdatedAt:    isoFromCompact(meta.updated),
		Content:      content,
		Sections:     secs,
	}, nil
}

// fetchKramdown retries transient remote failures with jittered backoff.
// Missing blocks fail immediately.
func (s *Service) fetchKramdown(ctx context.Context, id string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			s.sleep(backoff(attempt))
		}
		kd, err := s.client.GetBlockKramdown(ctx, id)
		if err == nil {
			return kd.Kramdown, nil
		}
		if errors.Is(err, siyuan.ErrNotFound) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * 200 * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(100 * time.Millisecond)))
	return base + jitter
}

func metaFromRow(row map[string]any) docMeta {
	return docMeta{
		id:      rowString(row, "id"),
		title:   rowString(row, "content", "title"),
		hpath:   rowString(row, "hpath", "hPath"),
		box:     rowString(row, "box"),
		updated: rowString(row, "updated", "updated_at"),
	}
}

// rowString coalesces the first present, non-empty string spelling.
func rowString(row map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func compactFromISO(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return ""
	}
	return t.UTC().Format(compactLayout)
}

func isoFromCompact(compact string) string {
	t, err := time.Parse(compactLayout, compact)
	if err != nil {
		return compact
	}
	return t.UTC().Format(time.RFC3339)
}
