package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index_store.go -package=mocks siyuan-recall/internal/storage IndexStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

const lastSyncKey = "lastSyncTime"

// IndexStore defines the local index operations the sync service and the
// retrieval engine depend on.
type IndexStore interface {
	// IndexDocument upserts one document and rewrites all its FTS rows.
	// Documents from excluded notebooks are skipped entirely.
	IndexDocument(ctx context.Context, doc *Document) error
	// SyncDocuments indexes a batch inside a single transaction.
	SyncDocuments(ctx context.Context, docs []*Document) error
	// RemoveFromIndex hard-deletes a document from both tables.
	RemoveFromIndex(ctx context.Context, docID string) error
	// MarkDeleted soft-deletes a document; its FTS rows stay but become
	// invisible to Search.
	MarkDeleted(ctx context.Context, docID string) error
	// Search runs an FTS MATCH query, best rank first.
	Search(ctx context.Context, query string, limit int) ([]SearchRow, error)
	// Stats reports index counters.
	Stats(ctx context.Context) (*Stats, error)
	// CleanupOldDeleted hard-deletes soft-deleted docs older than daysOld.
	CleanupOldDeleted(ctx context.Context, daysOld int) (int, error)
	// GetLastSyncTime returns the persisted sync watermark, or "" when the
	// initial sync has never completed.
	GetLastSyncTime(ctx context.Context) (string, error)
	// UpdateSyncTime persists the sync watermark.
	UpdateSyncTime(ctx context.Context, iso string) error
}

// IndexRepo implements IndexStore over SQLite.
type IndexRepo struct {
	db       *sql.DB
	dbPath   string
	excluded map[string]struct{}
	skipped  atomic.Int64
}

// NewIndexRepo creates the repo. excludedNames is the resolved notebook-name
// exclusion set, cached for the repo's lifetime.
func NewIndexRepo(db *sql.DB, dbPath string, excludedNames []string) *IndexRepo {
	excluded := make(map[string]struct{}, len(excludedNames))
	for _, n := range excludedNames {
		excluded[n] = struct{}{}
	}
	return &IndexRepo{db: db, dbPath: dbPath, excluded: excluded}
}

// isExcluded infers the notebook name from the document, falling back to the
// first hpath segment when NotebookName is empty.
func (r *IndexRepo) isExcluded(doc *Document) bool {
	if len(r.excluded) == 0 {
		return false
	}
	name := doc.NotebookName
	if name == "" {
		name = firstHPathSegment(doc.HPath)
	}
	_, ok := r.excluded[name]
	return ok
}

func firstHPathSegment(hpath string) string {
	trimmed := strings.TrimPrefix(hpath, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// IndexDocument upserts the registry row and rewrites the document's FTS
// rows. Re-indexing is delete-then-insert, never append.
func (r *IndexRepo) IndexDocument(ctx context.Context, doc *Document) error {
	if r.isExcluded(doc) {
		r.skipped.Add(1)
		slog.DebugContext(ctx, "skipping excluded notebook document",
			"doc_id", doc.ID, "notebook", doc.NotebookName, "hpath", doc.HPath)
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := indexDocumentTx(ctx, tx, doc); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}
	return nil
}

// SyncDocuments indexes a batch in one transaction so a partially applied
// sync is never visible to readers.
func (r *IndexRepo) SyncDocuments(ctx context.Context, docs []*Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, doc := range docs {
		if r.isExcluded(doc) {
			r.skipped.Add(1)
			slog.DebugContext(ctx, "skipping excluded notebook document",
				"doc_id", doc.ID, "notebook", doc.NotebookName, "hpath", doc.HPath)
			continue
		}
		if err := indexDocumentTx(ctx, tx, doc); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync transaction: %w", err)
	}
	return nil
}

func indexDocumentTx(ctx context.Context, tx *sql.Tx, doc *Document) error {
	now := time.Now().UTC().Format(time.RFC3339)

	var tags any
	if len(doc.Tags) > 0 {
		raw, err := json.Marshal(doc.Tags)
		if err != nil {
			return fmt.Errorf("failed to encode tags for %s: %w", doc.ID, err)
		}
		tags = string(raw)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO doc_registry (doc_id, title, hpath, notebook_id, notebook_name, updated_at, indexed_at, deleted, deleted_at, tags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?)
		 ON CONFLICT (doc_id) DO UPDATE SET
		 title = excluded.title, hpath = excluded.hpath,
		 notebook_id = excluded.notebook_id, notebook_name = excluded.notebook_name,
		 updated_at = excluded.updated_at, indexed_at = excluded.indexed_at,
		 deleted = 0, deleted_at = NULL, tags = excluded.tags`,
		doc.ID, doc.Title, doc.HPath, doc.NotebookID, doc.NotebookName, doc.UpdatedAt, now, tags,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert doc %s: %w", doc.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM block_fts WHERE doc_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to clear FTS rows for %s: %w", doc.ID, err)
	}

	// Doc-level row first, then one row per section.
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO block_fts (block_id, doc_id, content) VALUES (?, ?, ?)",
		doc.ID, doc.ID, doc.Content,
	); err != nil {
		return fmt.Errorf("failed to insert doc content row for %s: %w", doc.ID, err)
	}
	for _, sec := range doc.Sections {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO block_fts (block_id, doc_id, content) VALUES (?, ?, ?)",
			sec.ID, doc.ID, sec.Content,
		); err != nil {
			return fmt.Errorf("failed to insert section %s: %w", sec.ID, err)
		}
	}

	return nil
}

// RemoveFromIndex hard-deletes a document. Used when its notebook becomes
// excluded: the no-traces policy leaves nothing behind.
func (r *IndexRepo) RemoveFromIndex(ctx context.Context, docID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM block_fts WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete FTS rows for %s: %w", docID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM doc_registry WHERE doc_id = ?", docID); err != nil {
		return fmt.Errorf("failed to delete registry row for %s: %w", docID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit removal: %w", err)
	}
	return nil
}

// MarkDeleted soft-deletes a document. Search filters by deleted=0 through
// the registry join, so the stale FTS rows cannot surface.
func (r *IndexRepo) MarkDeleted(ctx context.Context, docID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		"UPDATE doc_registry SET deleted = 1, deleted_at = ? WHERE doc_id = ?",
		now, docID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark %s deleted: %w", docID, err)
	}
	return nil
}

// Search runs an FTS MATCH joined to the registry, excluding soft-deleted
// docs, ordered by rank ascending (best first).
func (r *IndexRepo) Search(ctx context.Context, query string, limit int) ([]SearchRow, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT f.block_id, f.doc_id, COALESCE(d.title, ''), COALESCE(d.hpath, ''),
		        f.content, COALESCE(d.updated_at, ''), bm25(block_fts)
		 FROM block_fts f
		 JOIN doc_registry d ON d.doc_id = f.doc_id
		 WHERE block_fts MATCH ? AND d.deleted = 0
		 ORDER BY bm25(block_fts)
		 LIMIT ?`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fts search failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []SearchRow
	for rows.Next() {
		var row SearchRow
		if err := rows.Scan(&row.BlockID, &row.DocID, &row.Title, &row.HPath, &row.Content, &row.UpdatedAt, &row.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search iteration failed: %w", err)
	}
	return results, nil
}

// Stats reports document/block counts and the last sync watermark.
func (r *IndexRepo) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{DBPath: r.dbPath, SkippedWrites: r.skipped.Load()}

	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM doc_registry WHERE deleted = 0").Scan(&stats.TotalDocs); err != nil {
		return nil, fmt.Errorf("failed to count docs: %w", err)
	}
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM block_fts").Scan(&stats.TotalBlocks); err != nil {
		return nil, fmt.Errorf("failed to count blocks: %w", err)
	}

	lastSync, err := r.GetLastSyncTime(ctx)
	if err != nil {
		return nil, err
	}
	stats.LastSync = lastSync

	return stats, nil
}

// CleanupOldDeleted hard-deletes soft-deleted docs whose deleted_at is older
// than daysOld. Registry and FTS rows go in the same transaction.
func (r *IndexRepo) CleanupOldDeleted(ctx context.Context, daysOld int) (int, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -daysOld).Format(time.RFC3339)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM block_fts WHERE doc_id IN
		 (SELECT doc_id FROM doc_registry WHERE deleted = 1 AND deleted_at < ?)`,
		threshold,
	); err != nil {
		return 0, fmt.Errorf("failed to delete stale FTS rows: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM doc_registry WHERE deleted = 1 AND deleted_at < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale registry rows: %w", err)
	}
	removed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cleanup: %w", err)
	}
	return int(removed), nil
}

// GetLastSyncTime returns the persisted watermark, or "" when absent.
func (r *IndexRepo) GetLastSyncTime(ctx context.Context) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM sync_metadata WHERE key = ?", lastSyncKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last sync time: %w", err)
	}
	return value, nil
}

// UpdateSyncTime persists the watermark.
func (r *IndexRepo) UpdateSyncTime(ctx context.Context, iso string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_metadata (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		lastSyncKey, iso, now,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync time: %w", err)
	}
	return nil
}
