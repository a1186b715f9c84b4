package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestRepo(t *testing.T, excluded ...string) *IndexRepo {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return NewIndexRepo(db, dbPath, excluded)
}

func sampleDoc(id, title string) *Document {
	return &Document{
		ID:           id,
		Title:        title,
		HPath:        "/Journal/" + title,
		NotebookID:   "nb1",
		NotebookName: "Journal",
		UpdatedAt:    "2026-08-20T10:00:00Z",
		Content:      title + " doc body about rust ownership",
		Sections: []Section{
			{ID: id + "::h2::3", DocID: id, Content: "## Ownership\nrust ownership rules"},
			{ID: id + "::h2::9", DocID: id, Content: "## Borrowing\nborrow checker notes"},
		},
	}
}

func blockCount(t *testing.T, repo *IndexRepo, docID string) int {
	t.Helper()
	var n int
	if err := repo.db.QueryRow("SELECT COUNT(*) FROM block_fts WHERE doc_id = ?", docID).Scan(&n); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	return n
}

func TestIndexDocumentAndSearch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.IndexDocument(ctx, sampleDoc("doc1", "Rust Notes")); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	rows, err := repo.Search(ctx, "ownership", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("Search() returned no rows for indexed content")
	}
	if rows[0].DocID != "doc1" {
		t.Errorf("Search() docID = %q, want doc1", rows[0].DocID)
	}
	if rows[0].HPath == "" {
		t.Error("Search() row missing hpath from registry join")
	}
}

func TestIndexDocumentIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := sampleDoc("doc1", "Rust Notes")
	if err := repo.IndexDocument(ctx, doc); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if err := repo.IndexDocument(ctx, doc); err != nil {
		t.Fatalf("IndexDocument() second call error = %v", err)
	}

	// One doc-level row plus two sections, not doubled.
	if got := blockCount(t, repo, "doc1"); got != 3 {
		t.Errorf("block count after re-index = %d, want 3", got)
	}
}

func TestReindexRewritesSections(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.IndexDocument(ctx, sampleDoc("doc1", "Rust Notes")); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	updated := sampleDoc("doc1", "Rust Notes")
	updated.Sections = updated.Sections[:1]
	if err := repo.IndexDocument(ctx, updated); err != nil {
		t.Fatalf("IndexDocument() update error = %v", err)
	}

	if got := blockCount(t, repo, "doc1"); got != 2 {
		t.Errorf("block count after shrink = %d, want 2 (doc row + 1 section)", got)
	}
}

func TestExcludedNotebookLeavesNoTraces(t *testing.T) {
	repo := newTestRepo(t, "Private")
	ctx := context.Background()

	doc := sampleDoc("doc1", "Secret")
	doc.NotebookName = "Private"
	doc.HPath = "/Private/Secret"

	if err := repo.IndexDocument(ctx, doc); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalDocs != 0 || stats.TotalBlocks != 0 {
		t.Errorf("Stats() = %d docs / %d blocks, want 0/0 for excluded notebook", stats.TotalDocs, stats.TotalBlocks)
	}
	if stats.SkippedWrites != 1 {
		t.Errorf("Stats() skippedWrites = %d, want 1", stats.SkippedWrites)
	}
}

func TestExclusionFallsBackToHPathSegment(t *testing.T) {
	repo := newTestRepo(t, "Private")
	ctx := context.Background()

	doc := sampleDoc("doc1", "Secret")
	doc.NotebookName = ""
	doc.HPath = "/Private/Secret"

	if err := repo.IndexDocument(ctx, doc); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if got := blockCount(t, repo, "doc1"); got != 0 {
		t.Errorf("block count = %d, want 0 for hpath-inferred exclusion", got)
	}
}

func TestMarkDeletedHidesFromSearch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.IndexDocument(ctx, sampleDoc("doc1", "Rust Notes")); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if err := repo.MarkDeleted(ctx, "doc1"); err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}

	rows, err := repo.Search(ctx, "ownership", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Search() returned %d rows for soft-deleted doc, want 0", len(rows))
	}

	// Re-indexing resurrects the doc.
	if err := repo.IndexDocument(ctx, sampleDoc("doc1", "Rust Notes")); err != nil {
		t.Fatalf("IndexDocument() after delete error = %v", err)
	}
	rows, err = repo.Search(ctx, "ownership", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(rows) == 0 {
		t.Error("Search() returned no rows after re-index of deleted doc")
	}
}

func TestCleanupOldDeleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.IndexDocument(ctx, sampleDoc("doc1", "Old")); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if err := repo.MarkDeleted(ctx, "doc1"); err != nil {
		t.Fatalf("MarkDeleted() error = %v", err)
	}

	// Backdate the tombstone past the threshold.
	if _, err := repo.db.Exec(
		"UPDATE doc_registry SET deleted_at = '2020-01-01T00:00:00Z' WHERE doc_id = 'doc1'"); err != nil {
		t.Fatalf("backdate error = %v", err)
	}

	removed, err := repo.CleanupOldDeleted(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOldDeleted() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("CleanupOldDeleted() removed = %d, want 1", removed)
	}
	if got := blockCount(t, repo, "doc1"); got != 0 {
		t.Errorf("block count after cleanup = %d, want 0", got)
	}

	// Idempotent on repeat.
	removed, err = repo.CleanupOldDeleted(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOldDeleted() second call error = %v", err)
	}
	if removed != 0 {
		t.Errorf("CleanupOldDeleted() second call removed = %d, want 0", removed)
	}
}

func TestSyncDocumentsBatch(t *testing.T) {
	repo := newTestRepo(t, "Private")
	ctx := context.Background()

	private := sampleDoc("doc2", "Secret")
	private.NotebookName = "Private"

	docs := []*Document{sampleDoc("doc1", "Rust Notes"), private, sampleDoc("doc3", "Go Notes")}
	if err := repo.SyncDocuments(ctx, docs); err != nil {
		t.Fatalf("SyncDocuments() error = %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalDocs != 2 {
		t.Errorf("Stats() totalDocs = %d, want 2 (excluded doc skipped)", stats.TotalDocs)
	}
}

func TestSyncTimeRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetLastSyncTime(ctx)
	if err != nil {
		t.Fatalf("GetLastSyncTime() error = %v", err)
	}
	if got != "" {
		t.Errorf("GetLastSyncTime() = %q, want empty before first sync", got)
	}

	if err := repo.UpdateSyncTime(ctx, "2026-08-20T10:00:00Z"); err != nil {
		t.Fatalf("UpdateSyncTime() error = %v", err)
	}
	got, err = repo.GetLastSyncTime(ctx)
	if err != nil {
		t.Fatalf("GetLastSyncTime() error = %v", err)
	}
	if got != "2026-08-20T10:00:00Z" {
		t.Errorf("GetLastSyncTime() = %q", got)
	}

	// Second update overwrites.
	if err := repo.UpdateSyncTime(ctx, "2026-08-21T10:00:00Z"); err != nil {
		t.Fatalf("UpdateSyncTime() error = %v", err)
	}
	got, _ = repo.GetLastSyncTime(ctx)
	if got != "2026-08-21T10:00:00Z" {
		t.Errorf("GetLastSyncTime() after overwrite = %q", got)
	}
}

func TestSearchTitleTokens(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	doc := sampleDoc("doc1", "Kubernetes Deployment Checklist")
	doc.Content = "Kubernetes Deployment Checklist\nsteps for rolling out"
	if err := repo.IndexDocument(ctx, doc); err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}

	rows, err := repo.Search(ctx, "kubernetes deployment", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	found := false
	for _, row := range rows {
		if row.DocID == "doc1" {
			found = true
		}
	}
	if !found {
		t.Error("Search() by title tokens did not return the document")
	}
}
