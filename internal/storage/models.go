package storage

// Document is the unit written into the index: one logical note plus its
// pre-split sections.
type Document struct {
	ID           string
	Title        string
	HPath        string // "/<notebook>/<segments...>"
	NotebookID   string
	NotebookName string
	UpdatedAt    string // ISO-8601
	Tags         []string
	// Content is the dedup-compressed markdown indexed as the doc-level FTS
	// row. Sections carry the snippet-level rows.
	Content  string
	Sections []Section
}

// Section is one heading-delimited subrange of a document.
type Section struct {
	ID      string // "<docID>::h<level>::<lineIndex>"
	DocID   string
	Content string
}

// SearchRow is one FTS hit joined with its registry row. Rank follows the
// FTS convention: smaller is better.
type SearchRow struct {
	BlockID   string
	DocID     string
	Title     string
	HPath     string
	Content   string
	UpdatedAt string
	Rank      float64
}

// Stats summarizes the index for health and stats endpoints.
type Stats struct {
	TotalDocs     int    `json:"totalDocs"`
	TotalBlocks   int    `json:"totalBlocks"`
	LastSync      string `json:"lastSync,omitempty"`
	DBPath        string `json:"dbPath"`
	SkippedWrites int64  `json:"skippedWrites"`
}
