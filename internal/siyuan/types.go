package siyuan

// HealthStatus is the result of a health check. HealthCheck never fails; a
// down store is reported through Available=false and Err.
type HealthStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Block is a block row as returned by full-text search. The SQL path returns
// raw rows instead ([]map[string]any) because arbitrary SELECTs have no fixed
// shape.
type Block struct {
	ID      string `json:"id"`
	RootID  string `json:"rootID"`
	Box     string `json:"box"`
	HPath   string `json:"hPath"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Type    string `json:"type"`
	Updated string `json:"updated"`
}

// BlockInfo is the metadata view of a block.
type BlockInfo struct {
	ID      string `json:"id"`
	RootID  string `json:"rootID"`
	Box     string `json:"box"`
	HPath   string `json:"hPath"`
	Name    string `json:"name"`
	Updated string `json:"updated"`
}

// BlockKramdown is the canonical markdown-with-attributes source of a block.
type BlockKramdown struct {
	ID       string `json:"id"`
	Kramdown string `json:"kramdown"`
}

// Notebook is one notebook ("box") in the note store.
type Notebook struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

// FullTextOptions controls pagination of a full-text search.
type FullTextOptions struct {
	Page int
	Size int
	Sort int
}

// WriteResult is the normalized outcome of a write-side call. The raw data
// shape varies across store versions; normalizeWriteResult folds them all
// into a single created/updated block id.
type WriteResult struct {
	ID string `json:"id"`
}
