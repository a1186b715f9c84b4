package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Index.SyncIntervalMs != 300000 {
		t.Errorf("Default() syncIntervalMs = %d, want 300000", cfg.Index.SyncIntervalMs)
	}
	if cfg.Recall.MaxContextTokens != 2000 {
		t.Errorf("Default() maxContextTokens = %d, want 2000", cfg.Recall.MaxContextTokens)
	}
	if cfg.Recall.TwoStage.PerDocBlockCap != 6 {
		t.Errorf("Default() perDocBlockCap = %d, want 6", cfg.Recall.TwoStage.PerDocBlockCap)
	}
	if cfg.LinkedDoc.MaxCount != 3 {
		t.Errorf("Default() linkedDoc.maxCount = %d, want 3", cfg.LinkedDoc.MaxCount)
	}
	if len(cfg.Recall.SearchPaths) != 3 {
		t.Errorf("Default() searchPaths = %v, want all three paths", cfg.Recall.SearchPaths)
	}
}

func TestLoadPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	content := `
siyuan:
  apiUrl: http://file.example:6806
  apiToken: file-token
index:
  dbPath: ` + filepath.Join(tmpDir, "idx.db") + `
recall:
  maxDocs: 7
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("SIYUAN_API_URL", "http://env.example:6806")
	t.Setenv("SIYUAN_API_TOKEN", "")

	overrides := map[string]any{
		"recall": map[string]any{"maxDocs": 9},
	}

	cfg, err := Load(cfgPath, overrides)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Env beats file.
	if cfg.Siyuan.APIURL != "http://env.example:6806" {
		t.Errorf("APIURL = %q, want env value", cfg.Siyuan.APIURL)
	}
	// File value survives when env is unset.
	if cfg.Siyuan.APIToken != "file-token" {
		t.Errorf("APIToken = %q, want file-token", cfg.Siyuan.APIToken)
	}
	// Gateway override beats file.
	if cfg.Recall.MaxDocs != 9 {
		t.Errorf("MaxDocs = %d, want gateway override 9", cfg.Recall.MaxDocs)
	}
	// Defaults survive for untouched keys.
	if cfg.Recall.MinPromptLength != 6 {
		t.Errorf("MinPromptLength = %d, want default 6", cfg.Recall.MinPromptLength)
	}
}

func TestLoadLegacyLinkedDocSection(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	content := `
index:
  dbPath: ` + filepath.Join(tmpDir, "idx.db") + `
recall:
  linkedDoc:
    enabled: true
    hostKeywords: ["allowed.example.com"]
    maxCount: 2
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(cfgPath, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LinkedDoc.MaxCount != 2 {
		t.Errorf("LinkedDoc.MaxCount = %d, want 2 from legacy section", cfg.LinkedDoc.MaxCount)
	}
	if len(cfg.LinkedDoc.HostKeywords) != 1 || cfg.LinkedDoc.HostKeywords[0] != "allowed.example.com" {
		t.Errorf("LinkedDoc.HostKeywords = %v, want legacy value", cfg.LinkedDoc.HostKeywords)
	}
	if cfg.Recall.LinkedDoc != nil {
		t.Error("Recall.LinkedDoc should be cleared after folding")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty api url", func(c *Config) { c.Siyuan.APIURL = "" }},
		{"zero timeout", func(c *Config) { c.Siyuan.TimeoutMs = 0 }},
		{"missing db path", func(c *Config) { c.Index.DBPath = "" }},
		{"zero sync interval", func(c *Config) { c.Index.SyncIntervalMs = 0 }},
		{"zero max docs", func(c *Config) { c.Recall.MaxDocs = 0 }},
		{"unknown search path", func(c *Config) { c.Recall.SearchPaths = []string{"vector"} }},
		{"negative linked-doc count", func(c *Config) { c.LinkedDoc.MaxCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

func TestExcludedNotebookNames(t *testing.T) {
	idx := IndexConfig{
		PrivacyNotebook:   "Private",
		ArchiveNotebook:   "Archive",
		SkipNotebookNames: []string{"Archive", "Drafts", "  "},
	}

	names := idx.ExcludedNotebookNames()
	want := []string{"Private", "Archive", "Drafts"}
	if len(names) != len(want) {
		t.Fatalf("ExcludedNotebookNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ExcludedNotebookNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
