package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the sidecar.
// Precedence: defaults < config file < gateway overrides < environment.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Listen    ListenConfig    `yaml:"listen"`
	Siyuan    SiyuanConfig    `yaml:"siyuan"`
	Index     IndexConfig     `yaml:"index"`
	Recall    RecallConfig    `yaml:"recall"`
	LinkedDoc LinkedDocConfig `yaml:"linkedDoc"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ListenConfig controls the sidecar HTTP listener.
type ListenConfig struct {
	Addr string `yaml:"addr"`
}

// SiyuanConfig holds the remote note-store connection settings.
type SiyuanConfig struct {
	APIURL    string `yaml:"apiUrl"`
	APIToken  string `yaml:"apiToken"`
	TimeoutMs int    `yaml:"timeoutMs"`
}

// IndexConfig controls the local index and the sync service.
type IndexConfig struct {
	Enabled                bool     `yaml:"enabled"`
	DBPath                 string   `yaml:"dbPath"`
	SyncIntervalMs         int      `yaml:"syncIntervalMs"`
	PrivacyNotebook        string   `yaml:"privacyNotebook"`
	ArchiveNotebook        string   `yaml:"archiveNotebook"`
	SkipNotebookNames      []string `yaml:"skipNotebookNames"`
	SectionHeadingLevels   []int    `yaml:"sectionHeadingLevels"`
	MaxSectionsToIndex     int      `yaml:"maxSectionsToIndex"`
	SectionMaxChars        int      `yaml:"sectionMaxChars"`
	SectionDedupWindowSize int      `yaml:"sectionDedupWindowSize"`
	DocContentDedupWindow  int      `yaml:"docContentDedupWindowSize"`
	SQLPageSize            int      `yaml:"sqlPageSize"`
	MaxConcurrentFetches   int      `yaml:"maxConcurrentFetches"`
	CleanupAgeDays         int      `yaml:"cleanupAgeDays"`
}

// ExcludedNotebookNames resolves the full exclusion set, folding the
// privacy/archive shorthands into skipNotebookNames.
func (c IndexConfig) ExcludedNotebookNames() []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	add(c.PrivacyNotebook)
	add(c.ArchiveNotebook)
	for _, n := range c.SkipNotebookNames {
		add(n)
	}
	return names
}

// RecallConfig controls gating, retrieval and formatting.
type RecallConfig struct {
	Enabled          bool           `yaml:"enabled"`
	MinPromptLength  int            `yaml:"minPromptLength"`
	MaxContextTokens int            `yaml:"maxContextTokens"`
	MaxDocs          int            `yaml:"maxDocs"`
	MaxKeywords      int            `yaml:"maxKeywords"`
	SearchPaths      []string       `yaml:"searchPaths"`
	TopicKeywords    []string       `yaml:"topicKeywords"`
	SkipIntentTypes  []string       `yaml:"skipIntentTypes"`
	BlockExcerptMax  int            `yaml:"blockExcerptMaxChars"`
	TwoStage         TwoStageConfig `yaml:"twoStage"`
	// LinkedDoc is accepted here for backward compatibility with older
	// config files; Load folds it into the top-level LinkedDoc section.
	LinkedDoc *LinkedDocConfig `yaml:"linkedDoc"`
}

// TwoStageConfig controls the candidate-recall / rerank split.
type TwoStageConfig struct {
	Enabled               bool `yaml:"enabled"`
	CandidateLimitPerPath int  `yaml:"candidateLimitPerPath"`
	FinalBlockLimit       int  `yaml:"finalBlockLimit"`
	PerDocBlockCap        int  `yaml:"perDocBlockCap"`
}

// LinkedDocConfig controls inline note-link resolution.
type LinkedDocConfig struct {
	Enabled      bool     `yaml:"enabled"`
	HostKeywords []string `yaml:"hostKeywords"`
	MaxCount     int      `yaml:"maxCount"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Listen: ListenConfig{Addr: ":9081"},
		Siyuan: SiyuanConfig{
			APIURL:    "http://127.0.0.1:6806",
			TimeoutMs: 10000,
		},
		Index: IndexConfig{
			Enabled:                true,
			DBPath:                 "./data/recall-index.db",
			SyncIntervalMs:         5 * 60 * 1000,
			SectionHeadingLevels:   []int{2},
			MaxSectionsToIndex:     200,
			SectionMaxChars:        1200,
			SectionDedupWindowSize: 200,
			DocContentDedupWindow:  400,
			SQLPageSize:            200,
			MaxConcurrentFetches:   4,
			CleanupAgeDays:         30,
		},
		Recall: RecallConfig{
			Enabled:          true,
			MinPromptLength:  6,
			MaxContextTokens: 2000,
			MaxDocs:          5,
			MaxKeywords:      12,
			SearchPaths:      []string{"fts", "fulltext", "sql"},
			SkipIntentTypes:  []string{"chat", "command"},
			BlockExcerptMax:  540,
			TwoStage: TwoStageConfig{
				Enabled:               true,
				CandidateLimitPerPath: 100,
				FinalBlockLimit:       40,
				PerDocBlockCap:        6,
			},
		},
		LinkedDoc: LinkedDocConfig{
			Enabled:  true,
			MaxCount: 3,
		},
	}
}

// Load builds the merged configuration. The file path may be empty, in which
// case only defaults, gateway overrides and environment apply. Gateway
// overrides arrive as raw maps from the chat gateway's plugin settings.
func Load(filePath string, gatewayOverrides map[string]any) (*Config, error) {
	loadDotEnv()

	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
		}
	}

	if len(gatewayOverrides) > 0 {
		// Round-trip the override map through YAML so the same struct tags
		// and coercions apply as for the file.
		raw, err := yaml.Marshal(gatewayOverrides)
		if err != nil {
			return nil, fmt.Errorf("failed to encode gateway overrides: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to apply gateway overrides: %w", err)
		}
	}

	// Backward compatibility: linkedDoc nested under recall.
	if cfg.Recall.LinkedDoc != nil {
		cfg.LinkedDoc = *cfg.Recall.LinkedDoc
		cfg.Recall.LinkedDoc = nil
	}

	// Environment overrides apply last.
	if v := os.Getenv("SIYUAN_API_URL"); v != "" {
		cfg.Siyuan.APIURL = v
	}
	if v := os.Getenv("SIYUAN_API_TOKEN"); v != "" {
		cfg.Siyuan.APIToken = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Index.Enabled {
		dataDir := filepath.Dir(cfg.Index.DBPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks the merged configuration for values the sidecar cannot run
// with. It fails fast so a broken deployment never starts half-working.
func (c *Config) Validate() error {
	if c.Siyuan.APIURL == "" {
		return fmt.Errorf("siyuan.apiUrl is required")
	}
	if c.Siyuan.TimeoutMs <= 0 {
		return fmt.Errorf("siyuan.timeoutMs must be positive, got %d", c.Siyuan.TimeoutMs)
	}
	if c.Index.Enabled && c.Index.DBPath == "" {
		return fmt.Errorf("index.dbPath is required when index.enabled")
	}
	if c.Index.SyncIntervalMs <= 0 {
		return fmt.Errorf("index.syncIntervalMs must be positive, got %d", c.Index.SyncIntervalMs)
	}
	if c.Recall.MaxContextTokens <= 0 {
		return fmt.Errorf("recall.maxContextTokens must be positive, got %d", c.Recall.MaxContextTokens)
	}
	if c.Recall.MaxDocs <= 0 {
		return fmt.Errorf("recall.maxDocs must be positive, got %d", c.Recall.MaxDocs)
	}
	for _, p := range c.Recall.SearchPaths {
		switch p {
		case "fts", "fulltext", "sql":
		default:
			return fmt.Errorf("recall.searchPaths contains unknown path %q", p)
		}
	}
	if c.LinkedDoc.MaxCount < 0 {
		return fmt.Errorf("linkedDoc.maxCount must not be negative, got %d", c.LinkedDoc.MaxCount)
	}
	return nil
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadDotEnv loads a .env file from the current directory or any parent up to
// the module root. Variables already set in the environment take precedence.
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
}
