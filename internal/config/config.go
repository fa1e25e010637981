// Package config loads layered configuration: hardcoded defaults, then a
// user-global config file, then a project-local override file, then
// AGENT_SESSIONS_* environment variables (highest precedence).
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete agent-sessions configuration.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Search      SearchConfig      `yaml:"search" json:"search"`
	Providers   ProvidersConfig   `yaml:"providers" json:"providers"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// SearchConfig configures the hybrid lexical/semantic fusion (spec §4.7).
// The three floors and the weight split were left as open questions in the
// spec ("appear tuned empirically; they should be configurable") and are
// resolved here as configurable fields defaulting to the documented values.
type SearchConfig struct {
	// LexicalWeight and SemanticWeight must sum to 1.0.
	LexicalWeight  float64 `yaml:"lexical_weight" json:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// CosineFloor drops a session from the semantic pass below this
	// similarity.
	CosineFloor float64 `yaml:"cosine_floor" json:"cosine_floor"`

	// CombinedFloor drops a fused result below this score.
	CombinedFloor float64 `yaml:"combined_floor" json:"combined_floor"`

	// NormalizationFloor is the lower bound of min-max normalization.
	NormalizationFloor float64 `yaml:"normalization_floor" json:"normalization_floor"`

	// MaxResults is the default result count when a caller doesn't specify
	// one.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// ProvidersConfig configures which harnesses participate in indexing and
// the per-harness time windows used for orphaned-child matching (spec §9
// open question: a 24h window for long-running harnesses vs 2h elsewhere).
type ProvidersConfig struct {
	// Enabled restricts indexing to these harness names. Empty means every
	// available provider participates.
	Enabled []string `yaml:"enabled" json:"enabled"`

	// ChildLinkWindow is the fallback modification-time window (e.g. "2h")
	// used to match an unlinked child session to a parent when no exact
	// task-invocation timestamp is available.
	ChildLinkWindow string `yaml:"child_link_window" json:"child_link_window"`

	// LongRunningWindow and LongRunningHarnesses are loaded, merged and
	// parsed (LongRunningWindowDuration) like the other settings, but no
	// indexer, provider or Read API code reads them: every harness is
	// matched with ChildLinkWindow.
	LongRunningWindow    string   `yaml:"long_running_window" json:"long_running_window"`
	LongRunningHarnesses []string `yaml:"long_running_harnesses" json:"long_running_harnesses"`
}

// EmbeddingsConfig configures the Embedder (spec §4.5: a remote,
// credential-gated HTTP client, plus a static hash-based embedder that is
// used only when selected explicitly).
type EmbeddingsConfig struct {
	// Provider selects "remote" or "static". Empty selects remote; without
	// an API key the remote provider yields a NullEmbedder, so semantic
	// search is unavailable rather than running on static vectors.
	Provider  string `yaml:"provider" json:"provider"`
	Model     string `yaml:"model" json:"model"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
	// CacheSize bounds the query-embedding LRU cache entry count.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// PerformanceConfig configures indexing throughput and storage tuning.
type PerformanceConfig struct {
	IndexWorkers  int `yaml:"index_workers" json:"index_workers"`
	SQLiteCacheMB int `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
	// IncrementalMaxAge, if set (e.g. "720h"), skips never-before-indexed
	// sessions older than this during an incremental update.
	IncrementalMaxAge string `yaml:"incremental_max_age" json:"incremental_max_age"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig returns a Config populated with documented defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			LexicalWeight:      0.3,
			SemanticWeight:     0.7,
			CosineFloor:        0.35,
			CombinedFloor:      0.2,
			NormalizationFloor: 0.5,
			MaxResults:         50,
		},
		Providers: ProvidersConfig{
			Enabled:              nil, // all available providers
			ChildLinkWindow:      "2h",
			LongRunningWindow:    "24h",
			LongRunningHarnesses: []string{"claude-code"},
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "", // auto-detect
			Model:     "",
			Endpoint:  "",
			BatchSize: 32,
			CacheSize: 512,
		},
		Performance: PerformanceConfig{
			IndexWorkers:      runtime.NumCPU(),
			SQLiteCacheMB:     64,
			IncrementalMaxAge: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file,
// following the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/agent-sessions/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/agent-sessions/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agent-sessions", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "agent-sessions", "config.yaml")
	}
	return filepath.Join(home, ".config", "agent-sessions", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// DefaultStorePath returns the default path to the Store's single SQLite
// file: ~/.cache/agent-sessions/sessions.db.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "agent-sessions", "sessions.db")
	}
	return filepath.Join(home, ".cache", "agent-sessions", "sessions.db")
}

// loadUserConfig loads the user/global configuration file if it exists.
// A nil config and nil error means no user config is present, which is
// fine.
func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// LoadUserConfig loads the user configuration file. Returns a nil config
// and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load loads configuration with increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/agent-sessions/config.yaml)
//  3. Project config (.agent-sessions.yaml in dir)
//  4. AGENT_SESSIONS_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load .agent-sessions.yaml or .agent-sessions.yml
// from dir. No file present is fine; defaults (or user config) stand.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".agent-sessions.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}
	ymlPath := filepath.Join(dir, ".agent-sessions.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero fields from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Search.LexicalWeight != 0 {
		c.Search.LexicalWeight = other.Search.LexicalWeight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.CosineFloor != 0 {
		c.Search.CosineFloor = other.Search.CosineFloor
	}
	if other.Search.CombinedFloor != 0 {
		c.Search.CombinedFloor = other.Search.CombinedFloor
	}
	if other.Search.NormalizationFloor != 0 {
		c.Search.NormalizationFloor = other.Search.NormalizationFloor
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if len(other.Providers.Enabled) > 0 {
		c.Providers.Enabled = other.Providers.Enabled
	}
	if other.Providers.ChildLinkWindow != "" {
		c.Providers.ChildLinkWindow = other.Providers.ChildLinkWindow
	}
	if other.Providers.LongRunningWindow != "" {
		c.Providers.LongRunningWindow = other.Providers.LongRunningWindow
	}
	if len(other.Providers.LongRunningHarnesses) > 0 {
		c.Providers.LongRunningHarnesses = other.Providers.LongRunningHarnesses
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Endpoint != "" {
		c.Embeddings.Endpoint = other.Embeddings.Endpoint
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Performance.IndexWorkers != 0 {
		c.Performance.IndexWorkers = other.Performance.IndexWorkers
	}
	if other.Performance.SQLiteCacheMB != 0 {
		c.Performance.SQLiteCacheMB = other.Performance.SQLiteCacheMB
	}
	if other.Performance.IncrementalMaxAge != "" {
		c.Performance.IncrementalMaxAge = other.Performance.IncrementalMaxAge
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}

// applyEnvOverrides applies AGENT_SESSIONS_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AGENT_SESSIONS_LEXICAL_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("AGENT_SESSIONS_SEMANTIC_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("AGENT_SESSIONS_COSINE_FLOOR"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 && f <= 1 {
			c.Search.CosineFloor = f
		}
	}
	if v := os.Getenv("AGENT_SESSIONS_COMBINED_FLOOR"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 && f <= 1 {
			c.Search.CombinedFloor = f
		}
	}
	if v := os.Getenv("AGENT_SESSIONS_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("AGENT_SESSIONS_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("AGENT_SESSIONS_EMBED_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("AGENT_SESSIONS_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("AGENT_SESSIONS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// parseFloat64 parses a string to float64.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// ChildLinkWindowDuration parses ProvidersConfig.ChildLinkWindow, falling
// back to 2h on an empty or unparsable value.
func (c *Config) ChildLinkWindowDuration() time.Duration {
	return parseDurationOr(c.Providers.ChildLinkWindow, 2*time.Hour)
}

// LongRunningWindowDuration parses ProvidersConfig.LongRunningWindow,
// falling back to 24h on an empty or unparsable value.
func (c *Config) LongRunningWindowDuration() time.Duration {
	return parseDurationOr(c.Providers.LongRunningWindow, 24*time.Hour)
}

// IncrementalMaxAgeDuration parses Performance.IncrementalMaxAge, returning
// zero (no cutoff) when unset or unparsable.
func (c *Config) IncrementalMaxAgeDuration() time.Duration {
	return parseDurationOr(c.Performance.IncrementalMaxAge, 0)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.LexicalWeight < 0 || c.Search.LexicalWeight > 1 {
		return fmt.Errorf("search.lexical_weight must be between 0 and 1, got %f", c.Search.LexicalWeight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	sum := c.Search.LexicalWeight + c.Search.SemanticWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search.lexical_weight + search.semantic_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.CosineFloor < 0 || c.Search.CosineFloor > 1 {
		return fmt.Errorf("search.cosine_floor must be between 0 and 1, got %f", c.Search.CosineFloor)
	}
	if c.Search.CombinedFloor < 0 || c.Search.CombinedFloor > 1 {
		return fmt.Errorf("search.combined_floor must be between 0 and 1, got %f", c.Search.CombinedFloor)
	}
	if c.Search.NormalizationFloor < 0 || c.Search.NormalizationFloor > 1 {
		return fmt.Errorf("search.normalization_floor must be between 0 and 1, got %f", c.Search.NormalizationFloor)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"remote": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'remote', 'static', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeNewDefaults adds new default fields while preserving existing
// values, for upgrading a config file written by an older version. Returns
// the field names that were added.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Search.LexicalWeight == 0 {
		c.Search.LexicalWeight = defaults.Search.LexicalWeight
		added = append(added, "search.lexical_weight")
	}
	if c.Search.SemanticWeight == 0 {
		c.Search.SemanticWeight = defaults.Search.SemanticWeight
		added = append(added, "search.semantic_weight")
	}
	if c.Search.CosineFloor == 0 {
		c.Search.CosineFloor = defaults.Search.CosineFloor
		added = append(added, "search.cosine_floor")
	}
	if c.Search.CombinedFloor == 0 {
		c.Search.CombinedFloor = defaults.Search.CombinedFloor
		added = append(added, "search.combined_floor")
	}
	if c.Search.NormalizationFloor == 0 {
		c.Search.NormalizationFloor = defaults.Search.NormalizationFloor
		added = append(added, "search.normalization_floor")
	}
	if c.Performance.SQLiteCacheMB == 0 {
		c.Performance.SQLiteCacheMB = defaults.Performance.SQLiteCacheMB
		added = append(added, "performance.sqlite_cache_mb")
	}
	if c.Embeddings.CacheSize == 0 {
		c.Embeddings.CacheSize = defaults.Embeddings.CacheSize
		added = append(added, "embeddings.cache_size")
	}

	return added
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
