package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	// Model is the Gemini model used for every generation call.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// APIKey is the Gemini API key. Usually supplied through GEMINI_API_KEY.
	// When empty, generation is unavailable and every stage falls back.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// SourceMaxChars is the maximum character count for a content source.
	SourceMaxChars int `json:"source_max_chars,omitempty" yaml:"source_max_chars,omitempty"`

	// Synthesis tunes the trigger policy and batch queue.
	Synthesis SynthesisConfig `json:"synthesis" yaml:"synthesis"`

	// BatchWorkers bounds how many realms drain their queue concurrently.
	BatchWorkers int `json:"batch_workers,omitempty" yaml:"batch_workers,omitempty"`

	// HTTPBind and HTTPPort control where `pathfinder serve` listens.
	HTTPBind string `json:"http_bind,omitempty" yaml:"http_bind,omitempty"`
	HTTPPort int    `json:"http_port,omitempty" yaml:"http_port,omitempty"`

	// HTTPAPIKey, when set, is required as a bearer token on every API request.
	HTTPAPIKey string `json:"http_api_key,omitempty" yaml:"http_api_key,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty" yaml:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty" yaml:"db_max_idle_conns,omitempty"`

	// ExportsDir is the default directory for source exports and imports.
	// Empty means <base dir>/exports, filled in at startup.
	ExportsDir string `json:"exports_dir,omitempty" yaml:"exports_dir,omitempty"`

	// AllowedPaths is an allowlist of extra directories for import/export.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlinks are still rejected.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty" yaml:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty" yaml:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "realm", "source", "synthesis", "job", "reflection".
	DisabledTypes []string `json:"disabled_types,omitempty" yaml:"disabled_types,omitempty"`
}

// SynthesisConfig holds the thresholds used to decide when to synthesize.
type SynthesisConfig struct {
	// HighWeightThreshold: sources at or above this weight synthesize immediately.
	HighWeightThreshold float64 `json:"high_weight_threshold,omitempty" yaml:"high_weight_threshold,omitempty"`

	// RecentWeightThreshold: within RecentWindowMinutes of the last synthesis,
	// sources below this weight are skipped.
	RecentWeightThreshold float64 `json:"recent_weight_threshold,omitempty" yaml:"recent_weight_threshold,omitempty"`
	RecentWindowMinutes   int     `json:"recent_window_minutes,omitempty" yaml:"recent_window_minutes,omitempty"`

	// SignificantRatio: a source whose share of the realm's content reaches
	// this ratio synthesizes immediately.
	SignificantRatio float64 `json:"significant_ratio,omitempty" yaml:"significant_ratio,omitempty"`

	// BatchThreshold: this many pending queue entries force a drain.
	BatchThreshold int `json:"batch_threshold,omitempty" yaml:"batch_threshold,omitempty"`

	// MinBatchSize is the minimum pending count for an explicit queue drain.
	MinBatchSize int `json:"min_batch_size,omitempty" yaml:"min_batch_size,omitempty"`

	// IncrementalRetries is how many times a merge is re-run after a version conflict.
	IncrementalRetries int `json:"incremental_retries,omitempty" yaml:"incremental_retries,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:          "gemini-2.5-flash",
		SourceMaxChars: 20000,
		Synthesis: SynthesisConfig{
			HighWeightThreshold:   3.0,
			RecentWeightThreshold: 2.5,
			RecentWindowMinutes:   60,
			SignificantRatio:      0.3,
			BatchThreshold:        5,
			MinBatchSize:          2,
			IncrementalRetries:    2,
		},
		BatchWorkers: 4,
		HTTPBind:     "127.0.0.1",
		HTTPPort:     8750,
		LogLevel:     "info",
	}
}

// Load loads configuration from baseDir/config.yaml, falling back to
// baseDir/config.json, then applies environment overrides.
// Returns default config (plus env) if neither file exists.
func Load(baseDir string) (*Config, error) {
	var file *Config
	var err error

	yamlPath := filepath.Join(baseDir, "config.yaml")
	if _, statErr := os.Stat(yamlPath); statErr == nil {
		file, err = loadFileRaw(yamlPath)
	} else {
		file, err = loadFileRaw(filepath.Join(baseDir, "config.json"))
	}
	if err != nil {
		return nil, err
	}

	cfg := ApplyEnv(Merge(DefaultConfig(), file), os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	return cfg, nil
}

// ApplyEnv overlays environment variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) *Config {
	if v := getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := getenv("PATHFINDER_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := getenv("PATHFINDER_API_KEY"); v != "" {
		cfg.HTTPAPIKey = v
	}
	if v := getenv("PATHFINDER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("PATHFINDER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = n
		}
	}
	return cfg
}

// Validate rejects configurations the synthesis policy cannot work with.
func (c *Config) Validate() error {
	s := c.Synthesis
	if s.SignificantRatio <= 0 || s.SignificantRatio > 1 {
		return fmt.Errorf("synthesis.significant_ratio must be in (0, 1], got %v", s.SignificantRatio)
	}
	if s.HighWeightThreshold < 0 || s.HighWeightThreshold > 5 {
		return fmt.Errorf("synthesis.high_weight_threshold must be in [0, 5], got %v", s.HighWeightThreshold)
	}
	if s.RecentWeightThreshold < 0 || s.RecentWeightThreshold > 5 {
		return fmt.Errorf("synthesis.recent_weight_threshold must be in [0, 5], got %v", s.RecentWeightThreshold)
	}
	if s.BatchThreshold < 1 || s.MinBatchSize < 1 {
		return fmt.Errorf("synthesis batch sizes must be positive")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", c.HTTPPort)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Model:          pickString(overlay.Model, base.Model),
		APIKey:         pickString(overlay.APIKey, base.APIKey),
		SourceMaxChars: pickInt(overlay.SourceMaxChars, base.SourceMaxChars),
		BatchWorkers:   pickInt(overlay.BatchWorkers, base.BatchWorkers),
		HTTPBind:       pickString(overlay.HTTPBind, base.HTTPBind),
		HTTPPort:       pickInt(overlay.HTTPPort, base.HTTPPort),
		HTTPAPIKey:     pickString(overlay.HTTPAPIKey, base.HTTPAPIKey),
		LogLevel:       pickString(overlay.LogLevel, base.LogLevel),
		DBMaxOpenConns: pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		ExportsDir:     pickString(overlay.ExportsDir, base.ExportsDir),
	}

	// Booleans: OR logic
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	bs, ov := base.Synthesis, overlay.Synthesis
	result.Synthesis = SynthesisConfig{
		HighWeightThreshold:   pickFloat(ov.HighWeightThreshold, bs.HighWeightThreshold),
		RecentWeightThreshold: pickFloat(ov.RecentWeightThreshold, bs.RecentWeightThreshold),
		RecentWindowMinutes:   pickInt(ov.RecentWindowMinutes, bs.RecentWindowMinutes),
		SignificantRatio:      pickFloat(ov.SignificantRatio, bs.SignificantRatio),
		BatchThreshold:        pickInt(ov.BatchThreshold, bs.BatchThreshold),
		MinBatchSize:          pickInt(ov.MinBatchSize, bs.MinBatchSize),
		IncrementalRetries:    pickInt(ov.IncrementalRetries, bs.IncrementalRetries),
	}

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickFloat(overlay, base float64) float64 {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
