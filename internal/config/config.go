// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file >
// embedded config > defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Guliveer/devdash/internal/models"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "500ms", "30s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all dashboard configuration.
type Config struct {
	Sources   SourcesConfig   `yaml:"sources"`
	Installer InstallerConfig `yaml:"installer"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Logging   LoggingConfig   `yaml:"logging"`
	UI        UIConfig        `yaml:"ui"`
}

// SourcesConfig holds the per-source polling settings.
type SourcesConfig struct {
	CPU     models.SourceConfig `yaml:"cpu"`
	Memory  models.SourceConfig `yaml:"memory"`
	Disk    models.SourceConfig `yaml:"disk"`
	Network models.SourceConfig `yaml:"network"`
	GPU     models.SourceConfig `yaml:"gpu"`
	System  models.SourceConfig `yaml:"system"`

	// PhysicalInterfacesOnly hides loopback, bridge and virtual interfaces.
	PhysicalInterfacesOnly bool `yaml:"physical_interfaces_only"`
	// UnavailableBackoff multiplies the interval of a source that reported
	// its device absent.
	UnavailableBackoff int `yaml:"unavailable_backoff"`
}

// For returns the settings of category c.
func (s SourcesConfig) For(c models.Category) models.SourceConfig {
	switch c {
	case models.CategoryCPU:
		return s.CPU
	case models.CategoryMemory:
		return s.Memory
	case models.CategoryDisk:
		return s.Disk
	case models.CategoryNetwork:
		return s.Network
	case models.CategoryGPU:
		return s.GPU
	case models.CategorySystem:
		return s.System
	default:
		return models.SourceConfig{}
	}
}

// Map returns the settings keyed by category.
func (s SourcesConfig) Map() map[models.Category]models.SourceConfig {
	out := make(map[models.Category]models.SourceConfig, models.NumCategories)
	for _, c := range models.Categories {
		out[c] = s.For(c)
	}
	return out
}

// InstallerConfig holds install job settings.
type InstallerConfig struct {
	DownloadDir            string   `yaml:"download_dir"`
	MaxAttempts            int      `yaml:"max_attempts"`
	BaseRetryDelay         Duration `yaml:"base_retry_delay"`
	MaxRetryDelay          Duration `yaml:"max_retry_delay"`
	MaxConcurrentDownloads int      `yaml:"max_concurrent_downloads"`
	RetentionLimit         int      `yaml:"retention_limit"`
	RequestTimeout         Duration `yaml:"request_timeout"`
	// KeepInstallers leaves downloaded executables on disk after they run.
	KeepInstallers bool `yaml:"keep_installers"`
}

// CatalogConfig holds package catalog settings.
type CatalogConfig struct {
	// File replaces the built-in package list when set.
	File string `yaml:"file"`
	// ManifestURL is an optional endpoint returning per-package manifests;
	// "{id}" is replaced by the package id.
	ManifestURL string `yaml:"manifest_url"`
	// DownloadURL is the installer URL template used without a manifest.
	DownloadURL string `yaml:"download_url"`
	// DetectInterval is how often installed state is refreshed.
	DetectInterval Duration `yaml:"detect_interval"`
}

// ArchiveConfig holds settings for the finished-job archive.
type ArchiveConfig struct {
	Backend string `yaml:"backend"` // file, sqlite or none
	// Path is the archive directory; the sqlite backend keeps jobs.db in it.
	Path      string `yaml:"path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// UIConfig holds terminal dashboard settings.
type UIConfig struct {
	FrameRate int  `yaml:"frame_rate"`
	Smoothing bool `yaml:"smoothing"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Sources: SourcesConfig{
			CPU:                    models.SourceConfig{Enabled: true, IntervalMS: 1000, TimeoutMS: 800, StaleAfterMS: 5000},
			Memory:                 models.SourceConfig{Enabled: true, IntervalMS: 1000, TimeoutMS: 800, StaleAfterMS: 5000},
			Disk:                   models.SourceConfig{Enabled: true, IntervalMS: 5000, TimeoutMS: 2000, StaleAfterMS: 20000},
			Network:                models.SourceConfig{Enabled: true, IntervalMS: 500, TimeoutMS: 400, StaleAfterMS: 3000},
			GPU:                    models.SourceConfig{Enabled: true, IntervalMS: 1000, TimeoutMS: 1500, StaleAfterMS: 6000},
			System:                 models.SourceConfig{Enabled: true, IntervalMS: 10000, TimeoutMS: 5000, StaleAfterMS: 60000},
			PhysicalInterfacesOnly: true,
			UnavailableBackoff:     10,
		},
		Installer: InstallerConfig{
			DownloadDir:            filepath.Join(dataDir, "downloads"),
			MaxAttempts:            3,
			BaseRetryDelay:         Duration{1 * time.Second},
			MaxRetryDelay:          Duration{30 * time.Second},
			MaxConcurrentDownloads: 2,
			RetentionLimit:         20,
			RequestTimeout:         Duration{30 * time.Second},
		},
		Catalog: CatalogConfig{
			DownloadURL:    "https://ninite.com/{id}/ninite.exe",
			DetectInterval: Duration{2 * time.Second},
		},
		Archive: ArchiveConfig{
			Backend:   "file",
			Path:      filepath.Join(dataDir, "archive"),
			MaxSizeMB: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "devdash.log"),
		},
		UI: UIConfig{
			FrameRate: 20,
			Smoothing: true,
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take precedence over values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	LogLevel       string
	ManifestURL    string
	DownloadDir    string
	ArchiveBackend string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", filePath, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.ManifestURL != "" {
		cfg.Catalog.ManifestURL = cli.ManifestURL
	}
	if cli.DownloadDir != "" {
		cfg.Installer.DownloadDir = cli.DownloadDir
	}
	if cli.ArchiveBackend != "" {
		cfg.Archive.Backend = cli.ArchiveBackend
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if level := os.Getenv("DEVDASH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if u := os.Getenv("DEVDASH_MANIFEST_URL"); u != "" {
		cfg.Catalog.ManifestURL = u
	}
	if dir := os.Getenv("DEVDASH_DOWNLOAD_DIR"); dir != "" {
		cfg.Installer.DownloadDir = dir
	}
	if backend := os.Getenv("DEVDASH_ARCHIVE_BACKEND"); backend != "" {
		cfg.Archive.Backend = backend
	}
	if n, err := strconv.Atoi(os.Getenv("DEVDASH_MAX_DOWNLOADS")); err == nil && n > 0 {
		cfg.Installer.MaxConcurrentDownloads = n
	}
}

// minInterval keeps a misconfigured source from spinning.
const minInterval = 50

// Validate checks that the configuration is usable. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	for _, cat := range models.Categories {
		sc := c.Sources.For(cat)
		if !sc.Enabled {
			continue
		}
		if sc.IntervalMS < minInterval {
			errs = append(errs, fmt.Errorf("sources.%s.interval_ms must be at least %d (got %d)", cat, minInterval, sc.IntervalMS))
		}
		if sc.TimeoutMS < 0 || sc.StaleAfterMS < 0 {
			errs = append(errs, fmt.Errorf("sources.%s: timeout_ms and stale_after_ms must not be negative", cat))
		}
	}
	if c.Sources.UnavailableBackoff < 1 {
		errs = append(errs, fmt.Errorf("sources.unavailable_backoff must be at least 1"))
	}

	in := c.Installer
	if in.DownloadDir == "" {
		errs = append(errs, fmt.Errorf("installer.download_dir is required"))
	}
	if in.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("installer.max_attempts must be at least 1"))
	}
	if in.MaxConcurrentDownloads < 1 {
		errs = append(errs, fmt.Errorf("installer.max_concurrent_downloads must be at least 1"))
	}
	if in.RetentionLimit < 1 {
		errs = append(errs, fmt.Errorf("installer.retention_limit must be at least 1"))
	}
	if in.BaseRetryDelay.Duration <= 0 || in.MaxRetryDelay.Duration < in.BaseRetryDelay.Duration {
		errs = append(errs, fmt.Errorf("installer retry delays must satisfy 0 < base_retry_delay <= max_retry_delay"))
	}

	if err := ValidateURL("catalog.manifest_url", c.Catalog.ManifestURL); err != nil {
		errs = append(errs, err)
	}
	if c.Catalog.DetectInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("catalog.detect_interval must be positive"))
	}
	if c.Catalog.DownloadURL == "" {
		errs = append(errs, fmt.Errorf("catalog.download_url is required"))
	} else if err := ValidateURL("catalog.download_url", c.Catalog.DownloadURL); err != nil {
		errs = append(errs, err)
	}

	switch c.Archive.Backend {
	case "file", "sqlite":
		if c.Archive.Path == "" {
			errs = append(errs, fmt.Errorf("archive.path is required for backend %q", c.Archive.Backend))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("archive.backend must be file, sqlite or none (got %q)", c.Archive.Backend))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error (got %q)", c.Logging.Level))
	}

	if c.UI.FrameRate < 1 || c.UI.FrameRate > 120 {
		errs = append(errs, fmt.Errorf("ui.frame_rate must be between 1 and 120 (got %d)", c.UI.FrameRate))
	}

	return errors.Join(errs...)
}

// ValidateURL requires HTTPS except for localhost, which is allowed for
// development and tests. An empty value is valid.
func ValidateURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(strings.ReplaceAll(raw, "{id}", "x"))
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme == "https" {
		return nil
	}
	host := u.Hostname()
	if u.Scheme == "http" && (host == "localhost" || host == "127.0.0.1") {
		return nil
	}
	return fmt.Errorf("%s must use HTTPS (got: %s)", field, raw)
}
