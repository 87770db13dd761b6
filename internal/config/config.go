// Package config provides configuration loading and structs for the shiori server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets from the config file.
const (
	EnvToken      = "NOTION_TOKEN"
	EnvRootPageID = "ROOT_PAGE_ID"
	EnvPublishKey = "PUBLISH_KEY"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Source  SourceConfig  `yaml:"source"`
	Publish PublishConfig `yaml:"publish"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// CORSAllowedOrigins lists origins allowed to call the API; "*" allows any.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	// SearchRateLimit caps search requests per second across clients. Zero disables it.
	SearchRateLimit float64 `yaml:"search_rate_limit"`
	SearchRateBurst int     `yaml:"search_rate_burst"`
}

// StorageConfig holds paths for the database and keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// SourceConfig holds workspace API settings.
type SourceConfig struct {
	Token             string        `yaml:"token"`
	RootPageID        string        `yaml:"root_page_id"`
	BaseURL           string        `yaml:"base_url"`
	APIVersion        string        `yaml:"api_version"`
	Timeout           time.Duration `yaml:"timeout"`
	PageSize          int           `yaml:"page_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// PublishConfig holds settings for a publish run.
type PublishConfig struct {
	// Key guards POST /api/publish. Empty disables the endpoint.
	Key           string `yaml:"key"`
	Concurrency   int    `yaml:"concurrency"`
	BatchSize     int    `yaml:"batch_size"`
	PreviewLength int    `yaml:"preview_length"`
}

// SearchConfig holds search settings.
type SearchConfig struct {
	DefaultLimit      int     `yaml:"default_limit"`
	MaxLimit          int     `yaml:"max_limit"`
	KeywordTitleBoost float64 `yaml:"keyword_title_boost"`
	Fuzzy             bool    `yaml:"fuzzy"`
}

// Load reads and parses the config file at path, applies environment overrides
// and defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Storage.BleveIndexPath != "" {
		cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	}

	return &cfg, nil
}

// ApplyEnv overrides secrets with values from the environment when set.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Source.Token = v
	}
	if v := os.Getenv(EnvRootPageID); v != "" {
		cfg.Source.RootPageID = v
	}
	if v := os.Getenv(EnvPublishKey); v != "" {
		cfg.Publish.Key = v
	}
}

// ValidateSource reports whether cfg has what a publish run needs.
func (c *Config) ValidateSource() error {
	var errs []error
	if strings.TrimSpace(c.Source.Token) == "" {
		errs = append(errs, fmt.Errorf("source token is required (set source.token or %s)", EnvToken))
	}
	if strings.TrimSpace(c.Source.RootPageID) == "" {
		errs = append(errs, fmt.Errorf("root page id is required (set source.root_page_id or %s)", EnvRootPageID))
	}
	return errors.Join(errs...)
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
