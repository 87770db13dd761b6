package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSAllowedOrigins == nil {
		cfg.Server.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Server.SearchRateLimit > 0 && cfg.Server.SearchRateBurst <= 0 {
		cfg.Server.SearchRateBurst = int(cfg.Server.SearchRateLimit) + 1
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/shiori/data/db/docs.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/shiori/data/indices/bleve"
	}
	if cfg.Source.BaseURL == "" {
		cfg.Source.BaseURL = "https://api.notion.com/v1"
	}
	if cfg.Source.APIVersion == "" {
		cfg.Source.APIVersion = "2022-06-28"
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 30 * time.Second
	}
	if cfg.Source.PageSize <= 0 || cfg.Source.PageSize > 100 {
		cfg.Source.PageSize = 100
	}
	if cfg.Source.RequestsPerSecond == 0 {
		cfg.Source.RequestsPerSecond = 3
	}
	if cfg.Publish.Concurrency <= 0 {
		cfg.Publish.Concurrency = 2
	}
	if cfg.Publish.BatchSize <= 0 {
		cfg.Publish.BatchSize = 50
	}
	if cfg.Publish.PreviewLength <= 0 {
		cfg.Publish.PreviewLength = 200
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.KeywordTitleBoost == 0 {
		cfg.Search.KeywordTitleBoost = 10.0
	}
}
