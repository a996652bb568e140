package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port       int              `json:"port"`
	CORSAllow  []string         `json:"cors_allow"`
	LogConfig  logger.LogConfig `json:"log_config"`
	Database   DatabaseConfig   `json:"database"`
	AI         AIConfig         `json:"ai"`
	Source     SourceConfig     `json:"source"`
	Ingest     IngestConfig     `json:"ingest"`
	Schedule   ScheduleConfig   `json:"schedule"`
	WebhookSec string           `json:"webhook_secret"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider     string      `json:"provider"`
	EmbedModel   string      `json:"embed_model"`
	Dimension    int         `json:"dimension"`
	BatchSize    int         `json:"batch_size"`
	BatchDelayMS int         `json:"batch_delay_ms"`
	CacheSize    int         `json:"cache_size"`
	CacheTTLMin  int         `json:"cache_ttl_minutes"`
	DBCache      bool        `json:"db_cache"`
	Data         interface{} `json:"data"`
}

type SourceConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type IngestConfig struct {
	ChunkSize          int      `json:"chunk_size"`
	MinChunkSize       int      `json:"min_chunk_size"`
	MaxFiles           int      `json:"max_files"`
	MaxChunks          int      `json:"max_chunks"`
	SupportedExts      []string `json:"supported_extensions"`
	ExcludedPaths      []string `json:"excluded_paths"`
	ExcludedExtensions []string `json:"excluded_extensions"`
}

type ScheduleConfig struct {
	SyncSpec       string `json:"sync_spec"`
	ReconcileSpec  string `json:"reconcile_spec"`
	StaleAfterMins int    `json:"stale_after_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.Dimension == 0 {
		cfg.AI.Dimension = 768
	}
	if cfg.AI.BatchSize == 0 {
		cfg.AI.BatchSize = 5
	}
	if cfg.AI.BatchDelayMS == 0 {
		cfg.AI.BatchDelayMS = 50
	}
	if cfg.Source.Type == "" {
		return nil, fmt.Errorf("source.type is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 512
	}
	if cfg.Ingest.MinChunkSize == 0 {
		cfg.Ingest.MinChunkSize = 10
	}
	if len(cfg.Ingest.SupportedExts) == 0 {
		cfg.Ingest.SupportedExts = []string{".md", ".txt", ".mdx", ".rst"}
	}
	if len(cfg.Ingest.ExcludedPaths) == 0 {
		cfg.Ingest.ExcludedPaths = []string{".git", ".github", "node_modules", ".DS_Store"}
	}
	if len(cfg.Ingest.ExcludedExtensions) == 0 {
		cfg.Ingest.ExcludedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".pdf"}
	}
	if cfg.Schedule.StaleAfterMins == 0 {
		cfg.Schedule.StaleAfterMins = 120
	}
	return &cfg, nil
}
