package config

import (
	"time"

	"github.com/vietddude/explorer/internal/aggregation/recency"
	redisclient "github.com/vietddude/explorer/internal/infra/redis"
	"github.com/vietddude/explorer/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Database postgres.Config    `yaml:"database"`
	Redis    redisclient.Config `yaml:"redis"`
	Cache    CacheConfig        `yaml:"cache"`
	Query    QueryConfig        `yaml:"query"`
	Logging  LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig controls the Redis result cache. Disabled means every read recomputes.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// QueryConfig holds the query engine settings.
type QueryConfig struct {
	Timeout        time.Duration  `yaml:"timeout"`
	HeadTTL        time.Duration  `yaml:"head_ttl"` // 0 disables high-water mark caching
	EstimateWindow uint64         `yaml:"estimate_window"`
	Blocks         recency.Config `yaml:"blocks"`
	Transactions   recency.Config `yaml:"transactions"`
	Transfers      recency.Config `yaml:"transfers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
