package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/explorer/internal/aggregation/recency"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration after expanding environment variables and applies
// defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given: in-memory store, no cache.
func Default() *AppConfig {
	var cfg AppConfig
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 30 * time.Second
	}

	if cfg.Query.Timeout == 0 {
		cfg.Query.Timeout = 10 * time.Second
	}
	if cfg.Query.EstimateWindow == 0 {
		cfg.Query.EstimateWindow = recency.DefaultEstimateWindow
	}
	// At least one block per height, and the newest blocks plus a small margin.
	if cfg.Query.Blocks.Density == 0 {
		cfg.Query.Blocks.Density = 1
	}
	if cfg.Query.Blocks.Margin == 0 {
		cfg.Query.Blocks.Margin = 10
	}
	// At least one transaction per ten blocks.
	if cfg.Query.Transactions.Density == 0 {
		cfg.Query.Transactions.Density = 0.1
	}
	if cfg.Query.Transactions.Margin == 0 {
		cfg.Query.Transactions.Margin = 100
	}
	if cfg.Query.Transfers.Density == 0 {
		cfg.Query.Transfers.Density = 0.01
	}
	if cfg.Query.Transfers.Margin == 0 {
		cfg.Query.Transfers.Margin = 1000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
