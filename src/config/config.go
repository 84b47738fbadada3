package config

import (
	"fmt"
	"os"

	"market-sync/src/models"
	"market-sync/src/utils"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills timer and sizing knobs that are safe to leave out of
// the YAML file. Endpoints and storage stay mandatory.
func (c *Config) applyDefaults() {
	if c.Stream.DebounceMs <= 0 {
		c.Stream.DebounceMs = utils.DefaultDebounceMs
	}
	if c.Stream.FlushIntervalMs <= 0 {
		c.Stream.FlushIntervalMs = utils.DefaultFlushIntervalMs
	}
	if c.Stream.BackoffBaseMs <= 0 {
		c.Stream.BackoffBaseMs = int(utils.BackoffBaseMs)
	}
	if c.Stream.BackoffMaxMs <= 0 {
		c.Stream.BackoffMaxMs = 30000
	}
	if c.Stream.StallThreshold <= 0 {
		c.Stream.StallThreshold = 8
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = utils.DefaultCacheTTLSeconds
	}
	if c.Series.RetentionDays <= 0 {
		c.Series.RetentionDays = utils.DefaultRetentionDays
	}
	if c.Series.Timeframe == "" {
		c.Series.Timeframe = "1m"
	}
	if c.Snapshot.PageLimit <= 0 {
		c.Snapshot.PageLimit = 200
	}
	if c.Snapshot.ResyncIntervalSeconds <= 0 {
		c.Snapshot.ResyncIntervalSeconds = 300
	}
	if c.Network.RequestTimeout <= 0 {
		c.Network.RequestTimeout = 10
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate endpoints
	if c.Snapshot.BaseURL == "" {
		return fmt.Errorf("snapshot base_url cannot be empty")
	}
	if c.Stream.URL == "" {
		return fmt.Errorf("stream url cannot be empty")
	}

	// Validate Watchlist
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must contain at least one symbol")
	}
	for i, sym := range c.Watchlist {
		if sym == "" {
			return fmt.Errorf("watchlist entry %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
