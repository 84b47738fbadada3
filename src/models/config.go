package models

// MConfig Structure
type MConfig struct {
	Name      string          `yaml:"name"`
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	LogLevel  string          `yaml:"log_level"`
	Scope     string          `yaml:"scope"` // e.g. "crypto", "us-equities"
	Watchlist []string        `yaml:"watchlist"`
	Storage   MStorageConfig  `yaml:"storage"`
	Network   MNetworkConfig  `yaml:"network"`
	Snapshot  MSnapshotConfig `yaml:"snapshot"`
	Stream    MStreamConfig   `yaml:"stream"`
	Cache     MCacheConfig    `yaml:"cache"`
	Series    MSeriesConfig   `yaml:"series"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"` // seconds
	UserAgent      string `yaml:"user_agent"`
}

type MSnapshotConfig struct {
	BaseURL               string `yaml:"base_url"`
	PageLimit             int    `yaml:"page_limit"`
	ResyncIntervalSeconds int    `yaml:"resync_interval_seconds"`
}

type MStreamConfig struct {
	URL             string `yaml:"url"`
	Token           string `yaml:"token"` // optional, .env STREAM_TOKEN wins
	DebounceMs      int    `yaml:"debounce_ms"`
	FlushIntervalMs int    `yaml:"flush_interval_ms"`
	BackoffBaseMs   int    `yaml:"backoff_base_ms"`
	BackoffMaxMs    int    `yaml:"backoff_max_ms"`
	StallThreshold  int    `yaml:"stall_threshold"` // reconnect rounds before surfacing an error
}

type MCacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

type MSeriesConfig struct {
	Timeframe     string `yaml:"timeframe"`
	RetentionDays int    `yaml:"retention_days"`
}
