package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
name: "market-sync"
host: "127.0.0.1"
port: 8080
log_level: "INFO"
scope: "crypto"
watchlist:
  - "BTCUSDT"
storage:
  db_type: "sqlite"
  db_path: "test.db"
snapshot:
  base_url: "https://api.test"
stream:
  url: "wss://stream.test/ws"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

// -----------------------------------------------------------------------------

func TestNewConfigValid(t *testing.T) {
	cfg, err := NewConfig(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if cfg.Name != "market-sync" || cfg.Port != 8080 {
		t.Fatalf("fields not loaded: %+v", cfg.MConfig)
	}
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	cfg, err := NewConfig(writeTempConfig(t, validYAML))
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	if cfg.Stream.DebounceMs != 200 {
		t.Fatalf("debounce default missing: %d", cfg.Stream.DebounceMs)
	}
	if cfg.Stream.FlushIntervalMs != 200 {
		t.Fatalf("flush interval default missing: %d", cfg.Stream.FlushIntervalMs)
	}
	if cfg.Stream.BackoffMaxMs != 30000 {
		t.Fatalf("backoff cap default missing: %d", cfg.Stream.BackoffMaxMs)
	}
	if cfg.Cache.TTLSeconds != 30 {
		t.Fatalf("cache TTL default missing: %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Series.Timeframe != "1m" {
		t.Fatalf("timeframe default missing: %q", cfg.Series.Timeframe)
	}
	if cfg.Series.RetentionDays != 7 {
		t.Fatalf("retention default missing: %d", cfg.Series.RetentionDays)
	}
}

func TestNewConfigRejectsInvalid(t *testing.T) {
	if _, err := NewConfig(writeTempConfig(t, "name: \"a\"\nhost: \"h\"\nport: 80\n")); err == nil {
		t.Fatalf("privileged port accepted")
	}

	noWatchlist := `
name: "market-sync"
host: "127.0.0.1"
port: 8080
storage:
  db_type: "sqlite"
  db_path: "test.db"
snapshot:
  base_url: "https://api.test"
stream:
  url: "wss://stream.test/ws"
`
	if _, err := NewConfig(writeTempConfig(t, noWatchlist)); err == nil {
		t.Fatalf("empty watchlist accepted")
	}

	noDBPath := `
name: "market-sync"
host: "127.0.0.1"
port: 8080
watchlist: ["BTCUSDT"]
storage:
  db_type: "sqlite"
snapshot:
  base_url: "https://api.test"
stream:
  url: "wss://stream.test/ws"
`
	if _, err := NewConfig(writeTempConfig(t, noDBPath)); err == nil {
		t.Fatalf("sqlite without path accepted")
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	if _, err := NewConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	path := writeTempConfig(t, validYAML)
	cfg, err := NewConfig(path)
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.Watchlist = []string{"BTCUSDT", "ETHUSDT"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reloaded, err := NewConfig(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if len(reloaded.Watchlist) != 2 || reloaded.Watchlist[1] != "ETHUSDT" {
		t.Fatalf("watchlist not persisted: %v", reloaded.Watchlist)
	}
}
