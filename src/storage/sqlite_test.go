package storage

import (
	"path/filepath"
	"testing"
	"time"

	"market-sync/src/logger"
	"market-sync/src/models"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	cfg := &models.MConfig{
		Storage: models.MStorageConfig{
			DBType: "sqlite",
			DBPath: filepath.Join(t.TempDir(), "test.db"),
		},
	}
	db, err := NewSQLiteDB(cfg, logger.NewLogger("ERROR", "test"))
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// -----------------------------------------------------------------------------

func TestSQLiteCandleRoundTrip(t *testing.T) {
	db := newTestDB(t)

	in := []models.MCandle{
		{Time: 60000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Time: 120000, Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
		{Time: 180000, Open: 2.5, High: 4, Low: 2, Close: 3.5, Volume: 30},
	}
	if err := db.SaveCandlesBulk("BTCUSDT", "1m", in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, err := db.LoadRecentCandles("BTCUSDT", "1m", 10)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(out))
	}
	// Ascending order for the series store.
	if out[0].Time != 60000 || out[2].Time != 180000 {
		t.Fatalf("wrong order: %d..%d", out[0].Time, out[2].Time)
	}
	if out[1].Close != 2.5 {
		t.Fatalf("values lost: %+v", out[1])
	}
}

func TestSQLiteCandleUpsert(t *testing.T) {
	db := newTestDB(t)

	db.SaveCandlesBulk("BTCUSDT", "1m", []models.MCandle{{Time: 60000, Close: 1}})
	db.SaveCandlesBulk("BTCUSDT", "1m", []models.MCandle{{Time: 60000, Close: 9}})

	out, err := db.LoadRecentCandles("BTCUSDT", "1m", 10)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("upsert duplicated a candle: %d", len(out))
	}
	if out[0].Close != 9 {
		t.Fatalf("upsert kept the stale value: %f", out[0].Close)
	}
}

func TestSQLiteLoadRespectsLimitAndKeys(t *testing.T) {
	db := newTestDB(t)

	var candles []models.MCandle
	for i := int64(1); i <= 5; i++ {
		candles = append(candles, models.MCandle{Time: i * 60000, Close: float64(i)})
	}
	db.SaveCandlesBulk("BTCUSDT", "1m", candles)
	db.SaveCandlesBulk("BTCUSDT", "5m", []models.MCandle{{Time: 60000, Close: 99}})

	out, err := db.LoadRecentCandles("BTCUSDT", "1m", 2)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	// Limit keeps the most recent, returned ascending.
	if len(out) != 2 || out[0].Time != 240000 || out[1].Time != 300000 {
		t.Fatalf("limit wrong: %+v", out)
	}

	other, _ := db.LoadRecentCandles("ETHUSDT", "1m", 10)
	if len(other) != 0 {
		t.Fatalf("leaked candles across symbols: %d", len(other))
	}
}

func TestSQLiteRowsSnapshot(t *testing.T) {
	db := newTestDB(t)

	rows := []models.MRow{
		{
			Key:           "BTCUSDT",
			Static:        map[string]string{"name": "Bitcoin"},
			Live:          map[string]float64{"price": 61000},
			LastUpdatedAt: 1700000000000,
		},
	}
	if err := db.SaveRowsSnapshot(rows); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Second save upserts, no duplicate key error.
	rows[0].Live["price"] = 62000
	if err := db.SaveRowsSnapshot(rows); err != nil {
		t.Fatalf("re-save failed: %v", err)
	}

	var count int
	if err := db.DB.QueryRow("SELECT COUNT(*) FROM rows_snapshot;").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
}

func TestSQLiteCleanupOldData(t *testing.T) {
	db := newTestDB(t)

	old := time.Now().AddDate(0, 0, -30).UnixMilli()
	fresh := time.Now().UnixMilli()
	db.SaveCandlesBulk("BTCUSDT", "1m", []models.MCandle{
		{Time: old, Close: 1},
		{Time: fresh, Close: 2},
	})

	if err := db.CleanupOldData(7); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	out, _ := db.LoadRecentCandles("BTCUSDT", "1m", 10)
	if len(out) != 1 || out[0].Time != fresh {
		t.Fatalf("cleanup wrong: %+v", out)
	}

	// Non-positive retention is a no-op, not a wipe.
	if err := db.CleanupOldData(0); err != nil {
		t.Fatalf("no-op cleanup errored: %v", err)
	}
	out, _ = db.LoadRecentCandles("BTCUSDT", "1m", 10)
	if len(out) != 1 {
		t.Fatalf("zero retention wiped data")
	}
}
