package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"market-sync/src/logger"
	"market-sync/src/models"
)

// SQLite batch constants
const (
	sqliteMaxVars      = 32000
	candleParamsPerRow = 8
	sqliteBatchSize    = sqliteMaxVars / candleParamsPerRow // ~4000 rows
)

// -----------------------------------------------------------------------------

type SQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*SQLiteDB, error) {
	return &SQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) createTables() error {
	// Candles survive restarts for warm start, hence no DROP here.
	query := `
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			timeframe TEXT,
			time INTEGER,
			open REAL,
			high REAL,
			low REAL,
			close REAL,
			volume REAL,
			PRIMARY KEY (symbol, timeframe, time)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create candles: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS rows_snapshot (
			key TEXT PRIMARY KEY,
			static_json TEXT,
			live_json TEXT,
			last_updated_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create rows_snapshot: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// SaveCandlesBulk upserts candles in batches, respecting the SQLite bound
// variable limit.
func (d *SQLiteDB) SaveCandlesBulk(symbol, timeframe string, candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	for start := 0; start < len(candles); start += sqliteBatchSize {
		end := start + sqliteBatchSize
		if end > len(candles) {
			end = len(candles)
		}
		batch := candles[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]interface{}, 0, len(batch)*candleParamsPerRow)
		for _, c := range batch {
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, symbol, timeframe, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume)
		}

		query := fmt.Sprintf(`
			INSERT INTO candles (symbol, timeframe, time, open, high, low, close, volume)
			VALUES %s
			ON CONFLICT(symbol, timeframe, time) DO UPDATE SET
				open=excluded.open, high=excluded.high, low=excluded.low,
				close=excluded.close, volume=excluded.volume;
		`, strings.Join(placeholders, ", "))

		if _, err := d.DB.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to save candles batch: %w", err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// LoadRecentCandles returns up to limit most recent candles, ascending.
func (d *SQLiteDB) LoadRecentCandles(symbol, timeframe string, limit int) ([]models.MCandle, error) {
	rows, err := d.DB.Query(`
		SELECT time, open, high, low, close, volume FROM candles
		WHERE symbol = ? AND timeframe = ?
		ORDER BY time DESC LIMIT ?;
	`, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load candles: %w", err)
	}
	defer rows.Close()

	var out []models.MCandle
	for rows.Next() {
		var c models.MCandle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query was newest-first; flip to ascending for the series store.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// SaveRowsSnapshot upserts the current row table. Field maps go in as JSON;
// the table is read back only whole, never queried by field.
func (d *SQLiteDB) SaveRowsSnapshot(tableRows []models.MRow) error {
	if len(tableRows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO rows_snapshot (key, static_json, live_json, last_updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			static_json=excluded.static_json, live_json=excluded.live_json,
			last_updated_at=excluded.last_updated_at;
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range tableRows {
		staticJSON, _ := json.Marshal(r.Static)
		liveJSON, _ := json.Marshal(r.Live)
		if _, err := stmt.Exec(r.Key, string(staticJSON), string(liveJSON), r.LastUpdatedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save row %s: %w", r.Key, err)
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

// CleanupOldData removes candles older than the retention policy.
func (d *SQLiteDB) CleanupOldData(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := cutoffMs(retentionDays)

	if _, err := d.DB.Exec("DELETE FROM candles WHERE time < ?;", cutoff); err != nil {
		return fmt.Errorf("failed to cleanup candles: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteDB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
