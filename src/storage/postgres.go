package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"market-sync/src/logger"
	"market-sync/src/models"
)

// Postgres batch constants
const (
	pgMaxParams = 65535
	pgBatchSize = pgMaxParams / candleParamsPerRow // ~8000 rows
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	db, err := sql.Open("postgres", d.Config.Storage.DBConnectionString)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	d.DB = db
	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT,
			timeframe TEXT,
			time BIGINT,
			open DOUBLE PRECISION,
			high DOUBLE PRECISION,
			low DOUBLE PRECISION,
			close DOUBLE PRECISION,
			volume DOUBLE PRECISION,
			PRIMARY KEY (symbol, timeframe, time)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create candles: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS rows_snapshot (
			key TEXT PRIMARY KEY,
			static_json JSONB,
			live_json JSONB,
			last_updated_at BIGINT
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create rows_snapshot: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveCandlesBulk(symbol, timeframe string, candles []models.MCandle) error {
	if len(candles) == 0 {
		return nil
	}

	for start := 0; start < len(candles); start += pgBatchSize {
		end := start + pgBatchSize
		if end > len(candles) {
			end = len(candles)
		}
		batch := candles[start:end]

		placeholders := make([]string, 0, len(batch))
		args := make([]interface{}, 0, len(batch)*candleParamsPerRow)
		for i, c := range batch {
			base := i * candleParamsPerRow
			placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
			args = append(args, symbol, timeframe, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume)
		}

		query := fmt.Sprintf(`
			INSERT INTO candles (symbol, timeframe, time, open, high, low, close, volume)
			VALUES %s
			ON CONFLICT (symbol, timeframe, time) DO UPDATE SET
				open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low,
				close=EXCLUDED.close, volume=EXCLUDED.volume;
		`, strings.Join(placeholders, ", "))

		if _, err := d.DB.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to save candles batch: %w", err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadRecentCandles(symbol, timeframe string, limit int) ([]models.MCandle, error) {
	rows, err := d.DB.Query(`
		SELECT time, open, high, low, close, volume FROM candles
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY time DESC LIMIT $3;
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

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveRowsSnapshot(tableRows []models.MRow) error {
	if len(tableRows) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO rows_snapshot (key, static_json, live_json, last_updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET
			static_json=EXCLUDED.static_json, live_json=EXCLUDED.live_json,
			last_updated_at=EXCLUDED.last_updated_at;
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

func (d *PostgresDB) CleanupOldData(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := cutoffMs(retentionDays)

	if _, err := d.DB.Exec("DELETE FROM candles WHERE time < $1;", cutoff); err != nil {
		return fmt.Errorf("failed to cleanup candles: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
