package interfaces

import "market-sync/src/models"

// -----------------------------------------------------------------------------
// IDatabase defines the contract for local persistence of merged state.
// Used for warm start and durable history; the in-memory stores stay
// authoritative.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveCandlesBulk upserts a batch of candles for a symbol/timeframe.
	SaveCandlesBulk(symbol, timeframe string, candles []models.MCandle) error

	// -----------------------------------------------------------------------------

	// LoadRecentCandles returns up to limit most recent candles, ascending by time.
	LoadRecentCandles(symbol, timeframe string, limit int) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// SaveRowsSnapshot upserts the current row table.
	SaveRowsSnapshot(rows []models.MRow) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes candles older than the retention policy.
	CleanupOldData(retentionDays int) error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
