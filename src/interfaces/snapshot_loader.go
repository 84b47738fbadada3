package interfaces

import "market-sync/src/models"

// -----------------------------------------------------------------------------
// ISnapshotLoader defines the contract for bootstrap/page REST fetches.
// Cursor values are opaque; "" means no continuation.
// -----------------------------------------------------------------------------

type ISnapshotLoader interface {

	// -----------------------------------------------------------------------------

	// BootstrapTable fetches the first page of the row table for a scope/window.
	BootstrapTable(scope, window string, limit int) (*models.MSnapshotPage, error)

	// -----------------------------------------------------------------------------

	// PageTable fetches a continuation page. Safe to call repeatedly with the
	// same cursor; dedup is the merge engine's job, not the loader's.
	PageTable(scope, window string, limit int, cursor string) (*models.MSnapshotPage, error)

	// -----------------------------------------------------------------------------

	// BootstrapSeries fetches the first page of candle history for one symbol.
	BootstrapSeries(symbol, timeframe string, limit int) (*models.MCandlePage, error)

	// -----------------------------------------------------------------------------

	// PageSeries fetches a continuation page of candle history.
	PageSeries(symbol, timeframe string, limit int, cursor string) (*models.MCandlePage, error)
}
