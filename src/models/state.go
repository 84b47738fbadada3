package models

// -----------------------------------------------------------------------------
// Published State Structure
// -----------------------------------------------------------------------------

// MPublishedState is the consistent view handed to consumers on every flush.
// Type is "INITIAL" for the first publish after a bootstrap, "UPDATE" after.
type MPublishedState struct {
	Type      string               `json:"type"`
	Order     []string             `json:"order"`
	Rows      map[string]MRow      `json:"rows"`
	Series    map[string][]MCandle `json:"series"` // keyed "SYMBOL:TIMEFRAME"
	Timestamp int64                `json:"timestamp"`
	Metrics   MSyncMetrics         `json:"sync_metrics"`
}

// -----------------------------------------------------------------------------

// MSyncMetrics counts what the engines have done since start.
type MSyncMetrics struct {
	MergesApplied     int64 `json:"merges_applied"`
	FlushesPublished  int64 `json:"flushes_published"`
	Reconnects        int64 `json:"reconnects"`
	DroppedMessages   int64 `json:"dropped_messages"`
	SnapshotPages     int64 `json:"snapshot_pages"`
	RowsTracked       int   `json:"rows_tracked"`
	SeriesPoints      int   `json:"series_points"`
	LastSnapshotAtMs  int64 `json:"last_snapshot_at_ms"`
	LastStreamAtMs    int64 `json:"last_stream_at_ms"`
}

// -----------------------------------------------------------------------------
// Watchlist command (gin control endpoint)
// -----------------------------------------------------------------------------

type MWatchlistCommand struct {
	Symbols   []string `json:"symbols"`
	Timeframe string   `json:"timeframe"`
}
