package models

// -----------------------------------------------------------------------------
// Row Table Structures
// -----------------------------------------------------------------------------

// MRow is one entry of a keyed symbol table (e.g. "BINANCE:BTCUSDT").
// Static fields are set once by a snapshot and never touched by deltas.
// Live fields are merged field-by-field; a delta that omits a field keeps
// the previous value.
type MRow struct {
	Key           string             `json:"key"`
	Static        map[string]string  `json:"static"`
	Live          map[string]float64 `json:"live"`
	LastUpdatedAt int64              `json:"last_updated_at"` // unix ms
}

// -----------------------------------------------------------------------------

// Clone returns a deep copy so published snapshots never alias the store.
func (r MRow) Clone() MRow {
	c := MRow{
		Key:           r.Key,
		Static:        make(map[string]string, len(r.Static)),
		Live:          make(map[string]float64, len(r.Live)),
		LastUpdatedAt: r.LastUpdatedAt,
	}
	for k, v := range r.Static {
		c.Static[k] = v
	}
	for k, v := range r.Live {
		c.Live[k] = v
	}
	return c
}

// -----------------------------------------------------------------------------

// MRowDelta is one incoming row update. Snapshot rows may establish new keys
// and carry static fields; plain deltas only ever touch existing rows.
type MRowDelta struct {
	Key       string
	Snapshot  bool
	Static    map[string]string
	Live      map[string]float64
	Timestamp int64 // unix ms, 0 if the feed did not stamp it
}

// -----------------------------------------------------------------------------
// Snapshot Page (REST)
// -----------------------------------------------------------------------------

// MRowStatic carries the immutable part of a row in a snapshot page.
type MRowStatic struct {
	Key    string            `json:"key"`
	Fields map[string]string `json:"fields"`
}

// MRowMetrics carries the live numeric part of a row in a snapshot page.
type MRowMetrics struct {
	Key    string             `json:"key"`
	Fields map[string]float64 `json:"fields"`
}

// MSnapshotPage is one page of the bootstrap endpoint.
// CursorNext == "" means there are no further pages.
type MSnapshotPage struct {
	Order      []string      `json:"order"`
	Entities   []MRowStatic  `json:"entities"`
	Metrics    []MRowMetrics `json:"metrics"`
	CursorNext string        `json:"cursor_next"`
}

// -----------------------------------------------------------------------------

// MCandlePage is one page of the candle history endpoint.
type MCandlePage struct {
	Candles    []MCandle `json:"candles"`
	CursorNext string    `json:"cursor_next"`
}
