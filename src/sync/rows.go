package sync

import (
	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// RowStore holds the keyed row table.
//
// Invariants:
//   - keys unique; key order append-only (later pages and deltas never
//     reshuffle established order)
//   - static fields set by snapshots only, never touched by deltas
//   - live fields merge field-by-field; absent fields keep previous values
//   - deltas for unknown keys are dropped (no orphan rows)
// -----------------------------------------------------------------------------

type RowStore struct {
	order []string
	rows  map[string]*models.MRow
}

// -----------------------------------------------------------------------------

func NewRowStore() *RowStore {
	return &RowStore{
		order: make([]string, 0, 64),
		rows:  make(map[string]*models.MRow),
	}
}

// -----------------------------------------------------------------------------

// ApplyDelta merges a batch of incoming items. Returns how many were
// applied; dropped orphans and empty items do not count.
func (s *RowStore) ApplyDelta(items []models.MRowDelta, nowMs int64) int {
	applied := 0

	for _, item := range items {
		if item.Key == "" {
			continue
		}

		row, exists := s.rows[item.Key]
		if !exists {
			if !item.Snapshot {
				// Deltas can only update rows a snapshot established.
				continue
			}
			row = &models.MRow{
				Key:    item.Key,
				Static: make(map[string]string),
				Live:   make(map[string]float64),
			}
			s.rows[item.Key] = row
			s.order = append(s.order, item.Key)
		}

		if item.Snapshot {
			for k, v := range item.Static {
				row.Static[k] = v
			}
		}

		priceOrVolumeChanged := false
		for k, v := range item.Live {
			row.Live[k] = v
			if k == "price" || k == "volume" {
				priceOrVolumeChanged = true
			}
		}

		// Derived turnover recomputes only when its direct inputs changed.
		if priceOrVolumeChanged {
			row.Live["turnover"] = row.Live["price"] * row.Live["volume"]
		}

		if item.Timestamp > 0 {
			row.LastUpdatedAt = item.Timestamp
		} else {
			row.LastUpdatedAt = nowMs
		}
		applied++
	}

	return applied
}

// -----------------------------------------------------------------------------

// ApplyPage ingests one REST snapshot page: the page order unions additively
// into the existing order, entities populate static fields, metrics populate
// live fields. Re-applying the same page is a no-op beyond value refresh.
func (s *RowStore) ApplyPage(page *models.MSnapshotPage, nowMs int64) int {
	if page == nil {
		return 0
	}

	items := make([]models.MRowDelta, 0, len(page.Order)+len(page.Entities)+len(page.Metrics))

	// Keys listed in order establish rows even before any fields arrive.
	for _, key := range page.Order {
		items = append(items, models.MRowDelta{Key: key, Snapshot: true, Timestamp: nowMs})
	}
	for _, ent := range page.Entities {
		items = append(items, models.MRowDelta{Key: ent.Key, Snapshot: true, Static: ent.Fields, Timestamp: nowMs})
	}
	for _, met := range page.Metrics {
		items = append(items, models.MRowDelta{Key: met.Key, Snapshot: true, Live: met.Fields, Timestamp: nowMs})
	}

	return s.ApplyDelta(items, nowMs)
}

// -----------------------------------------------------------------------------

// Order returns a copy of the current key order.
func (s *RowStore) Order() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// -----------------------------------------------------------------------------

// Rows returns a deep copy of the table keyed by row key.
func (s *RowStore) Rows() map[string]models.MRow {
	out := make(map[string]models.MRow, len(s.rows))
	for k, r := range s.rows {
		out[k] = r.Clone()
	}
	return out
}

// -----------------------------------------------------------------------------

// Get returns a copy of one row.
func (s *RowStore) Get(key string) (models.MRow, bool) {
	r, ok := s.rows[key]
	if !ok {
		return models.MRow{}, false
	}
	return r.Clone(), true
}

// -----------------------------------------------------------------------------

// Len returns the number of tracked rows.
func (s *RowStore) Len() int {
	return len(s.rows)
}
