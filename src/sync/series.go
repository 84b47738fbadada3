package sync

import (
	"sort"

	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// SeriesStore holds one ordered, de-duplicated OHLCV series.
//
// Invariants after every operation:
//   - Time strictly increasing, at most one point per timestamp
//   - length never exceeds maxLen (oldest points drop first)
//
// The store is exclusively owned by its engine; callers get copies.
// -----------------------------------------------------------------------------

type SeriesStore struct {
	points []models.MCandle
	maxLen int
}

// -----------------------------------------------------------------------------

func NewSeriesStore(maxLen int) *SeriesStore {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &SeriesStore{
		points: make([]models.MCandle, 0, maxLen),
		maxLen: maxLen,
	}
}

// -----------------------------------------------------------------------------

// Upsert merges one point into the series.
// Same timestamp as the last point replaces it (in-progress bucket update);
// newer appends; older falls back to a full rebuild so late arrivals can
// never corrupt ordering or duplicate a timestamp.
func (s *SeriesStore) Upsert(p models.MCandle) {
	n := len(s.points)

	if n == 0 {
		s.points = append(s.points, p)
		return
	}

	last := s.points[n-1].Time
	switch {
	case p.Time == last:
		s.points[n-1] = p

	case p.Time > last:
		s.points = append(s.points, p)
		if len(s.points) > s.maxLen {
			s.points = s.points[len(s.points)-s.maxLen:]
		}

	default:
		// Late arrival. O(n), acceptable while out-of-order points stay rare.
		s.rebuildWith(p)
	}
}

// -----------------------------------------------------------------------------

// rebuildWith re-indexes every point by timestamp, upserts p, re-sorts
// ascending and truncates from the oldest end.
func (s *SeriesStore) rebuildWith(p models.MCandle) {
	byTime := make(map[int64]models.MCandle, len(s.points)+1)
	for _, existing := range s.points {
		byTime[existing.Time] = existing
	}
	byTime[p.Time] = p

	rebuilt := make([]models.MCandle, 0, len(byTime))
	for _, c := range byTime {
		rebuilt = append(rebuilt, c)
	}
	sort.Slice(rebuilt, func(i, j int) bool { return rebuilt[i].Time < rebuilt[j].Time })

	if len(rebuilt) > s.maxLen {
		rebuilt = rebuilt[len(rebuilt)-s.maxLen:]
	}
	s.points = rebuilt
}

// -----------------------------------------------------------------------------

// ReplaceWithSnapshot resets the series from a bulk payload. Snapshots are
// authoritative: the incoming array is deduped by time (last occurrence
// wins), sorted ascending, bounded, and replaces the store wholesale.
func (s *SeriesStore) ReplaceWithSnapshot(candles []models.MCandle) {
	byTime := make(map[int64]models.MCandle, len(candles))
	for _, c := range candles {
		byTime[c.Time] = c
	}

	fresh := make([]models.MCandle, 0, len(byTime))
	for _, c := range byTime {
		fresh = append(fresh, c)
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Time < fresh[j].Time })

	if len(fresh) > s.maxLen {
		fresh = fresh[len(fresh)-s.maxLen:]
	}
	s.points = fresh
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the series, oldest first.
func (s *SeriesStore) Snapshot() []models.MCandle {
	out := make([]models.MCandle, len(s.points))
	copy(out, s.points)
	return out
}

// -----------------------------------------------------------------------------

// Len returns the current number of points.
func (s *SeriesStore) Len() int {
	return len(s.points)
}
