package sync

import (
	"testing"

	"market-sync/src/models"
)

func candle(ts int64, close float64) models.MCandle {
	return models.MCandle{Time: ts, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

// -----------------------------------------------------------------------------

func assertOrdered(t *testing.T, points []models.MCandle) {
	t.Helper()
	for i := 1; i < len(points); i++ {
		if points[i].Time <= points[i-1].Time {
			t.Fatalf("ordering violated at %d: %d <= %d", i, points[i].Time, points[i-1].Time)
		}
	}
}

// -----------------------------------------------------------------------------

func TestSeriesUpsertAnyArrivalOrder(t *testing.T) {
	// Same points, three arrival orders, identical final series.
	arrivals := [][]int64{
		{100, 200, 300, 400},
		{400, 100, 300, 200},
		{200, 400, 200, 100, 300},
	}

	for _, order := range arrivals {
		s := NewSeriesStore(10)
		for _, ts := range order {
			s.Upsert(candle(ts, float64(ts)))
		}

		got := s.Snapshot()
		if len(got) != 4 {
			t.Fatalf("arrival %v: expected 4 points, got %d", order, len(got))
		}
		assertOrdered(t, got)
		for i, want := range []int64{100, 200, 300, 400} {
			if got[i].Time != want {
				t.Fatalf("arrival %v: point %d has time %d, want %d", order, i, got[i].Time, want)
			}
		}
	}
}

func TestSeriesSameTimestampReplaces(t *testing.T) {
	s := NewSeriesStore(10)
	s.Upsert(candle(100, 1.0))
	s.Upsert(candle(100, 2.0))
	s.Upsert(candle(100, 3.0))

	got := s.Snapshot()
	if len(got) != 1 {
		t.Fatalf("expected 1 point, got %d", len(got))
	}
	if got[0].Close != 3.0 {
		t.Fatalf("expected latest close 3.0, got %f", got[0].Close)
	}
}

func TestSeriesInProgressBucketThenNext(t *testing.T) {
	// Live bucket updates twice, then the next bucket opens.
	s := NewSeriesStore(10)
	s.Upsert(candle(60, 10))
	s.Upsert(candle(60, 11))
	s.Upsert(candle(120, 12))

	got := s.Snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if got[0].Close != 11 || got[1].Close != 12 {
		t.Fatalf("unexpected closes: %f %f", got[0].Close, got[1].Close)
	}
}

func TestSeriesMaxLenDropsOldest(t *testing.T) {
	s := NewSeriesStore(3)
	for ts := int64(1); ts <= 10; ts++ {
		s.Upsert(candle(ts*60, float64(ts)))
	}

	got := s.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected bounded length 3, got %d", len(got))
	}
	if got[0].Time != 480 || got[2].Time != 600 {
		t.Fatalf("expected newest 3 points kept, got times %d..%d", got[0].Time, got[2].Time)
	}
}

func TestSeriesLateArrivalRebuild(t *testing.T) {
	s := NewSeriesStore(10)
	s.Upsert(candle(100, 1))
	s.Upsert(candle(300, 3))
	s.Upsert(candle(200, 2)) // late

	got := s.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	assertOrdered(t, got)

	// A late arrival for an existing timestamp must replace, not duplicate.
	s.Upsert(candle(200, 2.5))
	got = s.Snapshot()
	if len(got) != 3 {
		t.Fatalf("late duplicate timestamp created a new point: %d", len(got))
	}
	if got[1].Close != 2.5 {
		t.Fatalf("expected replaced close 2.5, got %f", got[1].Close)
	}
}

func TestSeriesReplaceWithSnapshot(t *testing.T) {
	s := NewSeriesStore(10)
	s.Upsert(candle(999, 9))

	// Unsorted with a duplicate; last occurrence wins.
	s.ReplaceWithSnapshot([]models.MCandle{
		candle(300, 3),
		candle(100, 1),
		candle(300, 3.5),
		candle(200, 2),
	})

	got := s.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	assertOrdered(t, got)
	if got[2].Close != 3.5 {
		t.Fatalf("expected duplicate resolution to keep last value, got %f", got[2].Close)
	}
	if got[0].Time != 100 {
		t.Fatalf("old contents survived the snapshot reset")
	}
}

func TestSeriesSnapshotIsCopy(t *testing.T) {
	s := NewSeriesStore(10)
	s.Upsert(candle(100, 1))

	snap := s.Snapshot()
	snap[0].Close = 42

	if s.Snapshot()[0].Close != 1 {
		t.Fatalf("snapshot aliases internal storage")
	}
}
