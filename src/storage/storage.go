package storage

import "time"

// -----------------------------------------------------------------------------

// cutoffMs returns the unix-ms timestamp before which candles are stale.
func cutoffMs(retentionDays int) int64 {
	return time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
}
