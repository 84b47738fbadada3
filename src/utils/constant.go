package utils

import "math"

// -----------------------------------------------------------------------------

// Constants for data retention and series sizing.
// Assuming standard trading day of 6.5 hours at 1-minute buckets = 390 points.
// Rounded up to 400 for safety; 24h markets get capped by the same bound.
const (
	DefaultRetentionDays = 7

	// DefaultDebounceMs is the quiet period for visibility changes.
	DefaultDebounceMs = 200

	// DefaultFlushIntervalMs is the minimum gap between UI publishes.
	DefaultFlushIntervalMs = 200

	// DefaultCacheTTLSeconds bounds how long a cached view is worth painting.
	DefaultCacheTTLSeconds = 30
)

// -----------------------------------------------------------------------------

// CalculateMaxDataPoints calculates the series length bound from retention
// days, approx 400 points per day (covering 6.5h market hours).
func CalculateMaxDataPoints(days int) int {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return int(math.Ceil(float64(days) * 400))
}
