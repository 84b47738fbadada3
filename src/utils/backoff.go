package utils

import "math"

// -----------------------------------------------------------------------------
// Reconnect backoff policy. Pure: same inputs, same output.
// -----------------------------------------------------------------------------

const (
	// BackoffBaseMs is the delay for the first retry.
	BackoffBaseMs = 1000.0

	// backoffCapAttempts bounds the exponent so the cap is reached within a
	// handful of attempts and the shift can never overflow.
	backoffCapAttempts = 10
)

// -----------------------------------------------------------------------------

// NextDelay maps a retry attempt count to a delay in milliseconds,
// exponential from BackoffBaseMs and capped at maxMs. Monotonically
// non-decreasing in attempt, always >= 0.
func NextDelay(attempt int, maxMs float64) float64 {
	return NextDelayFrom(BackoffBaseMs, attempt, maxMs)
}

// -----------------------------------------------------------------------------

// NextDelayFrom is NextDelay with a configurable base.
func NextDelayFrom(baseMs float64, attempt int, maxMs float64) float64 {
	if maxMs < 0 {
		maxMs = 0
	}
	if baseMs <= 0 {
		baseMs = BackoffBaseMs
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > backoffCapAttempts {
		attempt = backoffCapAttempts
	}

	delay := baseMs * math.Pow(2, float64(attempt))
	return math.Min(maxMs, delay)
}
