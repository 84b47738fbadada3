package helpers

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MarketSyncError struct {
	Message string
	Cause   error
}

func (e *MarketSyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MarketSyncError) Unwrap() error {
	return e.Cause
}

// -----------------------------------------------------------------------------

// NetworkError covers transport-level failures (dial, timeout, read).
type NetworkError struct{ MarketSyncError }

// DatabaseError covers persistence failures.
type DatabaseError struct{ MarketSyncError }

// DecodeError covers malformed payloads. Per-message, never fatal.
type DecodeError struct{ MarketSyncError }

// -----------------------------------------------------------------------------

// SnapshotError is an HTTP-level snapshot fetch failure. It is surfaced to
// the caller for an explicit user-triggered retry, never auto-retried.
type SnapshotError struct {
	MarketSyncError
	StatusCode int
}

func NewSnapshotError(statusCode int, message string, cause error) *SnapshotError {
	return &SnapshotError{
		MarketSyncError: MarketSyncError{Message: message, Cause: cause},
		StatusCode:      statusCode,
	}
}

func (e *SnapshotError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("snapshot fetch failed (status %d): %s", e.StatusCode, e.MarketSyncError.Error())
	}
	return fmt.Sprintf("snapshot fetch failed: %s", e.MarketSyncError.Error())
}

// -----------------------------------------------------------------------------

// StreamStalledError is the terminal error handed to a consumer when
// reconnects are clearly not making progress. Transient drops never surface.
type StreamStalledError struct {
	MarketSyncError
	FailedRounds int
}

func NewStreamStalledError(rounds int, cause error) *StreamStalledError {
	return &StreamStalledError{
		MarketSyncError: MarketSyncError{
			Message: fmt.Sprintf("stream made no progress after %d reconnect rounds", rounds),
			Cause:   cause,
		},
		FailedRounds: rounds,
	}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times
// with exponential backoff. Used for persistence writes, never for snapshot
// fetches (those are the caller's decision) nor stream reconnects (the
// subscription manager owns that loop).
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		fmt.Printf("Warning: Attempt %d/%d failed for %s: %v. Retrying in %v\n", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return lastErr
}
