package utils

import (
	"sync"
	"time"

	"market-sync/src/logger"
)

// MarketScheduler maps tracked row keys to trading calendars so the periodic
// REST resync can skip closed markets instead of refetching a frozen table.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(keys []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
	}
	ms.MapKeysToCalendars(keys)
	return ms
}

// -----------------------------------------------------------------------------

// MapKeysToCalendars rebuilds the key -> calendar mapping from scratch;
// callers pass the full current set, not a diff.
func (ms *MarketScheduler) MapKeysToCalendars(keys []string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.Calendars = make(map[string]*TradingCalendar)

	for _, key := range keys {
		cal := GetCalendar(key)
		if cal != nil {
			ms.Calendars[key] = cal
		}
	}

	uniqueCals := make(map[*TradingCalendar]bool)
	for _, cal := range ms.Calendars {
		uniqueCals[cal] = true
	}

	ms.Logger.Info("MarketScheduler: Mapped %d keys to %d unique calendars.",
		len(keys), len(uniqueCals))
}

// UpdateKeys updates the scheduler with a new list of row keys
func (ms *MarketScheduler) UpdateKeys(keys []string) {
	ms.MapKeysToCalendars(keys)
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked market is currently open. An empty
// mapping reports false so an idle engine never schedules resyncs.
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := time.Now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	uniqueCals := make(map[*TradingCalendar]bool)
	for _, cal := range ms.Calendars {
		uniqueCals[cal] = true
	}

	if len(uniqueCals) == 0 {
		return false
	}

	for cal := range uniqueCals {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}

	return false
}
