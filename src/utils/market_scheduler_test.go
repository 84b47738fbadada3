package utils

import (
	"testing"
	"time"

	"market-sync/src/logger"
)

func TestGetCalendarCryptoAlwaysOpen(t *testing.T) {
	for _, key := range []string{"BINANCE:BTCUSDT", "BTCUSDT", "COINBASE:ETH-USD"} {
		cal := GetCalendar(key)
		if !cal.AlwaysOpen {
			t.Fatalf("key %q should be always open", key)
		}
		if !cal.IsOpenOnMinute(time.Date(2026, 1, 4, 3, 0, 0, 0, time.UTC)) {
			t.Fatalf("always-open calendar reported closed")
		}
	}
}

func TestGetCalendarEquityHasSessions(t *testing.T) {
	cal := GetCalendar("NYSE:AAPL")
	if cal.AlwaysOpen {
		t.Fatalf("equity venue resolved to always-open")
	}

	// Sunday 03:00 UTC is outside any NYSE session, fallback or not.
	sunday := time.Date(2026, 1, 4, 3, 0, 0, 0, time.UTC)
	if cal.IsOpenOnMinute(sunday) {
		t.Fatalf("NYSE open on a Sunday night")
	}
}

func TestSchedulerEmptyNeverOpen(t *testing.T) {
	ms := NewMarketScheduler(nil, logger.NewLogger("ERROR", "test"))
	if ms.AnyMarketOpen() {
		t.Fatalf("empty scheduler reported a market open")
	}
}

func TestSchedulerCryptoAlwaysOpen(t *testing.T) {
	ms := NewMarketScheduler([]string{"BINANCE:BTCUSDT"}, logger.NewLogger("ERROR", "test"))
	if !ms.AnyMarketOpen() {
		t.Fatalf("crypto watchlist reported closed")
	}
}

func TestSchedulerUpdateKeys(t *testing.T) {
	ms := NewMarketScheduler([]string{"BINANCE:BTCUSDT"}, logger.NewLogger("ERROR", "test"))
	ms.UpdateKeys(nil)
	if ms.AnyMarketOpen() {
		t.Fatalf("scheduler kept stale calendars after update")
	}
	ms.UpdateKeys([]string{"ETHUSDT"})
	if !ms.AnyMarketOpen() {
		t.Fatalf("updated watchlist not mapped")
	}
}
