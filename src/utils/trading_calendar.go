package utils

import (
	"log"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// TradingCalendar calculates trading hours using scmhub/calendar.
// Crypto venues have no calendar and report always-open.
type TradingCalendar struct {
	Calendar   *calendar.Calendar
	AlwaysOpen bool
	Fallback   bool
	Timezone   *time.Location
}

// -----------------------------------------------------------------------------

// GetCalendar resolves a row key of the form "MARKET:SYMBOL" to a calendar.
// Market prefixes map to MIC codes (ISO 10383); unknown or crypto-style
// markets are treated as 24/7.
func GetCalendar(key string) *TradingCalendar {
	market := ""
	if i := strings.Index(key, ":"); i > 0 {
		market = strings.ToUpper(key[:i])
	}

	var mic string
	switch market {
	case "NYSE", "XNYS":
		mic = "xnys"
	case "NASDAQ", "XNAS":
		mic = "xnas"
	case "LSE", "XLON":
		mic = "xlon"
	case "EURONEXT", "XPAR":
		mic = "xpar"
	case "XETRA", "XFRA":
		mic = "xfra"
	case "TSE", "XTKS":
		mic = "xtks"
	case "HKEX", "XHKG":
		mic = "xhkg"
	case "ASX", "XASX":
		mic = "xasx"
	case "TSX", "XTSE":
		mic = "xtse"
	default:
		// BINANCE, COINBASE, unprefixed symbols: no session hours.
		return &TradingCalendar{AlwaysOpen: true}
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		cal = calendar.GetCalendar("xnys")
	}

	if cal == nil {
		log.Printf("WARNING: Failed to load calendar for MIC '%s' and fallback 'xnys'. Using simple fallback (Mon-Fri 09:30-16:00 NY).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.AlwaysOpen {
		return true
	}
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 NY Time
		if (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16 {
			return true
		}
		return false
	}

	return tc.Calendar.IsOpen(t)
}
