package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"

	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
)

// Loader fetches bounded initial data sets over REST with cursor pagination.
// It performs no retries; callers decide when to refetch.
type Loader struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewLoader(baseURL string, netMgr interfaces.INetworkManager, log *logger.Logger) *Loader {
	return &Loader{
		BaseURL: baseURL,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// BootstrapTable fetches the first page of the row table.
func (l *Loader) BootstrapTable(scope, window string, limit int) (*models.MSnapshotPage, error) {
	return l.fetchTable(scope, window, limit, "")
}

// -----------------------------------------------------------------------------

// PageTable fetches a continuation page. Calling it twice with the same
// cursor is safe: the merge engine dedupes by key, not the loader.
func (l *Loader) PageTable(scope, window string, limit int, cursor string) (*models.MSnapshotPage, error) {
	return l.fetchTable(scope, window, limit, cursor)
}

// -----------------------------------------------------------------------------

func (l *Loader) fetchTable(scope, window string, limit int, cursor string) (*models.MSnapshotPage, error) {
	params := map[string]string{
		"scope":  scope,
		"window": window,
		"limit":  strconv.Itoa(limit),
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	body, err := l.Network.Get(l.BaseURL+"/v1/table", params)
	if err != nil {
		return nil, err
	}

	var page models.MSnapshotPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, helpers.NewSnapshotError(0, "malformed table page", err)
	}

	l.Logger.Debug("Table page: %d keys, %d entities, %d metrics, more=%v",
		len(page.Order), len(page.Entities), len(page.Metrics), page.CursorNext != "")
	return &page, nil
}

// -----------------------------------------------------------------------------

// BootstrapSeries fetches the first page of candle history for one symbol.
func (l *Loader) BootstrapSeries(symbol, timeframe string, limit int) (*models.MCandlePage, error) {
	return l.fetchSeries(symbol, timeframe, limit, "")
}

// -----------------------------------------------------------------------------

// PageSeries fetches a continuation page of candle history.
func (l *Loader) PageSeries(symbol, timeframe string, limit int, cursor string) (*models.MCandlePage, error) {
	return l.fetchSeries(symbol, timeframe, limit, cursor)
}

// -----------------------------------------------------------------------------

func (l *Loader) fetchSeries(symbol, timeframe string, limit int, cursor string) (*models.MCandlePage, error) {
	if symbol == "" {
		return nil, helpers.NewSnapshotError(0, "empty symbol", nil)
	}

	params := map[string]string{
		"symbol":    symbol,
		"timeframe": timeframe,
		"limit":     strconv.Itoa(limit),
	}
	if cursor != "" {
		params["cursor"] = cursor
	}

	body, err := l.Network.Get(fmt.Sprintf("%s/v1/candles", l.BaseURL), params)
	if err != nil {
		return nil, err
	}

	var page models.MCandlePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, helpers.NewSnapshotError(0, "malformed candle page", err)
	}

	l.Logger.Debug("Candle page for %s/%s: %d candles, more=%v",
		symbol, timeframe, len(page.Candles), page.CursorNext != "")
	return &page, nil
}
