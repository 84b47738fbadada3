package stream

import (
	"encoding/json"
	"strings"

	"market-sync/src/helpers"
	"market-sync/src/models"
)

// -----------------------------------------------------------------------------
// Inbound message classification.
//
// Messages form a closed variant set produced by one validating decoder:
//   - KindSeriesSnapshot: bulk "candles" array, authoritative reset
//   - KindSeriesDelta:    single candle update
//   - KindTableSnapshot:  bulk "items" array of rows
//   - KindTableDelta:     sparse single-row update addressed by "symbol"
//   - KindUnknown:        anything else; dropped, never closes the socket
// -----------------------------------------------------------------------------

type Kind int

const (
	KindUnknown Kind = iota
	KindSeriesSnapshot
	KindSeriesDelta
	KindTableSnapshot
	KindTableDelta
)

// Message is one classified inbound payload.
type Message struct {
	Kind    Kind
	Candles []models.MCandle   // series payloads
	Items   []models.MRowDelta // table payloads
}

// -----------------------------------------------------------------------------

// rowStaticFields are treated as immutable identity fields when present in
// a snapshot row; everything else numeric is a live field.
var rowStaticFields = map[string]bool{
	"name":     true,
	"market":   true,
	"currency": true,
	"type":     true,
}

// rowControlFields never land in a row's field maps.
var rowControlFields = map[string]bool{
	"symbol":   true,
	"key":      true,
	"ts":       true,
	"snapshot": true,
}

// -----------------------------------------------------------------------------

// Decode classifies a raw payload. It never panics on malformed input; a
// payload that fits no variant comes back as KindUnknown with an error for
// logging.
func Decode(raw []byte) (Message, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Message{Kind: KindUnknown}, &helpers.DecodeError{MarketSyncError: helpers.MarketSyncError{Message: "not a JSON object", Cause: err}}
	}

	// Bulk array fields mark snapshots.
	if v, ok := obj["candles"]; ok {
		return decodeSeriesSnapshot(v)
	}
	if v, ok := obj["items"]; ok {
		return decodeTableSnapshot(v)
	}

	// A lone candle-shaped object is a series delta.
	if helpers.HasKey(obj, "time") && helpers.HasKey(obj, "close") {
		c, ok := decodeCandle(obj)
		if !ok {
			return Message{Kind: KindUnknown}, &helpers.DecodeError{MarketSyncError: helpers.MarketSyncError{Message: "unparseable candle delta"}}
		}
		return Message{Kind: KindSeriesDelta, Candles: []models.MCandle{c}}, nil
	}

	// A symbol-addressed object with a sparse field set is a table delta.
	if helpers.HasKey(obj, "symbol") || helpers.HasKey(obj, "key") {
		d, ok := decodeRowDelta(obj, false)
		if !ok {
			return Message{Kind: KindUnknown}, &helpers.DecodeError{MarketSyncError: helpers.MarketSyncError{Message: "unparseable row delta"}}
		}
		return Message{Kind: KindTableDelta, Items: []models.MRowDelta{d}}, nil
	}

	return Message{Kind: KindUnknown}, &helpers.DecodeError{MarketSyncError: helpers.MarketSyncError{Message: "unrecognized message shape"}}
}

// -----------------------------------------------------------------------------

func decodeSeriesSnapshot(v interface{}) (Message, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return Message{Kind: KindUnknown}, &helpers.DecodeError{MarketSyncError: helpers.MarketSyncError{Message: "candles is not an array"}}
	}

	candles := make([]models.MCandle, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue // skip the offending unit, keep the batch
		}
		if c, ok := decodeCandle(obj); ok {
			candles = append(candles, c)
		}
	}

	return Message{Kind: KindSeriesSnapshot, Candles: candles}, nil
}

// -----------------------------------------------------------------------------

func decodeTableSnapshot(v interface{}) (Message, error) {
	arr, ok := v.([]interface{})
	if !ok {
		return Message{Kind: KindUnknown}, &helpers.DecodeError{MarketSyncError: helpers.MarketSyncError{Message: "items is not an array"}}
	}

	items := make([]models.MRowDelta, 0, len(arr))
	for _, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if d, ok := decodeRowDelta(obj, true); ok {
			items = append(items, d)
		}
	}

	return Message{Kind: KindTableSnapshot, Items: items}, nil
}

// -----------------------------------------------------------------------------

func decodeCandle(obj map[string]interface{}) (models.MCandle, bool) {
	t := helpers.SafeInt64(obj, "time", 0)
	if t <= 0 {
		return models.MCandle{}, false
	}

	closeVal := helpers.SafeFloat(obj, "close", 0)

	return models.MCandle{
		Time:   t,
		Open:   helpers.SafeFloat(obj, "open", closeVal),
		High:   helpers.SafeFloat(obj, "high", closeVal),
		Low:    helpers.SafeFloat(obj, "low", closeVal),
		Close:  closeVal,
		Volume: helpers.SafeFloat(obj, "volume", 0),
	}, true
}

// -----------------------------------------------------------------------------

func decodeRowDelta(obj map[string]interface{}, snapshot bool) (models.MRowDelta, bool) {
	key := helpers.SafeString(obj, "key", "")
	if key == "" {
		key = helpers.SafeString(obj, "symbol", "")
	}
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return models.MRowDelta{}, false
	}

	d := models.MRowDelta{
		Key:       key,
		Snapshot:  snapshot,
		Static:    make(map[string]string),
		Live:      make(map[string]float64),
		Timestamp: helpers.SafeInt64(obj, "ts", 0),
	}

	for field, val := range obj {
		if rowControlFields[field] {
			continue
		}
		switch v := val.(type) {
		case float64:
			d.Live[field] = v
		case string:
			if rowStaticFields[field] {
				d.Static[field] = v
			}
			// Unknown string fields are dropped: live fields are numeric.
		}
	}

	if len(d.Live) == 0 && len(d.Static) == 0 {
		return models.MRowDelta{}, false
	}
	return d, true
}
