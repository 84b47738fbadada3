package models

// MCandle is one point of an ordered OHLCV series.
// Within a series, Time is strictly increasing and unique after every merge.
type MCandle struct {
	Time   int64   `json:"time"` // bucket start, unix ms
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}
