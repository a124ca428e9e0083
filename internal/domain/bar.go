package domain

// Bar represents one time-stepped price observation (OHLCV).
// Corresponds to bars table in ClickHouse.
type Bar struct {
	Symbol      string  // instrument symbol
	TimestampMs int64   // Unix timestamp in milliseconds
	Open        float64 // open price
	High        float64 // high price
	Low         float64 // low price
	Close       float64 // close price
	Volume      float64 // traded volume
}

// Tick represents a single price observation pushed by a market data feed.
type Tick struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	TimestampMs int64   `json:"timestamp_ms"`
}
