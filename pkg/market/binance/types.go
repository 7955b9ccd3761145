package market

// Kline represents a single candlestick as delivered by Binance.
type Kline struct {
	Symbol    string  // trading pair symbol
	Interval  string  // e.g. "5m", "1h"
	OpenTime  int64   // Open time (ms)
	Open      float64 // Open price
	High      float64 // High price
	Low       float64 // Low price
	Close     float64 // Close price
	Volume    float64 // Base asset volume
	CloseTime int64   // Close time (ms)
	Final     bool    // Whether this candle is closed
}
