package market

// Kline is a single closed or in-progress candle for one symbol/interval.
type Kline struct {
	Symbol    string
	Interval  string
	OpenTime  int64 // ms
	CloseTime int64 // ms
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Final     bool // true once the candle is closed
}
