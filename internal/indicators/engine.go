package indicators

import (
	"sync"

	talib "github.com/markcheno/go-talib"

	"signal-core/internal/market"
)

// minHistoryBars is the minimum number of closed candles required before a
// snapshot can be produced (EMA50 is the longest lookback).
const minHistoryBars = 60

// Engine maintains per symbol/interval candle windows and computes indicator
// bundles on demand. Safe for concurrent Push/Snapshot.
type Engine struct {
	mu     sync.RWMutex
	window int
	series map[string]*candleWindow
}

type candleWindow struct {
	klines []market.Kline
}

// NewEngine builds an indicator engine retaining up to window closed candles
// per symbol/interval.
func NewEngine(window int) *Engine {
	if window < minHistoryBars {
		window = minHistoryBars
	}
	return &Engine{
		window: window,
		series: make(map[string]*candleWindow),
	}
}

func seriesKey(symbol, interval string) string {
	return symbol + "|" + interval
}

// Push ingests a closed candle. In-progress candles are ignored; the provider
// only reasons over finalized bars.
func (e *Engine) Push(k market.Kline) {
	if !k.Final {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	key := seriesKey(k.Symbol, k.Interval)
	w, ok := e.series[key]
	if !ok {
		w = &candleWindow{klines: make([]market.Kline, 0, e.window)}
		e.series[key] = w
	}

	// Replace the last bar when the feed re-delivers the same open time.
	if n := len(w.klines); n > 0 && w.klines[n-1].OpenTime == k.OpenTime {
		w.klines[n-1] = k
		return
	}

	w.klines = append(w.klines, k)
	if len(w.klines) > e.window {
		w.klines = w.klines[len(w.klines)-e.window:]
	}
}

// BarCount reports how many closed candles are retained for symbol/interval.
func (e *Engine) BarCount(symbol, interval string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if w, ok := e.series[seriesKey(symbol, interval)]; ok {
		return len(w.klines)
	}
	return 0
}

// Snapshot computes the indicator bundle for one symbol/interval, or nil when
// there is insufficient history.
func (e *Engine) Snapshot(symbol, interval string) Bundle {
	e.mu.RLock()
	w, ok := e.series[seriesKey(symbol, interval)]
	if !ok || len(w.klines) < minHistoryBars {
		e.mu.RUnlock()
		return nil
	}
	klines := make([]market.Kline, len(w.klines))
	copy(klines, w.klines)
	e.mu.RUnlock()

	n := len(klines)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, k := range klines {
		high[i] = k.High
		low[i] = k.Low
		closes[i] = k.Close
		volume[i] = k.Volume
	}

	ema9 := last(talib.Ema(closes, 9))
	ema20 := last(talib.Ema(closes, 20))
	ema50 := last(talib.Ema(closes, 50))
	rsi14 := last(talib.Rsi(closes, 14))
	atr14 := last(talib.Atr(high, low, closes, 14))
	upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
	slope10 := last(talib.LinearRegSlope(closes, 10))

	lastBar := klines[n-1]
	b := Bundle{
		"ema9":      ema9,
		"ema20":     ema20,
		"ema50":     ema50,
		"rsi14":     rsi14,
		"atr14":     atr14,
		"bb_upper":  last(upper),
		"bb_middle": last(middle),
		"bb_lower":  last(lower),
		"vwap":      vwap(klines),
		"slope10":   slope10,
		"trend":     trendTag(ema20, ema50, slope10),
		"last_candle": map[string]float64{
			"open":   lastBar.Open,
			"high":   lastBar.High,
			"low":    lastBar.Low,
			"close":  lastBar.Close,
			"volume": lastBar.Volume,
		},
	}
	return b
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

// vwap computes the volume-weighted average price over the retained window.
func vwap(klines []market.Kline) float64 {
	var pv, vol float64
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		pv += typical * k.Volume
		vol += k.Volume
	}
	if vol == 0 {
		return 0
	}
	return pv / vol
}

// trendTag derives the coarse trend label consumed by the fusion filters.
func trendTag(ema20, ema50, slope10 float64) string {
	switch {
	case ema20 > ema50 && slope10 >= 0:
		return "up"
	case ema20 < ema50 && slope10 <= 0:
		return "down"
	default:
		return "flat"
	}
}
