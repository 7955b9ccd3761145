package indicators

import (
	"math"
	"testing"

	"signal-core/internal/market"
)

func pushedKlines(e *Engine, count int, startPrice, step float64) {
	price := startPrice
	for i := 0; i < count; i++ {
		openTime := int64(i) * 300_000
		e.Push(market.Kline{
			Symbol:    "BTCUSDT",
			Interval:  "5m",
			OpenTime:  openTime,
			CloseTime: openTime + 299_999,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + step,
			Volume:    100,
			Final:     true,
		})
		price += step
	}
}

func TestSnapshotRequiresHistory(t *testing.T) {
	e := NewEngine(120)
	pushedKlines(e, 59, 100, 0.1)

	if b := e.Snapshot("BTCUSDT", "5m"); b != nil {
		t.Fatal("expected nil snapshot below minimum history")
	}

	pushedKlines(e, 1, 105.9, 0.1)
	if b := e.Snapshot("BTCUSDT", "5m"); b == nil {
		t.Fatal("expected snapshot at minimum history")
	}
}

func TestSnapshotKeys(t *testing.T) {
	e := NewEngine(120)
	pushedKlines(e, 80, 100, 0.5) // steady uptrend

	b := e.Snapshot("BTCUSDT", "5m")
	if b == nil {
		t.Fatal("expected snapshot")
	}

	for _, key := range []string{"ema9", "ema20", "ema50", "rsi14", "atr14", "bb_upper", "bb_middle", "bb_lower", "vwap", "slope10"} {
		v, ok := b.Float(key)
		if !ok {
			t.Errorf("missing key %s", key)
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s = %v", key, v)
		}
	}

	trend, ok := b.Str("trend")
	if !ok || trend != "up" {
		t.Errorf("trend = %q, want up", trend)
	}

	candle, ok := b.Candle("last_candle")
	if !ok || candle["close"] == 0 {
		t.Errorf("last_candle = %v", candle)
	}
}

func TestPushIgnoresOpenCandles(t *testing.T) {
	e := NewEngine(120)
	e.Push(market.Kline{Symbol: "BTCUSDT", Interval: "5m", OpenTime: 0, Close: 100, Final: false})
	if n := e.BarCount("BTCUSDT", "5m"); n != 0 {
		t.Fatalf("bar count = %d, want 0", n)
	}
}

func TestPushReplacesSameOpenTime(t *testing.T) {
	e := NewEngine(120)
	e.Push(market.Kline{Symbol: "BTCUSDT", Interval: "5m", OpenTime: 0, Close: 100, Final: true})
	e.Push(market.Kline{Symbol: "BTCUSDT", Interval: "5m", OpenTime: 0, Close: 101, Final: true})
	if n := e.BarCount("BTCUSDT", "5m"); n != 1 {
		t.Fatalf("bar count = %d, want 1", n)
	}
}

func TestWindowTrims(t *testing.T) {
	e := NewEngine(60)
	pushedKlines(e, 100, 100, 0.1)
	if n := e.BarCount("BTCUSDT", "5m"); n != 60 {
		t.Fatalf("bar count = %d, want 60", n)
	}
}

func TestTrendTag(t *testing.T) {
	tests := []struct {
		name   string
		ema20  float64
		ema50  float64
		slope  float64
		want   string
	}{
		{"rising stack", 105, 100, 0.5, "up"},
		{"falling stack", 95, 100, -0.5, "down"},
		{"mixed signals", 105, 100, -0.5, "flat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trendTag(tt.ema20, tt.ema50, tt.slope); got != tt.want {
				t.Errorf("trendTag = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBundleMerge(t *testing.T) {
	primary := Bundle{"ema20": 100.0}
	htf := Bundle{"ema20": 95.0, "ema50": 90.0}

	merged := primary.Merge(htf, "htf_")

	if v, _ := merged.Float("ema20"); v != 100.0 {
		t.Errorf("primary key clobbered: %v", v)
	}
	if v, ok := merged.Float("htf_ema20"); !ok || v != 95.0 {
		t.Errorf("htf_ema20 = %v", v)
	}
	if v, ok := merged.Float("htf_ema50"); !ok || v != 90.0 {
		t.Errorf("htf_ema50 = %v", v)
	}
	// original untouched
	if _, ok := primary.Float("htf_ema20"); ok {
		t.Error("merge mutated the receiver")
	}
}
