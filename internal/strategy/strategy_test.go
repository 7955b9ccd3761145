package strategy

import (
	"testing"
	"time"

	"signal-core/internal/indicators"
)

var testTime = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func TestEMACrossStrategy(t *testing.T) {
	s := NewEMACrossStrategy("ema_cross", nil)

	tests := []struct {
		name   string
		price  float64
		bundle indicators.Bundle
		want   string
	}{
		{
			name:   "bullish cross with price confirmation",
			price:  105,
			bundle: indicators.Bundle{"ema9": 103.0, "ema20": 101.0},
			want:   ActionBuy,
		},
		{
			name:   "bearish cross with price confirmation",
			price:  95,
			bundle: indicators.Bundle{"ema9": 97.0, "ema20": 99.0},
			want:   ActionSell,
		},
		{
			name:   "bullish cross but price below mid EMA",
			price:  100,
			bundle: indicators.Bundle{"ema9": 103.0, "ema20": 101.0},
			want:   "",
		},
		{
			name:   "missing ema20",
			price:  105,
			bundle: indicators.Bundle{"ema9": 103.0},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := s.Generate("BTCUSDT", testTime, tt.price, nil, tt.bundle)
			if tt.want == "" {
				if intent != nil {
					t.Errorf("expected no intent, got %s", intent.Action)
				}
				return
			}
			if intent == nil {
				t.Fatalf("expected %s intent, got nil", tt.want)
			}
			if intent.Action != tt.want {
				t.Errorf("action = %s, want %s", intent.Action, tt.want)
			}
			if intent.StrategyID != "ema_cross" {
				t.Errorf("strategy id = %s", intent.StrategyID)
			}
		})
	}
}

func TestRSIPullbackRequiresTrend(t *testing.T) {
	s := NewRSIPullbackStrategy("rsi_pullback", nil)

	// Low RSI without a trend tag must not trigger.
	intent := s.Generate("BTCUSDT", testTime, 100, nil, indicators.Bundle{"rsi14": 30.0})
	if intent != nil {
		t.Fatalf("expected nil without trend tag, got %s", intent.Action)
	}

	intent = s.Generate("BTCUSDT", testTime, 100, nil, indicators.Bundle{"rsi14": 30.0, "trend": "up"})
	if intent == nil || intent.Action != ActionBuy {
		t.Fatalf("expected BUY on low RSI in uptrend, got %+v", intent)
	}
	if intent.Tag() != TagPullback {
		t.Errorf("tag = %s, want %s", intent.Tag(), TagPullback)
	}
}

func TestVolatilitySqueezeIgnoresWideBands(t *testing.T) {
	s := NewVolatilitySqueezeStrategy("vol_regime", nil)

	// Wide bands: breakout ignored.
	wide := indicators.Bundle{"bb_upper": 110.0, "bb_middle": 100.0, "bb_lower": 90.0}
	if intent := s.Generate("BTCUSDT", testTime, 111, nil, wide); intent != nil {
		t.Fatalf("expected nil outside squeeze, got %s", intent.Action)
	}

	// Tight bands: close above upper triggers.
	tight := indicators.Bundle{"bb_upper": 101.0, "bb_middle": 100.0, "bb_lower": 99.0}
	intent := s.Generate("BTCUSDT", testTime, 101.5, nil, tight)
	if intent == nil || intent.Action != ActionBuy {
		t.Fatalf("expected BUY on squeeze breakout, got %+v", intent)
	}
	if intent.Tag() != TagSqueeze {
		t.Errorf("tag = %s, want %s", intent.Tag(), TagSqueeze)
	}
}

func TestVWAPDistanceRespectsTrend(t *testing.T) {
	s := NewVWAPDistanceStrategy("vwap_filter", nil)

	// Stretched above VWAP in an uptrend: no fade.
	b := indicators.Bundle{"vwap": 100.0, "trend": "up"}
	if intent := s.Generate("BTCUSDT", testTime, 103, nil, b); intent != nil {
		t.Fatalf("expected nil fading against uptrend, got %s", intent.Action)
	}

	b["trend"] = "flat"
	intent := s.Generate("BTCUSDT", testTime, 103, nil, b)
	if intent == nil || intent.Action != ActionSell {
		t.Fatalf("expected SELL on stretch above VWAP, got %+v", intent)
	}
}

func TestHTFTrendAlignment(t *testing.T) {
	s := NewHTFTrendStrategy("htf_confirm", nil)

	b := indicators.Bundle{"htf_ema20": 105.0, "htf_ema50": 100.0, "ema20": 102.0}
	intent := s.Generate("BTCUSDT", testTime, 103, nil, b)
	if intent == nil || intent.Action != ActionBuy {
		t.Fatalf("expected BUY on aligned HTF uptrend, got %+v", intent)
	}

	// HTF up but local price below EMA20: stay out.
	if intent := s.Generate("BTCUSDT", testTime, 101, nil, b); intent != nil {
		t.Fatalf("expected nil on unaligned price, got %s", intent.Action)
	}
}

func TestRegistryOverwriteAndOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewEMACrossStrategy("b", nil))
	reg.Register(NewEMACrossStrategy("a", nil))
	reg.Register(NewRSIPullbackStrategy("b", nil)) // replaces

	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("ids = %v", ids)
	}
	s, ok := reg.Get("b")
	if !ok || s.Name() != "RSI_Pullback" {
		t.Errorf("expected replacement instance, got %v", s)
	}
}

func TestBuildRegistrySkipsUnknownAndInactive(t *testing.T) {
	configs := []Config{
		{ID: "s1", Type: "ema_cross", IsActive: true},
		{ID: "s2", Type: "does_not_exist", IsActive: true},
		{ID: "s3", Type: "rsi_pullback", IsActive: false},
	}
	reg := BuildRegistry(configs)
	ids := reg.IDs()
	if len(ids) != 1 || ids[0] != "s1" {
		t.Fatalf("ids = %v", ids)
	}
}

func TestParamDefaults(t *testing.T) {
	if got := param(nil, "x", 1.5); got != 1.5 {
		t.Errorf("nil map: got %v", got)
	}
	if got := param(map[string]float64{"x": 2.0}, "x", 1.5); got != 2.0 {
		t.Errorf("set key: got %v", got)
	}
}
