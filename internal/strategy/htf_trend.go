package strategy

import (
	"fmt"
	"time"

	"signal-core/internal/indicators"
)

// HTFTrendStrategy aligns the working timeframe with its higher-timeframe
// context: it only signals when the higher-timeframe EMA pair and the local
// price structure agree. Needs htf_ keys merged into the bundle.
type HTFTrendStrategy struct {
	id         string
	confidence float64
}

// NewHTFTrendStrategy creates a higher-timeframe alignment strategy.
func NewHTFTrendStrategy(id string, params map[string]float64) *HTFTrendStrategy {
	return &HTFTrendStrategy{
		id:         id,
		confidence: param(params, "confidence", 0.60),
	}
}

func (s *HTFTrendStrategy) ID() string {
	return s.id
}

func (s *HTFTrendStrategy) Name() string {
	return "HTF_Trend_Align"
}

func (s *HTFTrendStrategy) Generate(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) *OrderIntent {
	htfEma20, ok1 := bundle.Float("htf_ema20")
	htfEma50, ok2 := bundle.Float("htf_ema50")
	ema20, ok3 := bundle.Float("ema20")
	if !ok1 || !ok2 || !ok3 || price <= 0 {
		return nil
	}

	if htfEma20 > htfEma50 && price > ema20 {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionBuy,
			Reason:     "htf_uptrend_aligned",
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagTrend,
				"note": fmt.Sprintf("HTF EMA20 %.4f > EMA50 %.4f", htfEma20, htfEma50),
			},
			Timestamp: ts,
		}
	}

	if htfEma20 < htfEma50 && price < ema20 {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionSell,
			Reason:     "htf_downtrend_aligned",
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagTrend,
				"note": fmt.Sprintf("HTF EMA20 %.4f < EMA50 %.4f", htfEma20, htfEma50),
			},
			Timestamp: ts,
		}
	}

	return nil
}
