package strategy

import (
	"fmt"
	"time"

	"signal-core/internal/indicators"
)

// VolatilitySqueezeStrategy waits for Bollinger bands to compress, then
// trades the close that escapes the band. Breakouts outside a squeeze are
// ignored.
type VolatilitySqueezeStrategy struct {
	id          string
	confidence  float64
	maxWidthPct float64
}

// NewVolatilitySqueezeStrategy creates a Bollinger squeeze breakout strategy.
func NewVolatilitySqueezeStrategy(id string, params map[string]float64) *VolatilitySqueezeStrategy {
	return &VolatilitySqueezeStrategy{
		id:          id,
		confidence:  param(params, "confidence", 0.60),
		maxWidthPct: param(params, "max_width_pct", 3.0),
	}
}

func (s *VolatilitySqueezeStrategy) ID() string {
	return s.id
}

func (s *VolatilitySqueezeStrategy) Name() string {
	return "Volatility_Squeeze"
}

func (s *VolatilitySqueezeStrategy) Generate(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) *OrderIntent {
	upper, ok1 := bundle.Float("bb_upper")
	middle, ok2 := bundle.Float("bb_middle")
	lower, ok3 := bundle.Float("bb_lower")
	if !ok1 || !ok2 || !ok3 || middle <= 0 {
		return nil
	}

	widthPct := (upper - lower) / middle * 100
	if widthPct >= s.maxWidthPct {
		return nil
	}

	if price > upper {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionBuy,
			Reason:     fmt.Sprintf("squeeze_break_up_width_%.2f", widthPct),
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagSqueeze,
				"note": fmt.Sprintf("close %.4f above band %.4f", price, upper),
			},
			Timestamp: ts,
		}
	}

	if price < lower {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionSell,
			Reason:     fmt.Sprintf("squeeze_break_down_width_%.2f", widthPct),
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagSqueeze,
				"note": fmt.Sprintf("close %.4f below band %.4f", price, lower),
			},
			Timestamp: ts,
		}
	}

	return nil
}
