package strategy

import (
	"fmt"
	"time"

	"signal-core/internal/indicators"
)

// EMACrossStrategy trades the relation between the fast and mid EMAs.
// BUY when EMA9 sits above EMA20 with price confirming above the mid EMA,
// SELL on the mirrored setup.
type EMACrossStrategy struct {
	id         string
	confidence float64
}

// NewEMACrossStrategy creates an EMA cross strategy.
func NewEMACrossStrategy(id string, params map[string]float64) *EMACrossStrategy {
	return &EMACrossStrategy{
		id:         id,
		confidence: param(params, "confidence", 0.55),
	}
}

func (s *EMACrossStrategy) ID() string {
	return s.id
}

func (s *EMACrossStrategy) Name() string {
	return "EMA_Cross_9_20"
}

func (s *EMACrossStrategy) Generate(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) *OrderIntent {
	ema9, ok1 := bundle.Float("ema9")
	ema20, ok2 := bundle.Float("ema20")
	if !ok1 || !ok2 || price <= 0 {
		return nil
	}

	if ema9 > ema20 && price > ema20 {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionBuy,
			Reason:     "ema9_above_ema20",
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagMomentum,
				"note": fmt.Sprintf("EMA9 %.4f > EMA20 %.4f", ema9, ema20),
			},
			Timestamp: ts,
		}
	}

	if ema9 < ema20 && price < ema20 {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionSell,
			Reason:     "ema9_below_ema20",
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagMomentum,
				"note": fmt.Sprintf("EMA9 %.4f < EMA20 %.4f", ema9, ema20),
			},
			Timestamp: ts,
		}
	}

	return nil
}
