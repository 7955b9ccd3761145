package strategy

import (
	"fmt"
	"time"

	"signal-core/internal/indicators"
)

// VWAPDistanceStrategy fades stretched moves away from session VWAP. It
// only fades against stretch when the trend tag does not already point the
// other way, so it never shorts a strong uptrend on distance alone.
type VWAPDistanceStrategy struct {
	id         string
	confidence float64
	maxDistPct float64
}

// NewVWAPDistanceStrategy creates a VWAP mean-reversion strategy.
func NewVWAPDistanceStrategy(id string, params map[string]float64) *VWAPDistanceStrategy {
	return &VWAPDistanceStrategy{
		id:         id,
		confidence: param(params, "confidence", 0.50),
		maxDistPct: param(params, "max_dist_pct", 1.5),
	}
}

func (s *VWAPDistanceStrategy) ID() string {
	return s.id
}

func (s *VWAPDistanceStrategy) Name() string {
	return "VWAP_Distance"
}

func (s *VWAPDistanceStrategy) Generate(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) *OrderIntent {
	vwap, ok := bundle.Float("vwap")
	if !ok || vwap <= 0 || price <= 0 {
		return nil
	}
	trend, _ := bundle.Str("trend")

	distPct := (price - vwap) / vwap * 100

	if distPct < -s.maxDistPct && trend != "down" {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionBuy,
			Reason:     fmt.Sprintf("below_vwap_%.2fpct", -distPct),
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagMomentum,
				"note": fmt.Sprintf("price %.4f vs VWAP %.4f", price, vwap),
			},
			Timestamp: ts,
		}
	}

	if distPct > s.maxDistPct && trend != "up" {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionSell,
			Reason:     fmt.Sprintf("above_vwap_%.2fpct", distPct),
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagMomentum,
				"note": fmt.Sprintf("price %.4f vs VWAP %.4f", price, vwap),
			},
			Timestamp: ts,
		}
	}

	return nil
}
