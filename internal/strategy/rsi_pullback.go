package strategy

import (
	"fmt"
	"time"

	"signal-core/internal/indicators"
)

// RSIPullbackStrategy buys short-term weakness inside an established
// uptrend and sells short-term strength inside a downtrend. Without a
// trend tag it stays flat.
type RSIPullbackStrategy struct {
	id            string
	confidence    float64
	buyThreshold  float64
	sellThreshold float64
}

// NewRSIPullbackStrategy creates an RSI pullback strategy.
func NewRSIPullbackStrategy(id string, params map[string]float64) *RSIPullbackStrategy {
	return &RSIPullbackStrategy{
		id:            id,
		confidence:    param(params, "confidence", 0.65),
		buyThreshold:  param(params, "buy_threshold", 40),
		sellThreshold: param(params, "sell_threshold", 60),
	}
}

func (s *RSIPullbackStrategy) ID() string {
	return s.id
}

func (s *RSIPullbackStrategy) Name() string {
	return "RSI_Pullback"
}

func (s *RSIPullbackStrategy) Generate(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) *OrderIntent {
	rsi, ok1 := bundle.Float("rsi14")
	trend, ok2 := bundle.Str("trend")
	if !ok1 || !ok2 {
		return nil
	}

	if trend == "up" && rsi < s.buyThreshold {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionBuy,
			Reason:     fmt.Sprintf("rsi_pullback_%.1f_in_uptrend", rsi),
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagPullback,
				"note": fmt.Sprintf("RSI %.1f below %.0f with trend up", rsi, s.buyThreshold),
			},
			Timestamp: ts,
		}
	}

	if trend == "down" && rsi > s.sellThreshold {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionSell,
			Reason:     fmt.Sprintf("rsi_rally_%.1f_in_downtrend", rsi),
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagPullback,
				"note": fmt.Sprintf("RSI %.1f above %.0f with trend down", rsi, s.sellThreshold),
			},
			Timestamp: ts,
		}
	}

	return nil
}
