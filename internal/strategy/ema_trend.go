package strategy

import (
	"fmt"
	"time"

	"signal-core/internal/indicators"
)

// TripleEMATrendStrategy requires a fully stacked EMA ladder plus a
// confirming regression slope before it commits to a direction. RSI keeps
// it out of exhausted moves.
type TripleEMATrendStrategy struct {
	id         string
	confidence float64
	rsiUpper   float64
	rsiLower   float64
}

// NewTripleEMATrendStrategy creates a stacked-EMA trend strategy.
func NewTripleEMATrendStrategy(id string, params map[string]float64) *TripleEMATrendStrategy {
	return &TripleEMATrendStrategy{
		id:         id,
		confidence: param(params, "confidence", 0.70),
		rsiUpper:   param(params, "rsi_upper", 75),
		rsiLower:   param(params, "rsi_lower", 25),
	}
}

func (s *TripleEMATrendStrategy) ID() string {
	return s.id
}

func (s *TripleEMATrendStrategy) Name() string {
	return "Triple_EMA_Trend"
}

func (s *TripleEMATrendStrategy) Generate(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) *OrderIntent {
	ema9, ok1 := bundle.Float("ema9")
	ema20, ok2 := bundle.Float("ema20")
	ema50, ok3 := bundle.Float("ema50")
	slope, ok4 := bundle.Float("slope10")
	rsi, ok5 := bundle.Float("rsi14")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return nil
	}

	if ema9 > ema20 && ema20 > ema50 && slope > 0 && rsi >= 50 && rsi <= s.rsiUpper {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionBuy,
			Reason:     "ema_stack_bullish",
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagTrend,
				"note": fmt.Sprintf("stack 9>20>50, slope %.5f, RSI %.1f", slope, rsi),
			},
			Timestamp: ts,
		}
	}

	if ema9 < ema20 && ema20 < ema50 && slope < 0 && rsi <= 50 && rsi >= s.rsiLower {
		return &OrderIntent{
			Symbol:     symbol,
			Action:     ActionSell,
			Reason:     "ema_stack_bearish",
			StrategyID: s.id,
			Confidence: s.confidence,
			Metadata: map[string]any{
				"tag":  TagTrend,
				"note": fmt.Sprintf("stack 9<20<50, slope %.5f, RSI %.1f", slope, rsi),
			},
			Timestamp: ts,
		}
	}

	return nil
}
