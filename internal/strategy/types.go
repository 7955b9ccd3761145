package strategy

import (
	"time"

	"signal-core/internal/indicators"
)

// Actions an intent can carry.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
	ActionExit = "EXIT"
)

// Setup family tags placed in candidate metadata; the fusion engine uses them
// for setup classification.
const (
	TagTrend    = "trend"
	TagMomentum = "momentum"
	TagPullback = "pullback"
	TagSqueeze  = "squeeze"
)

// OrderIntent is a candidate decision emitted by one strategy, or the final
// fused decision. Quantity is resolved downstream and may be zero here.
type OrderIntent struct {
	Symbol     string         `json:"symbol"`
	Action     string         `json:"action"`
	Quantity   float64        `json:"quantity,omitempty"`
	Reason     string         `json:"reason"`
	StrategyID string         `json:"strategy_id"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Tag returns the setup family tag attached by the emitting strategy, if any.
func (o *OrderIntent) Tag() string {
	if o == nil || o.Metadata == nil {
		return ""
	}
	if s, ok := o.Metadata["tag"].(string); ok {
		return s
	}
	return ""
}

// Strategy is a pure heuristic mapping an indicator bundle to an optional
// candidate intent. Implementations must treat missing bundle keys as "no
// setup" and return nil, never an error.
type Strategy interface {
	// ID returns the unique registry key for this instance.
	ID() string
	// Name returns the human-readable name.
	Name() string
	// Generate inspects the bundle and proposes a candidate, or nil.
	Generate(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) *OrderIntent
}
