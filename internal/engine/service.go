// Package engine exposes a unified interface over the fusion engine and
// orchestrator. The API layer only interacts with the core through this
// interface.
package engine

import (
	"context"

	"signal-core/internal/monitor"
	"signal-core/internal/orchestrator"
	"signal-core/internal/strategy"
)

// Service defines the operations available to the API layer.
type Service interface {
	// Strategy queries and commands
	ListStrategies(ctx context.Context) ([]StrategyInfo, error)
	SetStrategyActive(ctx context.Context, id string, active bool) error

	// Decisions
	Evaluate(ctx context.Context, symbol string) (*strategy.OrderIntent, error)
	LastDecision(symbol string) (*strategy.OrderIntent, bool)

	// Orchestrator
	Eligibility(id string) orchestrator.Decision
	OrchestratorStates() []orchestrator.StateView
	RecordTrade(ctx context.Context, strategyID string, pnl float64) error

	// System
	GetSystemStatus(ctx context.Context) *SystemStatus
	MetricsSnapshot() monitor.MetricsSnapshot
}
