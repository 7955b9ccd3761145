package orchestrator

import (
	"sync"
	"time"
)

// pnlWindow is a fixed-capacity FIFO of trade outcomes. Pushing past
// capacity silently evicts the oldest entry.
type pnlWindow struct {
	data []float64
	cap  int
}

func newPnlWindow(capacity int) *pnlWindow {
	if capacity <= 0 {
		capacity = 20
	}
	return &pnlWindow{cap: capacity}
}

func (w *pnlWindow) Push(pnl float64) {
	w.data = append(w.data, pnl)
	if len(w.data) > w.cap {
		w.data = w.data[1:]
	}
}

func (w *pnlWindow) Len() int {
	return len(w.data)
}

// Recent returns the most recent n entries in chronological order.
func (w *pnlWindow) Recent(n int) []float64 {
	if n <= 0 || n > len(w.data) {
		n = len(w.data)
	}
	return w.data[len(w.data)-n:]
}

// strategyState is the per-strategy gatekeeper record. Each entry carries
// its own mutex so strategies never contend with each other.
type strategyState struct {
	mu            sync.Mutex
	active        bool
	disabledUntil *time.Time
	lossStreak    int
	recentPnls    *pnlWindow
	healthScore   float64
}

func newStrategyState(pnlCapacity int) *strategyState {
	return &strategyState{
		active:      true,
		recentPnls:  newPnlWindow(pnlCapacity),
		healthScore: 1.0, // optimistic until enough trades accumulate
	}
}

// StateView is a read-only snapshot of a strategy's gatekeeper state.
type StateView struct {
	StrategyID    string     `json:"strategy_id"`
	Active        bool       `json:"active"`
	DisabledUntil *time.Time `json:"disabled_until,omitempty"`
	LossStreak    int        `json:"loss_streak"`
	TradeCount    int        `json:"trade_count"`
	HealthScore   float64    `json:"health_score"`
}
