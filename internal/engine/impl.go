package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"signal-core/internal/events"
	"signal-core/internal/fusion"
	"signal-core/internal/indicators"
	"signal-core/internal/market"
	"signal-core/internal/monitor"
	"signal-core/internal/orchestrator"
	"signal-core/internal/regime"
	"signal-core/internal/strategy"
	"signal-core/pkg/db"
)

// Impl implements the Service interface by composing the core modules.
type Impl struct {
	fusion     *fusion.Engine
	orch       *orchestrator.Orchestrator
	registry   *strategy.Registry
	indicators *indicators.Engine
	detector   *regime.Detector
	bus        *events.Bus
	db         *db.Database
	metrics    *monitor.SystemMetrics
	prom       *monitor.PromRecorder

	primaryInterval string
	meta            SystemStatus

	// evalMu serializes evaluations so the eligibility hook sees the
	// regime snapshot of the evaluation in flight.
	evalMu         sync.Mutex
	currentRegimes map[string]bool

	lastMu        sync.RWMutex
	lastDecisions map[string]*strategy.OrderIntent
}

// Config holds the modules composed into the engine implementation.
type Config struct {
	Fusion          *fusion.Engine
	Orchestrator    *orchestrator.Orchestrator
	Registry        *strategy.Registry
	Indicators      *indicators.Engine
	Detector        *regime.Detector
	Bus             *events.Bus
	DB              *db.Database
	Metrics         *monitor.SystemMetrics
	Prom            *monitor.PromRecorder
	PrimaryInterval string
	Meta            SystemStatus
}

// NewImpl creates the engine implementation and wires the orchestrator
// into the fusion engine's eligibility hook.
func NewImpl(cfg Config) *Impl {
	e := &Impl{
		fusion:          cfg.Fusion,
		orch:            cfg.Orchestrator,
		registry:        cfg.Registry,
		indicators:      cfg.Indicators,
		detector:        cfg.Detector,
		bus:             cfg.Bus,
		db:              cfg.DB,
		metrics:         cfg.Metrics,
		prom:            cfg.Prom,
		primaryInterval: cfg.PrimaryInterval,
		meta:            cfg.Meta,
		lastDecisions:   make(map[string]*strategy.OrderIntent),
	}

	if e.fusion != nil && e.orch != nil {
		e.fusion.Eligible = func(id string) bool {
			d := e.orch.ShouldRun(id, e.currentRegimes)
			if !d.Allow {
				if e.prom != nil {
					e.prom.CountDenial(denialClass(d.Reason))
				}
				log.Printf("[ENGINE] Strategy %s skipped: %s", id, d.Reason)
			}
			return d.Allow
		}
	}
	return e
}

// denialClass collapses parameterized reasons into stable metric labels.
func denialClass(reason string) string {
	switch {
	case strings.HasPrefix(reason, "cooldown_"):
		return "cooldown"
	case strings.HasPrefix(reason, "health_score_low_"):
		return "health_score_low"
	default:
		return reason
	}
}

// Evaluate runs one fusion pass for the symbol using the latest closed
// candle as the reference price.
func (e *Impl) Evaluate(ctx context.Context, symbol string) (*strategy.OrderIntent, error) {
	e.evalMu.Lock()
	defer e.evalMu.Unlock()

	now := time.Now()
	var price float64
	var regimes map[string]bool

	if bundle := e.indicators.Snapshot(symbol, e.primaryInterval); bundle != nil {
		if candle, ok := bundle.Candle("last_candle"); ok {
			price = candle["close"]
		}
		if e.detector != nil {
			regimes = regime.TagSet(e.detector.Detect(bundle))
		}
	}
	e.currentRegimes = regimes

	timer := monitor.NewTimer(e.metrics.EvaluationLatency)
	intent := e.fusion.Evaluate(symbol, now, price, nil)
	elapsed := timer.Stop()

	e.metrics.IncrementEvaluations()
	if intent.Action == strategy.ActionHold {
		e.metrics.IncrementHolds()
		if strings.HasPrefix(intent.Reason, "htf_mismatch") {
			e.metrics.IncrementVetoes()
		}
	} else {
		e.metrics.IncrementFused()
	}
	if e.prom != nil {
		e.prom.ObserveEvaluation(symbol, elapsed.Seconds())
		e.prom.CountDecision(intent.Action)
	}

	e.lastMu.Lock()
	e.lastDecisions[symbol] = intent
	e.lastMu.Unlock()

	return intent, nil
}

// LastDecision returns the most recent decision for a symbol.
func (e *Impl) LastDecision(symbol string) (*strategy.OrderIntent, bool) {
	e.lastMu.RLock()
	defer e.lastMu.RUnlock()
	intent, ok := e.lastDecisions[symbol]
	return intent, ok
}

// RecordTrade feeds a trade outcome into the orchestrator and notifies
// listeners.
func (e *Impl) RecordTrade(ctx context.Context, strategyID string, pnl float64) error {
	if strategyID == "" {
		return fmt.Errorf("strategy id is required")
	}
	e.orch.UpdateAfterTrade(strategyID, pnl)
	e.metrics.IncrementTrades()
	if e.prom != nil {
		e.prom.CountTradeOutcome(pnl)
		e.prom.SetTrackedStrategies(len(e.orch.States()))
	}
	if e.bus != nil {
		e.bus.Publish(events.TopicTradeResult, map[string]any{
			"strategy_id": strategyID,
			"pnl":         pnl,
			"recorded_at": time.Now(),
		})
		if d := e.orch.ShouldRun(strategyID, nil); !d.Allow && strings.HasPrefix(d.Reason, "cooldown_") {
			e.bus.Publish(events.TopicRiskAlert,
				fmt.Sprintf("strategy %s entered cooldown: %s", strategyID, d.Reason))
		}
	}
	return nil
}

// Eligibility checks a single strategy against the orchestrator using the
// regimes of the engine's first symbol snapshot, if one is available.
func (e *Impl) Eligibility(id string) orchestrator.Decision {
	var regimes map[string]bool
	if len(e.meta.Symbols) > 0 && e.detector != nil {
		if bundle := e.indicators.Snapshot(e.meta.Symbols[0], e.primaryInterval); bundle != nil {
			regimes = regime.TagSet(e.detector.Detect(bundle))
		}
	}
	return e.orch.ShouldRun(id, regimes)
}

// OrchestratorStates exposes the gatekeeper state for inspection.
func (e *Impl) OrchestratorStates() []orchestrator.StateView {
	return e.orch.States()
}

// ListStrategies returns the configured strategy set from the database.
func (e *Impl) ListStrategies(ctx context.Context) ([]StrategyInfo, error) {
	instances, err := e.db.ListStrategyInstances(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]StrategyInfo, 0, len(instances))
	for _, inst := range instances {
		info := StrategyInfo{
			ID:        inst.ID,
			Name:      inst.Name,
			Type:      inst.StrategyType,
			Symbol:    inst.Symbol,
			Interval:  inst.Interval,
			IsActive:  inst.IsActive,
			CreatedAt: inst.CreatedAt,
			UpdatedAt: inst.UpdatedAt,
		}
		if inst.Parameters != "" {
			_ = json.Unmarshal([]byte(inst.Parameters), &info.Parameters)
		}
		if inst.Metadata != "" {
			_ = json.Unmarshal([]byte(inst.Metadata), &info.Metadata)
		}
		_, info.Registered = e.registry.Get(inst.ID)
		infos = append(infos, info)
	}
	return infos, nil
}

// SetStrategyActive toggles a strategy in both the database and the live
// registry.
func (e *Impl) SetStrategyActive(ctx context.Context, id string, active bool) error {
	inst, err := e.db.GetStrategyInstance(ctx, id)
	if err != nil {
		return err
	}
	if err := e.db.SetStrategyActive(ctx, id, active); err != nil {
		return err
	}

	if !active {
		e.registry.Unregister(id)
		log.Printf("[ENGINE] Strategy %s deactivated", id)
		return nil
	}

	var params map[string]float64
	if inst.Parameters != "" {
		_ = json.Unmarshal([]byte(inst.Parameters), &params)
	}
	s := strategy.Build(id, inst.StrategyType, params)
	if s == nil {
		return fmt.Errorf("unknown strategy type %q", inst.StrategyType)
	}
	e.registry.Register(s)
	log.Printf("[ENGINE] Strategy %s activated", id)
	return nil
}

// GetSystemStatus reports runtime metadata.
func (e *Impl) GetSystemStatus(ctx context.Context) *SystemStatus {
	status := e.meta
	status.ServerTime = time.Now()
	return &status
}

// MetricsSnapshot returns the in-process performance counters.
func (e *Impl) MetricsSnapshot() monitor.MetricsSnapshot {
	return e.metrics.GetSnapshot()
}

// Run consumes closed candles from the bus and evaluates the owning symbol
// on every primary-interval close. Blocks until ctx is cancelled.
func (e *Impl) Run(ctx context.Context) {
	ticks, unsub := e.bus.Subscribe(events.TopicPriceTick, 256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ticks:
			if !ok {
				return
			}
			k, ok := msg.(market.Kline)
			if !ok {
				continue
			}
			e.metrics.IncrementTicks()
			if k.Interval != e.primaryInterval {
				continue
			}
			intent, err := e.Evaluate(ctx, k.Symbol)
			if err != nil {
				e.metrics.IncrementErrors()
				log.Printf("[ENGINE] Evaluation error for %s: %v", k.Symbol, err)
				continue
			}
			if intent.Action != strategy.ActionHold {
				log.Printf("[ENGINE] %s %s conf=%.2f reason=%s", k.Symbol, intent.Action, intent.Confidence, intent.Reason)
			}
		}
	}
}
