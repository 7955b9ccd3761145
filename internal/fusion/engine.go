package fusion

import (
	"fmt"
	"log"
	"strings"
	"time"

	"signal-core/internal/events"
	"signal-core/internal/indicators"
	"signal-core/internal/strategy"
)

// Setup labels attached to fused decisions.
const (
	SetupPullbackBuy   = "PULLBACK_BUY"
	SetupPullbackSell  = "PULLBACK_SELL"
	SetupSqueezeBreak  = "VOLATILITY_SQUEEZE_BREAK"
	SetupTrendBreakout = "TREND_FOLLOW_BREAKOUT"
	SetupMomentum      = "MOMENTUM"
)

// BundleProvider supplies indicator snapshots. A nil bundle means
// insufficient history for that symbol/interval.
type BundleProvider interface {
	Snapshot(symbol, interval string) indicators.Bundle
}

// Options tunes the fusion pipeline. Zero values fall back to defaults.
type Options struct {
	PrimaryInterval   string
	SecondaryInterval string  // empty disables the higher-timeframe merge and veto
	ConflictEpsilon   float64 // weight gap below which opposing sides cancel out
	MinATRPercent     float64
	MaxATRPercent     float64
}

// Engine runs every registered strategy against a merged indicator bundle
// and fuses the candidates into exactly one decision. Evaluate never
// panics: plugin failures, publish failures and missing data all degrade
// to a HOLD with a reason code.
type Engine struct {
	registry *strategy.Registry
	bundles  BundleProvider
	bus      *events.Bus
	opts     Options

	// Eligible, when set, is consulted per strategy id before invocation.
	// The composition root wires this to the orchestrator.
	Eligible func(id string) bool
}

// NewEngine creates a fusion engine. bus may be nil for headless use.
func NewEngine(registry *strategy.Registry, bundles BundleProvider, bus *events.Bus, opts Options) *Engine {
	if opts.PrimaryInterval == "" {
		opts.PrimaryInterval = "5m"
	}
	if opts.ConflictEpsilon == 0 {
		opts.ConflictEpsilon = 0.3
	}
	if opts.MinATRPercent == 0 {
		opts.MinATRPercent = 0.5
	}
	if opts.MaxATRPercent == 0 {
		opts.MaxATRPercent = 10.0
	}
	return &Engine{
		registry: registry,
		bundles:  bundles,
		bus:      bus,
		opts:     opts,
	}
}

// Evaluate produces exactly one decision for the symbol at ts. The returned
// intent is always non-nil; failures surface as HOLD reason codes.
func (e *Engine) Evaluate(symbol string, ts time.Time, price float64, market map[string]any) (result *strategy.OrderIntent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[FUSION] Recovered during evaluation of %s: %v", symbol, r)
			result = e.hold(symbol, ts, "evaluation_panic")
		}
	}()

	primary := e.bundles.Snapshot(symbol, e.opts.PrimaryInterval)
	if primary == nil {
		return e.hold(symbol, ts, "no_primary_data")
	}

	var secondary indicators.Bundle
	bundle := primary
	if e.opts.SecondaryInterval != "" {
		secondary = e.bundles.Snapshot(symbol, e.opts.SecondaryInterval)
		if secondary != nil {
			bundle = primary.Merge(secondary, "htf_")
		}
	}

	candidates := e.collect(symbol, ts, price, market, bundle)
	e.publish(events.TopicSignalsRaw, candidates)

	if len(candidates) == 0 {
		return e.publishFused(e.hold(symbol, ts, "no_signal_candidates"))
	}

	survivors := e.filter(candidates, price, primary)

	buys, sells := split(survivors)
	action, reason := resolve(buys, sells, e.opts.ConflictEpsilon)
	if action == strategy.ActionHold {
		return e.publishFused(e.hold(symbol, ts, reason))
	}

	if veto, htfTrend := e.htfVeto(secondary, action); veto {
		return e.publishFused(e.hold(symbol, ts, "htf_mismatch_"+htfTrend))
	}

	selected := buys
	if action == strategy.ActionSell {
		selected = sells
	}

	confidence := meanConfidence(selected)
	setup := classify(action, selected, bundle)
	ids := make([]string, len(selected))
	for i, c := range selected {
		ids[i] = c.StrategyID
	}

	final := &strategy.OrderIntent{
		Symbol:     symbol,
		Action:     action,
		Reason:     fmt.Sprintf("fused_%s_from_%s", action, strings.Join(ids, "+")),
		StrategyID: "fusion",
		Confidence: confidence,
		Metadata: map[string]any{
			"setup":      setup,
			"strategies": ids,
			"bundle":     bundle,
		},
		Timestamp: ts,
	}
	return e.publishFused(final)
}

// collect invokes each eligible plugin, isolating panics so one broken
// strategy never aborts the batch.
func (e *Engine) collect(symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) []*strategy.OrderIntent {
	var candidates []*strategy.OrderIntent
	for _, s := range e.registry.All() {
		if e.Eligible != nil && !e.Eligible(s.ID()) {
			continue
		}
		if intent := e.safeGenerate(s, symbol, ts, price, market, bundle); intent != nil {
			candidates = append(candidates, intent)
		}
	}
	return candidates
}

func (e *Engine) safeGenerate(s strategy.Strategy, symbol string, ts time.Time, price float64, market map[string]any, bundle indicators.Bundle) (intent *strategy.OrderIntent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[FUSION] Strategy %s panicked, excluding: %v", s.ID(), r)
			intent = nil
		}
	}()
	return s.Generate(symbol, ts, price, market, bundle)
}

// filter applies the volatility band and primary-trend gates to each
// candidate independently.
func (e *Engine) filter(candidates []*strategy.OrderIntent, price float64, primary indicators.Bundle) []*strategy.OrderIntent {
	atr, hasATR := primary.Float("atr14")
	trend, _ := primary.Str("trend")

	var atrPct float64
	if hasATR && price > 0 {
		atrPct = atr / price * 100
	}

	var out []*strategy.OrderIntent
	for _, c := range candidates {
		if hasATR && price > 0 && (atrPct < e.opts.MinATRPercent || atrPct > e.opts.MaxATRPercent) {
			continue
		}
		if c.Action == strategy.ActionBuy && trend == "down" {
			continue
		}
		if c.Action == strategy.ActionSell && trend == "up" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func split(candidates []*strategy.OrderIntent) (buys, sells []*strategy.OrderIntent) {
	for _, c := range candidates {
		switch c.Action {
		case strategy.ActionBuy:
			buys = append(buys, c)
		case strategy.ActionSell:
			sells = append(sells, c)
		}
	}
	return buys, sells
}

// resolve picks a side by summed confidence. A gap below epsilon is a
// no-trade, not a guess.
func resolve(buys, sells []*strategy.OrderIntent, epsilon float64) (string, string) {
	if len(buys) == 0 && len(sells) == 0 {
		return strategy.ActionHold, "no_directional_signals"
	}
	if len(sells) == 0 {
		return strategy.ActionBuy, ""
	}
	if len(buys) == 0 {
		return strategy.ActionSell, ""
	}

	var buyWeight, sellWeight float64
	for _, c := range buys {
		buyWeight += c.Confidence
	}
	for _, c := range sells {
		sellWeight += c.Confidence
	}

	diff := buyWeight - sellWeight
	if diff < 0 {
		diff = -diff
	}
	if diff < epsilon {
		return strategy.ActionHold, "conflicting_signals_equal_weight"
	}
	if buyWeight > sellWeight {
		return strategy.ActionBuy, ""
	}
	return strategy.ActionSell, ""
}

// htfVeto blocks an action that fights the higher-timeframe EMA trend.
// The higher timeframe may only veto, never originate.
func (e *Engine) htfVeto(secondary indicators.Bundle, action string) (bool, string) {
	if secondary == nil {
		return false, ""
	}
	ema20, ok1 := secondary.Float("ema20")
	ema50, ok2 := secondary.Float("ema50")
	if !ok1 || !ok2 {
		return false, ""
	}

	htfTrend := "down"
	if ema20 > ema50 {
		htfTrend = "up"
	}
	if action == strategy.ActionBuy && htfTrend == "down" {
		return true, htfTrend
	}
	if action == strategy.ActionSell && htfTrend == "up" {
		return true, htfTrend
	}
	return false, ""
}

func meanConfidence(selected []*strategy.OrderIntent) float64 {
	if len(selected) == 0 {
		return 0
	}
	var sum float64
	for _, c := range selected {
		sum += c.Confidence
	}
	mean := sum / float64(len(selected))
	if mean < 0 {
		mean = 0
	}
	if mean > 1 {
		mean = 1
	}
	return mean
}

// classify labels the winning setup, first match wins.
func classify(action string, selected []*strategy.OrderIntent, bundle indicators.Bundle) string {
	hasSqueeze := false
	hasTrendFamily := false
	for _, c := range selected {
		switch c.Tag() {
		case strategy.TagPullback:
			if action == strategy.ActionBuy {
				return SetupPullbackBuy
			}
			return SetupPullbackSell
		case strategy.TagSqueeze:
			hasSqueeze = true
		case strategy.TagTrend:
			hasTrendFamily = true
		}
	}
	if hasSqueeze {
		return SetupSqueezeBreak
	}

	if hasTrendFamily {
		ema9, ok1 := bundle.Float("ema9")
		ema20, ok2 := bundle.Float("ema20")
		ema50, ok3 := bundle.Float("ema50")
		slope, ok4 := bundle.Float("slope10")
		if ok1 && ok2 && ok3 && ok4 {
			bullStack := ema9 > ema20 && ema20 > ema50 && slope > 0
			bearStack := ema9 < ema20 && ema20 < ema50 && slope < 0
			if (action == strategy.ActionBuy && bullStack) || (action == strategy.ActionSell && bearStack) {
				return SetupTrendBreakout
			}
		}
	}

	return SetupMomentum
}

func (e *Engine) hold(symbol string, ts time.Time, reason string) *strategy.OrderIntent {
	return &strategy.OrderIntent{
		Symbol:     symbol,
		Action:     strategy.ActionHold,
		Reason:     reason,
		StrategyID: "fusion",
		Confidence: 0,
		Timestamp:  ts,
	}
}

func (e *Engine) publishFused(intent *strategy.OrderIntent) *strategy.OrderIntent {
	e.publish(events.TopicSignalsFused, intent)
	return intent
}

// publish never lets a sink failure reach the evaluation path.
func (e *Engine) publish(topic events.Topic, payload any) {
	if e.bus == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[FUSION] Publish to %s failed: %v", topic, r)
		}
	}()
	e.bus.Publish(topic, payload)
}
