package strategy

import (
	"log"
	"sort"
	"sync"
)

// Registry holds the live strategy instances keyed by instance id.
// Registering an existing id replaces the previous instance.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds or replaces a strategy instance.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.strategies[s.ID()]; exists {
		log.Printf("[STRATEGY] Replacing existing instance: %s", s.ID())
	}
	r.strategies[s.ID()] = s
}

// Unregister removes a strategy instance if present.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.strategies, id)
}

// Get returns the strategy with the given id.
func (r *Registry) Get(id string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[id]
	return s, ok
}

// All returns the registered strategies ordered by id for deterministic
// iteration.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// IDs returns the registered instance ids sorted ascending.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.strategies))
	for id := range r.strategies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build constructs a strategy instance from a config entry. Unknown types
// return nil and are logged by the caller.
func Build(instanceID, strategyType string, params map[string]float64) Strategy {
	switch strategyType {
	case "ema_cross":
		return NewEMACrossStrategy(instanceID, params)
	case "ema_trend":
		return NewTripleEMATrendStrategy(instanceID, params)
	case "rsi_pullback":
		return NewRSIPullbackStrategy(instanceID, params)
	case "vwap_filter":
		return NewVWAPDistanceStrategy(instanceID, params)
	case "vol_regime":
		return NewVolatilitySqueezeStrategy(instanceID, params)
	case "htf_confirm":
		return NewHTFTrendStrategy(instanceID, params)
	default:
		return nil
	}
}

// param reads a tunable with a fallback default.
func param(params map[string]float64, key string, def float64) float64 {
	if params == nil {
		return def
	}
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
