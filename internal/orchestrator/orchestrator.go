package orchestrator

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
)

// Decision is the outcome of an eligibility check.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

// Config tunes the gatekeeper. When Enabled is false every check allows
// unconditionally.
type Config struct {
	Enabled                bool
	HealthScoringWindow    int
	LossStreakDisable      int
	DisableDurationSeconds int
	EnforceRegimes         bool
	MinHealthScore         float64
	PnlWindowCapacity      int
}

// Metadata is the static per-strategy eligibility configuration.
type Metadata struct {
	RequiresRegime []string
	AvoidRegime    []string
	SessionStart   string // "HH:MM", empty means no window
	SessionEnd     string
	AllowedDays    []string // e.g. ["mon","tue"], empty means all days
}

// Orchestrator gates each strategy through cooldowns, rolling health
// scoring and regime/session rules. State is created lazily on first
// reference and lives for the process lifetime.
type Orchestrator struct {
	cfg      Config
	metadata map[string]Metadata

	mu     sync.RWMutex
	states map[string]*strategyState

	now func() time.Time // injectable for tests
}

// New creates an orchestrator. metadata may be nil.
func New(cfg Config, metadata map[string]Metadata) *Orchestrator {
	if cfg.HealthScoringWindow <= 0 {
		cfg.HealthScoringWindow = 10
	}
	if cfg.LossStreakDisable <= 0 {
		cfg.LossStreakDisable = 3
	}
	if cfg.DisableDurationSeconds <= 0 {
		cfg.DisableDurationSeconds = 3600
	}
	if cfg.PnlWindowCapacity <= 0 {
		cfg.PnlWindowCapacity = 20
	}
	if metadata == nil {
		metadata = make(map[string]Metadata)
	}
	return &Orchestrator{
		cfg:      cfg,
		metadata: metadata,
		states:   make(map[string]*strategyState),
		now:      time.Now,
	}
}

func (o *Orchestrator) state(id string) *strategyState {
	o.mu.RLock()
	s, ok := o.states[id]
	o.mu.RUnlock()
	if ok {
		return s
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok = o.states[id]; ok {
		return s
	}
	s = newStrategyState(o.cfg.PnlWindowCapacity)
	o.states[id] = s
	return s
}

// UpdateAfterTrade records a trade outcome for the strategy and applies
// loss-streak and health-score bookkeeping. A streak at the configured
// threshold moves the strategy into cooldown.
func (o *Orchestrator) UpdateAfterTrade(id string, pnl float64) {
	s := o.state(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recentPnls.Push(pnl)
	if pnl < 0 {
		s.lossStreak++
	} else {
		s.lossStreak = 0
	}

	if s.recentPnls.Len() >= 5 {
		recent := s.recentPnls.Recent(o.cfg.HealthScoringWindow)
		wins := 0
		for _, p := range recent {
			if p > 0 {
				wins++
			}
		}
		s.healthScore = float64(wins) / float64(len(recent))
	}

	if s.lossStreak >= o.cfg.LossStreakDisable {
		until := o.now().Add(time.Duration(o.cfg.DisableDurationSeconds) * time.Second)
		s.active = false
		s.disabledUntil = &until
		log.Printf("[ORCHESTRATOR] Strategy %s entering cooldown until %s (loss streak %d)",
			id, until.Format(time.RFC3339), s.lossStreak)
	}
}

// ShouldRun checks whether the strategy may act right now. regimes is the
// current regime tag set; nil means no snapshot was supplied and the
// regime gate is skipped. Checks run in a fixed order and the first
// failure wins.
func (o *Orchestrator) ShouldRun(id string, regimes map[string]bool) Decision {
	if !o.cfg.Enabled {
		return Decision{Allow: true, Reason: "orchestrator_disabled"}
	}

	s := o.state(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := o.now()

	if s.disabledUntil != nil {
		if now.Before(*s.disabledUntil) {
			return Decision{Allow: false, Reason: "cooldown_until_" + s.disabledUntil.Format(time.RFC3339)}
		}
		// cooldown expired: re-activate and clear the streak exactly once
		s.active = true
		s.disabledUntil = nil
		s.lossStreak = 0
		log.Printf("[ORCHESTRATOR] Strategy %s cooldown expired, re-activated", id)
	}

	if !s.active {
		return Decision{Allow: false, Reason: "strategy_inactive"}
	}

	if s.healthScore < o.cfg.MinHealthScore {
		return Decision{
			Allow:  false,
			Reason: fmt.Sprintf("health_score_low_%.2f<%.2f", s.healthScore, o.cfg.MinHealthScore),
		}
	}

	meta, hasMeta := o.metadata[id]
	if hasMeta {
		if !o.inSession(meta, now) {
			return Decision{Allow: false, Reason: "outside_session_time"}
		}
		if !o.dayAllowed(meta, now) {
			return Decision{Allow: false, Reason: "day_not_allowed"}
		}
		if o.cfg.EnforceRegimes && regimes != nil && !regimeCompatible(meta, regimes) {
			return Decision{Allow: false, Reason: "regime_incompatible"}
		}
	}

	return Decision{Allow: true, Reason: "all_checks_passed"}
}

// inSession applies the time-of-day window. Malformed times are logged and
// treated as permissive. A window whose start is after its end wraps
// midnight.
func (o *Orchestrator) inSession(meta Metadata, now time.Time) bool {
	if meta.SessionStart == "" || meta.SessionEnd == "" {
		return true
	}
	start, err1 := parseClock(meta.SessionStart)
	end, err2 := parseClock(meta.SessionEnd)
	if err1 != nil || err2 != nil {
		log.Printf("[ORCHESTRATOR] Malformed session window %q-%q, allowing", meta.SessionStart, meta.SessionEnd)
		return true
	}

	minutes := now.Hour()*60 + now.Minute()
	if start <= end {
		return minutes >= start && minutes <= end
	}
	return minutes >= start || minutes <= end
}

// dayAllowed applies the weekday filter. Unrecognized day names make the
// whole filter permissive.
func (o *Orchestrator) dayAllowed(meta Metadata, now time.Time) bool {
	if len(meta.AllowedDays) == 0 {
		return true
	}

	today := strings.ToLower(now.Weekday().String()[:3])
	matched := false
	for _, d := range meta.AllowedDays {
		name := strings.ToLower(strings.TrimSpace(d))
		if len(name) < 3 || !validDay(name[:3]) {
			log.Printf("[ORCHESTRATOR] Unrecognized day %q in allowed_days, allowing", d)
			return true
		}
		if name[:3] == today {
			matched = true
		}
	}
	return matched
}

func validDay(prefix string) bool {
	switch prefix {
	case "mon", "tue", "wed", "thu", "fri", "sat", "sun":
		return true
	}
	return false
}

func regimeCompatible(meta Metadata, regimes map[string]bool) bool {
	for _, required := range meta.RequiresRegime {
		if !regimes[required] {
			return false
		}
	}
	for _, avoided := range meta.AvoidRegime {
		if regimes[avoided] {
			return false
		}
	}
	return true
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock out of range %q", s)
	}
	return h*60 + m, nil
}

// States returns a snapshot of every tracked strategy, ordered by id.
func (o *Orchestrator) States() []StateView {
	o.mu.RLock()
	ids := make([]string, 0, len(o.states))
	for id := range o.states {
		ids = append(ids, id)
	}
	o.mu.RUnlock()
	sort.Strings(ids)

	views := make([]StateView, 0, len(ids))
	for _, id := range ids {
		s := o.state(id)
		s.mu.Lock()
		views = append(views, StateView{
			StrategyID:    id,
			Active:        s.active,
			DisabledUntil: s.disabledUntil,
			LossStreak:    s.lossStreak,
			TradeCount:    s.recentPnls.Len(),
			HealthScore:   s.healthScore,
		})
		s.mu.Unlock()
	}
	return views
}
