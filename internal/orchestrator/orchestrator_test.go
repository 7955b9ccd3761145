package orchestrator

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Enabled:                true,
		HealthScoringWindow:    10,
		LossStreakDisable:      3,
		DisableDurationSeconds: 3600,
		EnforceRegimes:         true,
		MinHealthScore:         0.3,
		PnlWindowCapacity:      20,
	}
}

// fakeClock lets tests drive time explicitly.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestOrchestrator(cfg Config, metadata map[string]Metadata) (*Orchestrator, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)} // a Monday
	o := New(cfg, metadata)
	o.now = clock.Now
	return o, clock
}

func TestCooldownEnterAndLazyExit(t *testing.T) {
	o, clock := newTestOrchestrator(testConfig(), nil)

	for i := 0; i < 3; i++ {
		o.UpdateAfterTrade("s1", -10)
	}

	d := o.ShouldRun("s1", nil)
	if d.Allow {
		t.Fatal("expected deny during cooldown")
	}
	if !strings.HasPrefix(d.Reason, "cooldown_until_") {
		t.Errorf("reason = %s", d.Reason)
	}

	clock.Advance(2 * time.Hour)

	d = o.ShouldRun("s1", nil)
	if !d.Allow {
		t.Fatalf("expected allow after cooldown expiry, got %s", d.Reason)
	}

	views := o.States()
	if len(views) != 1 || views[0].LossStreak != 0 {
		t.Errorf("expected loss streak reset after expiry, got %+v", views)
	}
	if !views[0].Active {
		t.Error("expected strategy re-activated")
	}
}

func TestLossStreakResetsOnWin(t *testing.T) {
	o, _ := newTestOrchestrator(testConfig(), nil)

	o.UpdateAfterTrade("s1", -10)
	o.UpdateAfterTrade("s1", -10)
	o.UpdateAfterTrade("s1", 25)

	d := o.ShouldRun("s1", nil)
	if !d.Allow {
		t.Fatalf("expected allow, got %s", d.Reason)
	}
	views := o.States()
	if views[0].LossStreak != 0 {
		t.Errorf("loss streak = %d, want 0", views[0].LossStreak)
	}
}

func TestHealthScoreComputation(t *testing.T) {
	cfg := testConfig()
	cfg.LossStreakDisable = 100 // keep cooldown out of the way
	o, _ := newTestOrchestrator(cfg, nil)

	// 7 wins, 3 losses, interleaved so no streak forms.
	pnls := []float64{10, 10, -5, 10, 10, -5, 10, 10, -5, 10}
	for _, p := range pnls {
		o.UpdateAfterTrade("s1", p)
	}

	views := o.States()
	score := views[0].HealthScore
	if score < 0.69 || score > 0.71 {
		t.Fatalf("health score = %v, want ~0.70", score)
	}

	cfg.MinHealthScore = 0.75
	o2, _ := newTestOrchestrator(cfg, nil)
	for _, p := range pnls {
		o2.UpdateAfterTrade("s1", p)
	}
	d := o2.ShouldRun("s1", nil)
	if d.Allow {
		t.Fatal("expected deny when health score below floor")
	}
	if !strings.HasPrefix(d.Reason, "health_score_low_") {
		t.Errorf("reason = %s", d.Reason)
	}
}

func TestHealthScoreNeedsFiveTrades(t *testing.T) {
	cfg := testConfig()
	cfg.MinHealthScore = 0.9
	cfg.LossStreakDisable = 100
	o, _ := newTestOrchestrator(cfg, nil)

	for i := 0; i < 4; i++ {
		o.UpdateAfterTrade("s1", -1)
	}
	if d := o.ShouldRun("s1", nil); !d.Allow {
		t.Fatalf("expected optimistic default before 5 trades, got %s", d.Reason)
	}
}

func TestSessionWindowGate(t *testing.T) {
	meta := map[string]Metadata{
		"s1": {SessionStart: "09:00", SessionEnd: "12:00"},
	}
	o, _ := newTestOrchestrator(testConfig(), meta) // clock at 14:30

	d := o.ShouldRun("s1", nil)
	if d.Allow || d.Reason != "outside_session_time" {
		t.Fatalf("got %+v", d)
	}
}

func TestSessionWindowWrapsMidnight(t *testing.T) {
	meta := map[string]Metadata{
		"s1": {SessionStart: "22:00", SessionEnd: "15:00"},
	}
	o, _ := newTestOrchestrator(testConfig(), meta) // clock at 14:30

	if d := o.ShouldRun("s1", nil); !d.Allow {
		t.Fatalf("expected allow inside wrapped window, got %s", d.Reason)
	}
}

func TestMalformedSessionIsPermissive(t *testing.T) {
	meta := map[string]Metadata{
		"s1": {SessionStart: "nine", SessionEnd: "12:00"},
	}
	o, _ := newTestOrchestrator(testConfig(), meta)

	if d := o.ShouldRun("s1", nil); !d.Allow {
		t.Fatalf("expected permissive on malformed window, got %s", d.Reason)
	}
}

func TestDayGate(t *testing.T) {
	meta := map[string]Metadata{
		"s1": {AllowedDays: []string{"tue", "wed"}},
		"s2": {AllowedDays: []string{"mon"}},
		"s3": {AllowedDays: []string{"someday"}},
	}
	o, _ := newTestOrchestrator(testConfig(), meta) // clock is a Monday

	if d := o.ShouldRun("s1", nil); d.Allow || d.Reason != "day_not_allowed" {
		t.Errorf("s1: got %+v", d)
	}
	if d := o.ShouldRun("s2", nil); !d.Allow {
		t.Errorf("s2: expected allow, got %s", d.Reason)
	}
	// Unrecognized day names make the filter permissive.
	if d := o.ShouldRun("s3", nil); !d.Allow {
		t.Errorf("s3: expected permissive, got %s", d.Reason)
	}
}

func TestRegimeGate(t *testing.T) {
	meta := map[string]Metadata{
		"s1": {RequiresRegime: []string{"trend"}, AvoidRegime: []string{"low_vol"}},
	}
	o, _ := newTestOrchestrator(testConfig(), meta)

	tests := []struct {
		name    string
		regimes map[string]bool
		allow   bool
	}{
		{"required regime missing", map[string]bool{"trend": false}, false},
		{"avoided regime present", map[string]bool{"trend": true, "low_vol": true}, false},
		{"compatible", map[string]bool{"trend": true, "low_vol": false}, true},
		{"no snapshot supplied", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := o.ShouldRun("s1", tt.regimes)
			if d.Allow != tt.allow {
				t.Errorf("allow = %v (reason %s), want %v", d.Allow, d.Reason, tt.allow)
			}
			if !tt.allow && d.Reason != "regime_incompatible" {
				t.Errorf("reason = %s", d.Reason)
			}
		})
	}
}

func TestRegimesNotEnforcedWhenDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EnforceRegimes = false
	meta := map[string]Metadata{
		"s1": {RequiresRegime: []string{"trend"}},
	}
	o, _ := newTestOrchestrator(cfg, meta)

	if d := o.ShouldRun("s1", map[string]bool{"trend": false}); !d.Allow {
		t.Fatalf("expected allow with regime enforcement off, got %s", d.Reason)
	}
}

func TestDisabledSubsystemBypassesEverything(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	o, _ := newTestOrchestrator(cfg, nil)

	for i := 0; i < 5; i++ {
		o.UpdateAfterTrade("s1", -100)
	}
	d := o.ShouldRun("s1", nil)
	if !d.Allow {
		t.Fatalf("expected unconditional allow, got %s", d.Reason)
	}
}

func TestPnlWindowEviction(t *testing.T) {
	w := newPnlWindow(3)
	for _, p := range []float64{1, 2, 3, 4} {
		w.Push(p)
	}
	if w.Len() != 3 {
		t.Fatalf("len = %d, want 3", w.Len())
	}
	recent := w.Recent(2)
	if len(recent) != 2 || recent[0] != 3 || recent[1] != 4 {
		t.Errorf("recent = %v", recent)
	}
}

func TestLazyStateCreation(t *testing.T) {
	o, _ := newTestOrchestrator(testConfig(), nil)

	d := o.ShouldRun("never_seen", nil)
	if !d.Allow || d.Reason != "all_checks_passed" {
		t.Fatalf("got %+v", d)
	}
	views := o.States()
	if len(views) != 1 || views[0].HealthScore != 1.0 {
		t.Errorf("expected fresh optimistic state, got %+v", views)
	}
}
