package regime

import (
	"signal-core/internal/indicators"
)

// Regime tags derived from the indicator bundle. A bundle can carry
// several at once, e.g. a trending market inside a volatility squeeze.
const (
	Trend   = "trend"
	LowVol  = "low_vol"
	HighVol = "high_vol"
	Squeeze = "squeeze"
)

// Detector classifies the current market regime from indicator values.
type Detector struct {
	lowVolATRPct   float64
	highVolATRPct  float64
	squeezeWidthPct float64
}

// NewDetector creates a detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{
		lowVolATRPct:    0.8,
		highVolATRPct:   3.0,
		squeezeWidthPct: 3.0,
	}
}

// Detect returns the set of regime tags active for the bundle. Missing
// indicator keys simply contribute no tag.
func (d *Detector) Detect(bundle indicators.Bundle) []string {
	var tags []string

	if trend, ok := bundle.Str("trend"); ok && trend != "flat" {
		tags = append(tags, Trend)
	}

	atr, okATR := bundle.Float("atr14")
	candle, okCandle := bundle.Candle("last_candle")
	if okATR && okCandle && candle["close"] > 0 {
		atrPct := atr / candle["close"] * 100
		switch {
		case atrPct < d.lowVolATRPct:
			tags = append(tags, LowVol)
		case atrPct > d.highVolATRPct:
			tags = append(tags, HighVol)
		}
	}

	upper, ok1 := bundle.Float("bb_upper")
	middle, ok2 := bundle.Float("bb_middle")
	lower, ok3 := bundle.Float("bb_lower")
	if ok1 && ok2 && ok3 && middle > 0 {
		if (upper-lower)/middle*100 < d.squeezeWidthPct {
			tags = append(tags, Squeeze)
		}
	}

	return tags
}

// TagSet converts a tag list into a lookup map. The map is never nil so
// callers can distinguish "no regimes active" from "no snapshot taken".
func TagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}

// Has reports whether tag is in the detected set.
func Has(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
