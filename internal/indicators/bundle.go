package indicators

// Bundle is an immutable snapshot of computed technical values for one
// symbol/timeframe/timestamp. Values are float64 for plain indicators and
// map[string]float64 for nested objects (last_candle). A missing key means
// "indicator unavailable" and is never an error.
type Bundle map[string]any

// Float returns a numeric indicator value and whether it is present.
func (b Bundle) Float(key string) (float64, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Str returns a string value (e.g. the trend tag) and whether it is present.
func (b Bundle) Str(key string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Candle returns a nested candle object and whether it is present.
func (b Bundle) Candle(key string) (map[string]float64, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b[key]
	if !ok {
		return nil, false
	}
	c, ok := v.(map[string]float64)
	return c, ok
}

// Merge returns a copy of b with every key of other re-keyed under prefix.
// Used to fold a higher-timeframe bundle into the primary one.
func (b Bundle) Merge(other Bundle, prefix string) Bundle {
	out := make(Bundle, len(b)+len(other))
	for k, v := range b {
		out[k] = v
	}
	for k, v := range other {
		out[prefix+k] = v
	}
	return out
}
