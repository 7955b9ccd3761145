package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks overall engine performance.
type SystemMetrics struct {
	// Latency histograms
	EvaluationLatency *LatencyHistogram
	SnapshotLatency   *LatencyHistogram
	DBLatency         *LatencyHistogram
	APILatency        *LatencyHistogram

	// Counters
	ticksProcessed   uint64
	evaluations      uint64
	signalsFused     uint64
	holds            uint64
	vetoes           uint64
	tradesRecorded   uint64
	errorsCount      uint64
	apiRequests      uint64
	apiErrors        uint64

	lastUpdate time.Time
}

// LatencyHistogram tracks latency samples with a sliding window. Stats are
// recomputed lazily, only when samples changed since the last read.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		EvaluationLatency: NewLatencyHistogram(1000),
		SnapshotLatency:   NewLatencyHistogram(1000),
		DBLatency:         NewLatencyHistogram(1000),
		APILatency:        NewLatencyHistogram(1000),
		lastUpdate:        time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementTicks increments the processed tick counter.
func (m *SystemMetrics) IncrementTicks() {
	atomic.AddUint64(&m.ticksProcessed, 1)
}

// IncrementEvaluations increments the fusion evaluation counter.
func (m *SystemMetrics) IncrementEvaluations() {
	atomic.AddUint64(&m.evaluations, 1)
}

// IncrementFused increments the directional-decision counter.
func (m *SystemMetrics) IncrementFused() {
	atomic.AddUint64(&m.signalsFused, 1)
}

// IncrementHolds increments the HOLD-decision counter.
func (m *SystemMetrics) IncrementHolds() {
	atomic.AddUint64(&m.holds, 1)
}

// IncrementVetoes increments the higher-timeframe veto counter.
func (m *SystemMetrics) IncrementVetoes() {
	atomic.AddUint64(&m.vetoes, 1)
}

// IncrementTrades increments the recorded trade-outcome counter.
func (m *SystemMetrics) IncrementTrades() {
	atomic.AddUint64(&m.tradesRecorded, 1)
}

// IncrementErrors increments the error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// IncrementAPI increments the API request counter.
func (m *SystemMetrics) IncrementAPI() {
	atomic.AddUint64(&m.apiRequests, 1)
}

// IncrementAPIErrors increments the API error counter.
func (m *SystemMetrics) IncrementAPIErrors() {
	atomic.AddUint64(&m.apiErrors, 1)
}

// MetricsSnapshot is a point-in-time metrics view.
type MetricsSnapshot struct {
	EvaluationLatency LatencyStats `json:"evaluation_latency"`
	SnapshotLatency   LatencyStats `json:"snapshot_latency"`
	DBLatency         LatencyStats `json:"db_latency"`
	APILatency        LatencyStats `json:"api_latency"`
	TicksProcessed    uint64       `json:"ticks_processed"`
	Evaluations       uint64       `json:"evaluations"`
	SignalsFused      uint64       `json:"signals_fused"`
	Holds             uint64       `json:"holds"`
	Vetoes            uint64       `json:"vetoes"`
	TradesRecorded    uint64       `json:"trades_recorded"`
	ErrorsCount       uint64       `json:"errors_count"`
	APIRequests       uint64       `json:"api_requests"`
	APIErrors         uint64       `json:"api_errors"`
	GoroutineCount    int          `json:"goroutine_count"`
	HeapAlloc         uint64       `json:"heap_alloc_bytes"`
	HeapSys           uint64       `json:"heap_sys_bytes"`
	Timestamp         time.Time    `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return MetricsSnapshot{
		EvaluationLatency: m.EvaluationLatency.Stats(),
		SnapshotLatency:   m.SnapshotLatency.Stats(),
		DBLatency:         m.DBLatency.Stats(),
		APILatency:        m.APILatency.Stats(),
		TicksProcessed:    atomic.LoadUint64(&m.ticksProcessed),
		Evaluations:       atomic.LoadUint64(&m.evaluations),
		SignalsFused:      atomic.LoadUint64(&m.signalsFused),
		Holds:             atomic.LoadUint64(&m.holds),
		Vetoes:            atomic.LoadUint64(&m.vetoes),
		TradesRecorded:    atomic.LoadUint64(&m.tradesRecorded),
		ErrorsCount:       atomic.LoadUint64(&m.errorsCount),
		APIRequests:       atomic.LoadUint64(&m.apiRequests),
		APIErrors:         atomic.LoadUint64(&m.apiErrors),
		GoroutineCount:    runtime.NumGoroutine(),
		HeapAlloc:         memStats.HeapAlloc,
		HeapSys:           memStats.HeapSys,
		Timestamp:         time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to the histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}
