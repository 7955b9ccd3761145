package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromRecorder exports fusion/orchestrator counters to Prometheus. It sits
// next to SystemMetrics: the in-process snapshot serves the JSON status
// endpoint, this serves scrapers.
type PromRecorder struct {
	evaluations     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	denials         *prometheus.CounterVec
	tradeOutcomes   *prometheus.CounterVec
	evaluationTime  prometheus.Histogram
	trackedStrategies prometheus.Gauge
}

// NewPromRecorder registers the collectors on a fresh registry and returns
// the recorder plus the scrape handler.
func NewPromRecorder() (*PromRecorder, http.Handler) {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &PromRecorder{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalcore_evaluations_total",
			Help: "Fusion evaluations by symbol.",
		}, []string{"symbol"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalcore_decisions_total",
			Help: "Fused decisions by action.",
		}, []string{"action"}),
		denials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalcore_eligibility_denials_total",
			Help: "Orchestrator denials by reason class.",
		}, []string{"reason"}),
		tradeOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signalcore_trade_outcomes_total",
			Help: "Recorded trade outcomes by result.",
		}, []string{"result"}),
		evaluationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalcore_evaluation_duration_seconds",
			Help:    "Time spent in one fusion evaluation.",
			Buckets: prometheus.DefBuckets,
		}),
		trackedStrategies: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signalcore_tracked_strategies",
			Help: "Strategies with orchestrator state.",
		}),
	}

	return r, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveEvaluation records one evaluation for a symbol.
func (r *PromRecorder) ObserveEvaluation(symbol string, seconds float64) {
	r.evaluations.WithLabelValues(symbol).Inc()
	r.evaluationTime.Observe(seconds)
}

// CountDecision records a fused decision by action.
func (r *PromRecorder) CountDecision(action string) {
	r.decisions.WithLabelValues(action).Inc()
}

// CountDenial records an orchestrator denial by reason class.
func (r *PromRecorder) CountDenial(reason string) {
	r.denials.WithLabelValues(reason).Inc()
}

// CountTradeOutcome records a win or loss.
func (r *PromRecorder) CountTradeOutcome(pnl float64) {
	result := "win"
	if pnl < 0 {
		result = "loss"
	}
	r.tradeOutcomes.WithLabelValues(result).Inc()
}

// SetTrackedStrategies updates the gatekeeper state gauge.
func (r *PromRecorder) SetTrackedStrategies(n int) {
	r.trackedStrategies.Set(float64(n))
}
