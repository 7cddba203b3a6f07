package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "texbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	passDuration  *prom.HistogramVec
	passResults   *prom.CounterVec
	buildDuration *prom.HistogramVec
	buildOutcome  *prom.CounterVec
	watchEvents   prom.Counter
	watchCoalesce prom.Counter
}

// passBuckets cover a fast engine pass through a slow multi-minute run.
var passBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300}

// NewPrometheusRecorder constructs metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		passDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of individual compilation passes",
			Buckets:   passBuckets,
		}, []string{"pass"}),
		passResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pass_results_total",
			Help:      "Compilation pass results by outcome",
		}, []string{"pass", "result"}),
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total sequencer run duration",
			Buckets:   passBuckets,
		}, []string{"mode"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Sequencer runs by mode and final status",
		}, []string{"mode", "outcome"}),
		watchEvents: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "File-change events that passed the watch filter",
		}),
		watchCoalesce: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "watch_coalesced_total",
			Help:      "Build requests folded into a pending follow-up run",
		}),
	}
	reg.MustRegister(pr.passDuration, pr.passResults, pr.buildDuration, pr.buildOutcome, pr.watchEvents, pr.watchCoalesce)
	return pr
}

func (p *PrometheusRecorder) ObservePassDuration(pass string, d time.Duration) {
	if p == nil {
		return
	}
	p.passDuration.WithLabelValues(pass).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassResult(pass string, result ResultLabel) {
	if p == nil {
		return
	}
	p.passResults.WithLabelValues(pass, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(mode string, d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(mode string, outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(mode, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncWatchEvent() {
	if p == nil {
		return
	}
	p.watchEvents.Inc()
}

func (p *PrometheusRecorder) IncWatchCoalesced() {
	if p == nil {
		return
	}
	p.watchCoalesce.Inc()
}
