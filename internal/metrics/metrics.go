// Package metrics exposes Prometheus counters and gauges over gate
// outcomes, resolver layer hits, and scan eligibility.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry holds every metric the pipeline emits.
type Registry struct {
	reg               *prometheus.Registry
	ResolverLayerHits *prometheus.CounterVec
	GateEvaluations   *prometheus.CounterVec
	GateOutcomes      *prometheus.CounterVec
	ScanEligible      prometheus.Gauge
	ScanTotal         *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	CriticalConflicts prometheus.Counter
}

// New builds and registers a fresh Registry.
func New() *Registry {
	r := &Registry{
		ResolverLayerHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketagent_resolver_layer_hits_total",
				Help: "Symbol resolutions served by each resolver layer",
			},
			[]string{"source"},
		),
		GateEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketagent_gate_evaluations_total",
				Help: "Execution gate evaluations by per-gate pass/fail",
			},
			[]string{"gate", "result"},
		),
		GateOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketagent_gate_permission_total",
				Help: "Execution gate overall permission outcomes",
			},
			[]string{"status"},
		),
		ScanEligible: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketagent_scan_eligible_signals",
				Help: "Number of eligible signals in the most recent scan",
			},
		),
		ScanTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketagent_scan_instruments_total",
				Help: "Instruments processed by the scanner, by outcome",
			},
			[]string{"outcome"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketagent_analysis_duration_seconds",
				Help:    "Duration of one per-timeframe analysis cycle",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"timeframe"},
		),
		CriticalConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "marketagent_perception_critical_conflicts_total",
				Help: "Total perception records with a critical DOM/VLM conflict",
			},
		),
	}

	r.reg = prometheus.NewRegistry()
	r.reg.MustRegister(
		r.ResolverLayerHits, r.GateEvaluations, r.GateOutcomes,
		r.ScanEligible, r.ScanTotal, r.AnalysisDuration, r.CriticalConflicts,
	)

	log.Info().Msg("metrics registry initialized")
	return r
}

// Handler exposes this Registry's metrics on a Prometheus scrape endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
