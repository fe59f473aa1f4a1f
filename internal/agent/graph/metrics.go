package graph

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for turn processing.
type Metrics struct {
	TurnsTotal              prometheus.Counter
	DispatchesTotal         *prometheus.CounterVec // by route
	SpecialistErrors        *prometheus.CounterVec // by route
	DegradedClassifications prometheus.Counter
	IterationCapHits        prometheus.Counter
	TurnDuration            prometheus.Histogram
}

// NewMetrics creates and registers turn metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickertalk_turns_total",
			Help: "Total number of completed conversation turns",
		}),
		DispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickertalk_dispatches_total",
			Help: "Specialist dispatches by route",
		}, []string{"route"}),
		SpecialistErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tickertalk_specialist_errors_total",
			Help: "Specialist failures recorded into turn state, by route",
		}, []string{"route"}),
		DegradedClassifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickertalk_classification_degraded_total",
			Help: "Classifications that fell back to keyword heuristics",
		}),
		IterationCapHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickertalk_iteration_cap_total",
			Help: "Turns stopped by the dispatch iteration cap",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickertalk_turn_duration_seconds",
			Help:    "Wall time of one turn from entry to commit",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	reg.MustRegister(
		m.TurnsTotal,
		m.DispatchesTotal,
		m.SpecialistErrors,
		m.DegradedClassifications,
		m.IterationCapHits,
		m.TurnDuration,
	)
	return m
}

// NopMetrics returns metrics registered nowhere.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
