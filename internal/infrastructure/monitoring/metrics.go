// Package monitoring provides Prometheus metrics for the recommendation
// engine.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	LockTimeoutsTotal prometheus.Counter
	PhaseDuration     *prometheus.HistogramVec
}

// NewMetrics registers the engine collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "moodplate",
			Name:      "recommendation_requests_total",
			Help:      "Recommendation requests by terminal outcome.",
		}, []string{"outcome"}),
		LockTimeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moodplate",
			Name:      "lock_timeouts_total",
			Help:      "Requests skipped because the per-key lock was held.",
		}),
		PhaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "moodplate",
			Name:      "phase_duration_seconds",
			Help:      "Duration of each engine phase.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"phase"}),
	}
	reg.MustRegister(
		m.RequestsTotal,
		m.LockTimeoutsTotal,
		m.PhaseDuration,
	)
	return m
}

// RegisterCacheStats exposes the artifact cache's cumulative hit and miss
// counts as counters backed by the stats function.
func RegisterCacheStats(reg prometheus.Registerer, stats func() (hits, misses int64)) {
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "moodplate",
		Name:      "artifact_cache_hits_total",
		Help:      "Artifact bundle loads served from cache.",
	}, func() float64 {
		hits, _ := stats()
		return float64(hits)
	}))
	reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "moodplate",
		Name:      "artifact_cache_misses_total",
		Help:      "Artifact bundle loads that read from disk.",
	}, func() float64 {
		_, misses := stats()
		return float64(misses)
	}))
}

// ObservePhase records one phase duration.
func (m *Metrics) ObservePhase(phase string, start time.Time) {
	m.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
