// Package metrics holds the Prometheus collectors shared by the world, fetch and version packages.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "anvilview"

type Metrics struct {
	ChunkLoads     *prometheus.CounterVec
	SkippedSlices  prometheus.Counter
	Fetches        *prometheus.CounterVec
	VersionLookups *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChunkLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_loads_total",
			Help:      "Chunk loads by dimension and result.",
		}, []string{"dimension", "result"}),
		SkippedSlices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_slices_total",
			Help:      "Chunk slices dropped because their section was malformed.",
		}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Remote document fetches by outcome.",
		}, []string{"outcome"}),
		VersionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_lookups_total",
			Help:      "Release to schema version lookups by the tier that answered.",
		}, []string{"tier"}),
	}
	if reg != nil {
		reg.MustRegister(m.ChunkLoads, m.SkippedSlices, m.Fetches, m.VersionLookups)
	}
	return m
}

func (m *Metrics) ChunkLoaded(dimension, result string) {
	if m == nil {
		return
	}
	m.ChunkLoads.WithLabelValues(dimension, result).Inc()
}

func (m *Metrics) SlicesSkipped(n int) {
	if m == nil || n == 0 {
		return
	}
	m.SkippedSlices.Add(float64(n))
}

func (m *Metrics) Fetched(outcome string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) VersionResolved(tier string) {
	if m == nil {
		return
	}
	m.VersionLookups.WithLabelValues(tier).Inc()
}
