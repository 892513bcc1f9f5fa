package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks write-queue activity.
type Metrics struct {
	Writes     *prometheus.CounterVec
	Failures   *prometheus.CounterVec
	QueueDepth prometheus.Gauge
}

// NewMetrics registers the storage collectors on reg. Use a fresh registry
// per adapter in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learn",
			Subsystem: "storage",
			Name:      "writes_total",
			Help:      "Storage write operations executed by the queue",
		}, []string{"area", "op"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learn",
			Subsystem: "storage",
			Name:      "failures_total",
			Help:      "Storage operations that failed to serialize or persist",
		}, []string{"area", "reason"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "learn",
			Subsystem: "storage",
			Name:      "queue_depth",
			Help:      "Operations waiting in the write queue",
		}),
	}
}
