// Package metrics records pipeline timings and write counts in a private
// Prometheus registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder observes pipeline stages. A nil *Recorder ignores every call.
type Recorder struct {
	registry           *prometheus.Registry
	stageLatency       *prometheus.HistogramVec
	pointsWritten      *prometheus.CounterVec
	collectionsCreated prometheus.Counter
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragingest_stage_duration_seconds",
			Help:    "Duration of ingestion pipeline stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage", "status"}),
		pointsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragingest_points_written_total",
			Help: "Points upserted into a collection",
		}, []string{"collection"}),
		collectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragingest_collections_created_total",
			Help: "Collections created by provisioning",
		}),
	}
	r.registry.MustRegister(r.stageLatency, r.pointsWritten, r.collectionsCreated)
	return r
}

// ObserveStage records how long stage took and whether it failed.
func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	r.stageLatency.WithLabelValues(stage, status).Observe(d.Seconds())
}

// PointsWritten adds n to the collection's write counter.
func (r *Recorder) PointsWritten(collection string, n int) {
	if r == nil {
		return
	}
	r.pointsWritten.WithLabelValues(collection).Add(float64(n))
}

// CollectionCreated counts a provisioning that created a collection.
func (r *Recorder) CollectionCreated() {
	if r == nil {
		return
	}
	r.collectionsCreated.Inc()
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
