// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine-level collectors. A nil *Metrics is a valid
// no-op receiver so callers don't have to guard every observation.
type Metrics struct {
	reg *prometheus.Registry

	Runs             *prometheus.CounterVec
	ItemsScheduled   prometheus.Counter
	ItemsUnscheduled prometheus.Counter
	ChunksProduced   prometheus.Counter
	RecorderWrites   prometheus.Counter
	RecorderFailures prometheus.Counter
	RunSeconds       prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		reg: reg,
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "daypack_plan_runs_total",
			Help: "Scheduling runs by entry point.",
		}, []string{"mode"}),
		ItemsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "daypack_items_scheduled_total",
			Help: "Items (or item chunks) placed into slots.",
		}),
		ItemsUnscheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "daypack_items_unscheduled_total",
			Help: "Items that found no room, even after splitting.",
		}),
		ChunksProduced: factory.NewCounter(prometheus.CounterOpts{
			Name: "daypack_split_chunks_total",
			Help: "Chunks produced by splitting oversized items.",
		}),
		RecorderWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "daypack_recorder_writes_total",
			Help: "Successful completion write-backs.",
		}),
		RecorderFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "daypack_recorder_failures_total",
			Help: "Failed completion write-backs (logged, not fatal).",
		}),
		RunSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "daypack_plan_run_seconds",
			Help:    "Wall time of one scheduling run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRun(mode string, scheduled, unscheduled, chunks int, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(mode).Inc()
	m.ItemsScheduled.Add(float64(scheduled))
	m.ItemsUnscheduled.Add(float64(unscheduled))
	m.ChunksProduced.Add(float64(chunks))
	m.RunSeconds.Observe(seconds)
}

func (m *Metrics) ObserveRecorder(writes, failures int) {
	if m == nil {
		return
	}
	m.RecorderWrites.Add(float64(writes))
	m.RecorderFailures.Add(float64(failures))
}
