// Package metrics exposes stage execution metrics to Prometheus. A Collector
// plugs into the scheduler through dag.Hooks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vk/stagechain/internal/dag"
)

// Collector holds the stage metrics of one application instance.
type Collector struct {
	// started counts stages whose work began.
	started prometheus.Counter
	// finished counts stages by terminal status.
	finished *prometheus.CounterVec
	// duration tracks the wall time of stage work.
	duration prometheus.Histogram
	// running is the number of stages currently executing work.
	running prometheus.Gauge
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		started: f.NewCounter(prometheus.CounterOpts{
			Name: "stagechain_stages_started_total",
			Help: "Total stages whose work started",
		}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stagechain_stages_finished_total",
			Help: "Total stages finished by terminal status",
		}, []string{"status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stagechain_stage_duration_seconds",
			Help:    "Stage work duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Name: "stagechain_stages_running",
			Help: "Stages currently executing work",
		}),
	}
}

// Hooks returns the scheduler callbacks that feed the collector.
func (c *Collector) Hooks() dag.Hooks {
	return dag.Hooks{
		OnStart:  c.onStart,
		OnFinish: c.onFinish,
	}
}

func (c *Collector) onStart(_ context.Context, _ dag.StageEvent) {
	c.started.Inc()
	c.running.Inc()
}

func (c *Collector) onFinish(_ context.Context, ev dag.StageEvent) {
	c.finished.WithLabelValues(string(ev.Status)).Inc()
	// Only stages that started work were counted as running.
	if ev.Status == dag.StatusSucceeded || ev.Status == dag.StatusFailed {
		c.running.Dec()
		c.duration.Observe(ev.Duration.Seconds())
	}
}
