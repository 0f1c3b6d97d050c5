// Package metrics provides Prometheus instrumentation for schema inference
// runs.
//
// # Overview
//
// A run is a short-lived batch job, so each Collector owns its registry
// instead of registering on the global default one. At the end of a run the
// registry can be pushed to a Prometheus Pushgateway.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("shapescan")
//	timer := metrics.NewTimer("users")
//	shape, stats, err := inferrer.Infer(ctx, src, "users")
//	collector.ObserveCollection("users", stats.Documents, timer.Stop(), err)
//
//	if err := collector.Push(ctx, "http://pushgateway:9091", "shapescan"); err != nil {
//	    logger.Warn("metrics push failed", zap.Error(err))
//	}
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Collection status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Collector groups the metrics of one inference run.
// All methods are safe for concurrent use.
type Collector struct {
	registry            *prometheus.Registry
	documentsSampled    *prometheus.CounterVec   // documents read per collection
	collectionsInferred *prometheus.CounterVec   // collections by status
	inferenceDuration   *prometheus.HistogramVec // per collection wall time
	unionFields         *prometheus.GaugeVec     // union positions in the final schema
	lastRun             prometheus.Gauge
	startTime           time.Time
}

// NewCollector creates a collector whose metric names are prefixed with
// namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		documentsSampled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_sampled_total",
				Help:      "Total number of documents sampled",
			},
			[]string{"collection"},
		),
		collectionsInferred: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collections_inferred_total",
				Help:      "Number of collections processed, by status",
			},
			[]string{"status"},
		),
		inferenceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "inference_duration_seconds",
				Help:      "Time spent sampling and inferring one collection",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		unionFields: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "union_fields",
				Help:      "Number of field positions holding a union in the inferred schema",
			},
			[]string{"collection"},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time of the last completed run",
			},
		),
		startTime: time.Now(),
	}

	c.registry.MustRegister(
		c.documentsSampled,
		c.collectionsInferred,
		c.inferenceDuration,
		c.unionFields,
		c.lastRun,
	)
	return c
}

// Registry returns the registry backing the collector
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// ObserveCollection records the outcome of inferring one collection.
func (c *Collector) ObserveCollection(collection string, documents int, d time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	c.documentsSampled.WithLabelValues(collection).Add(float64(documents))
	c.collectionsInferred.WithLabelValues(status).Inc()
	c.inferenceDuration.WithLabelValues(status).Observe(d.Seconds())
}

// SetUnionFields records how many union positions a collection schema has.
func (c *Collector) SetUnionFields(collection string, n int) {
	c.unionFields.WithLabelValues(collection).Set(float64(n))
}

// MarkCompleted stamps the end of the run.
func (c *Collector) MarkCompleted() {
	c.lastRun.SetToCurrentTime()
}

// Push sends every metric of the collector to a Prometheus Pushgateway,
// replacing the metrics previously pushed under job.
func (c *Collector) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the name the timer was created with
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. The timer can be stopped
// multiple times, each returning the total elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
