// Package metrics records import run metrics with Prometheus and pushes them
// to a Pushgateway when the run ends. A batch tool exits before any scraper
// could reach it, so metrics are pushed rather than served.
//
// The source is not a metric label; Push adds it as a grouping key.
//
// Metrics collected:
//   - emojiimport_items_total: candidates by outcome
//   - emojiimport_item_failures_total: failed candidates by error kind
//   - emojiimport_item_duration_seconds: per-candidate processing time
//   - emojiimport_image_bytes: size of stored images
//   - emojiimport_run_duration_seconds: duration of the last run
//   - emojiimport_last_success_timestamp_seconds: end time of the last completed run
//   - emojiimport_registry_emojis: local emoji in the registry after the run
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JonMunkholm/emojiimport/internal/core"
)

// Namespace prefixes every metric name.
const Namespace = "emojiimport"

// Recorder collects the metrics of one run in a private registry.
type Recorder struct {
	registry *prometheus.Registry
	source   string

	items          *prometheus.CounterVec
	failures       *prometheus.CounterVec
	itemDuration   prometheus.Histogram
	imageBytes     prometheus.Histogram
	runDuration    prometheus.Gauge
	lastSuccess    prometheus.Gauge
	registryEmojis prometheus.Gauge
}

// NewRecorder creates a recorder for runs of the given source.
func NewRecorder(source string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		source:   source,

		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "items_total",
			Help:      "Candidates processed by terminal outcome",
		}, []string{"outcome"}),

		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "item_failures_total",
			Help:      "Failed candidates by error kind",
		}, []string{"kind"}),

		itemDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "item_duration_seconds",
			Help:      "Time to process one candidate",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		imageBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "image_bytes",
			Help:      "Encoded size of imported images",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 7), // 1KB to 4MB
		}),

		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last import run",
		}),

		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed import run",
		}),

		registryEmojis: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "registry_emojis",
			Help:      "Local emoji in the registry after the run",
		}),
	}
}

// Observe records one candidate outcome. It matches the importer observer
// signature.
func (r *Recorder) Observe(res core.ItemResult) {
	r.items.WithLabelValues(string(res.Outcome)).Inc()
	r.itemDuration.Observe(res.Duration.Seconds())

	switch res.Outcome {
	case core.OutcomeFailed:
		r.failures.WithLabelValues(string(res.Kind)).Inc()
	case core.OutcomeImported:
		r.imageBytes.Observe(float64(res.Bytes))
	}
}

// ObserveRun records run-level values. completed is false when the run was
// interrupted or its source failed.
func (r *Recorder) ObserveRun(report *core.Report, completed bool, finishedAt time.Time) {
	if report != nil {
		r.runDuration.Set(report.Duration.Seconds())
	}
	if completed {
		r.lastSuccess.Set(float64(finishedAt.Unix()))
	}
}

// SetRegistrySize records the number of local emoji after the run.
func (r *Recorder) SetRegistrySize(n int64) {
	r.registryEmojis.Set(float64(n))
}

// Gatherer exposes the recorder registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push sends all collected metrics to the Pushgateway at url, replacing the
// previous push of the same job and source.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("source", r.source).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
