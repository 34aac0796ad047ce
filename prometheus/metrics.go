// Package prometheus exports pipeline run metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric.
const Namespace = "wikidigest"

// Page outcome label values.
const (
	outcomeUnchanged = "unchanged"
	outcomeProcessed = "processed"
	outcomeFailed    = "failed"
)

// Ensure Metrics implements pipeline.Observer at compile time.
var _ pipeline.Observer = (*Metrics)(nil)

// Metrics holds the Prometheus collectors for pipeline runs.
type Metrics struct {
	gatherer prometheus.Gatherer

	PagesTotal         *prometheus.CounterVec
	StepFailuresTotal  *prometheus.CounterVec
	PageDuration       prometheus.Histogram
	RunsTotal          prometheus.Counter
	LastRunTimestamp   prometheus.Gauge
	LastRunDuration    prometheus.Gauge
	ImagesTotal        *prometheus.CounterVec
	DescriptionsTotal  *prometheus.CounterVec
	BytesSavedTotal    prometheus.Counter
	CostSavedTotal     prometheus.Counter
	ChunksIndexedTotal prometheus.Counter
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg. A nil reg uses a
// fresh registry, so tests do not share state.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_total",
			Help:      "Pages checked, by outcome.",
		}, []string{"outcome"}),
		StepFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "step_failures_total",
			Help:      "Failed processing steps, by step.",
		}, []string{"step"}),
		PageDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent processing one page.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Completed pipeline runs.",
		}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		LastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run.",
		}),
		ImagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "images_total",
			Help:      "Images resolved, by result.",
		}, []string{"result"}),
		DescriptionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "descriptions_total",
			Help:      "Image descriptions, by source.",
		}, []string{"source"}),
		BytesSavedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_saved_total",
			Help:      "Bytes not downloaded or uploaded thanks to the cache.",
		}),
		CostSavedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "estimated_cost_saved_total",
			Help:      "Estimated vision-model spend avoided by cached descriptions.",
		}),
		ChunksIndexedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunks_indexed_total",
			Help:      "Chunks written to the search index.",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notifications_total",
			Help:      "Digest emails, by result.",
		}, []string{"result"}),
	}
}

// ObservePage records the outcome of one page.
func (m *Metrics) ObservePage(result *wikidigest.PageResult, duration time.Duration) {
	outcome := outcomeProcessed
	switch {
	case !result.Success:
		outcome = outcomeFailed
	case len(result.StepsCompleted) == 1:
		outcome = outcomeUnchanged
	}
	m.PagesTotal.WithLabelValues(outcome).Inc()
	for _, step := range result.StepsFailed {
		m.StepFailuresTotal.WithLabelValues(string(step)).Inc()
	}
	m.PageDuration.Observe(duration.Seconds())
}

// ObserveRun records the counters of a finished run.
func (m *Metrics) ObserveRun(summary *wikidigest.RunSummary) {
	s := summary.Stats
	m.RunsTotal.Inc()
	m.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))
	m.LastRunDuration.Set(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	m.ImagesTotal.WithLabelValues("downloaded").Add(float64(s.ImagesDownloaded))
	m.ImagesTotal.WithLabelValues("skipped").Add(float64(s.ImagesSkipped))
	m.ImagesTotal.WithLabelValues("failed").Add(float64(s.ImagesFailed))
	m.DescriptionsTotal.WithLabelValues("generated").Add(float64(s.DescriptionsGenerated))
	m.DescriptionsTotal.WithLabelValues("cached").Add(float64(s.DescriptionsCached))
	m.DescriptionsTotal.WithLabelValues("failed").Add(float64(s.DescriptionsFailed))
	m.BytesSavedTotal.Add(float64(s.BytesSaved))
	m.CostSavedTotal.Add(s.EstimatedCostSaved)
	m.ChunksIndexedTotal.Add(float64(s.ChunksIndexed))
	m.NotificationsTotal.WithLabelValues("sent").Add(float64(s.NotificationsSent))
	m.NotificationsTotal.WithLabelValues("failed").Add(float64(s.NotificationsFailed))
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
