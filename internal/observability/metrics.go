package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// frame-rendering service.
type Metrics struct {
	FramesRendered prometheus.Counter
	RenderErrors   prometheus.Counter
	RenderDuration prometheus.Histogram
	FrameCache     *prometheus.CounterVec // labels: result={hit,miss}
	FrameBytes     prometheus.Histogram

	// Dataset metrics.
	DatasetRows       prometheus.Histogram
	DatasetLoadErrors prometheus.Counter
	RowsSkipped       prometheus.Counter

	// Topology metrics.
	TopologyLoads        *prometheus.CounterVec // labels: outcome={success,error}
	TopologyLoadDuration prometheus.Histogram

	// Invalidation metrics.
	InvalidationEvents *prometheus.CounterVec // labels: outcome={applied,malformed}
	ServiceReady       prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FramesRendered,
		m.RenderErrors,
		m.RenderDuration,
		m.FrameCache,
		m.FrameBytes,
		m.DatasetRows,
		m.DatasetLoadErrors,
		m.RowsSkipped,
		m.TopologyLoads,
		m.TopologyLoadDuration,
		m.InvalidationEvents,
		m.ServiceReady,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_atlas",
			Name:      "frames_rendered_total",
			Help:      "Total frames rasterized (cache misses that completed).",
		}),
		RenderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_atlas",
			Name:      "render_errors_total",
			Help:      "Total frame requests that failed to render.",
		}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_atlas",
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete load-grid-rasterize-encode cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		FrameCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "precip_atlas",
			Name:      "frame_cache_total",
			Help:      "Frame cache lookups by result.",
		}, []string{"result"}),
		FrameBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_atlas",
			Name:      "frame_bytes",
			Help:      "Encoded PNG size per rendered frame.",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 2, 8),
		}),
		DatasetRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_atlas",
			Name:      "dataset_rows",
			Help:      "Sample rows parsed per year file.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}),
		DatasetLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_atlas",
			Name:      "dataset_load_errors_total",
			Help:      "Total year-file loads that failed.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "precip_atlas",
			Name:      "dataset_rows_skipped_total",
			Help:      "Malformed CSV rows skipped during parsing.",
		}),
		TopologyLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "precip_atlas",
			Name:      "topology_loads_total",
			Help:      "Topology fetch attempts by outcome.",
		}, []string{"outcome"}),
		TopologyLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "precip_atlas",
			Name:      "topology_load_duration_seconds",
			Help:      "Duration of topology fetch and decode.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		InvalidationEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "precip_atlas",
			Name:      "invalidation_events_total",
			Help:      "Dataset-update messages consumed from Kafka, by outcome.",
		}, []string{"outcome"}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "precip_atlas",
			Name:      "service_ready",
			Help:      "1 once the first frame has rendered successfully.",
		}),
	}
}
