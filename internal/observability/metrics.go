package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// forecast polling pipeline.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleDuration    prometheus.Histogram
	PipelineRunning  prometheus.Gauge
	RecordsPublished prometheus.Counter

	FetchErrors *prometheus.CounterVec // labels: kind={timeout,http,network}
	ParseErrors prometheus.Counter

	// Feed strategy metrics.
	FeedSource         *prometheus.CounterVec // labels: source={combined,individual}
	CombinedFailStreak prometheus.Gauge

	// Per-district health: 0=ok, 1=degraded, 2=failed.
	DistrictHealth *prometheus.GaugeVec // labels: district

	SinkErrors *prometheus.CounterVec // labels: sink={store,redis,kafka}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cfa_forecast",
			Name:      "cycles_total",
			Help:      "Total completed polling cycles.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cfa_forecast",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-parse-reconcile-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cfa_forecast",
			Name:      "pipeline_running",
			Help:      "1 when the polling pipeline is active, 0 when shut down.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cfa_forecast",
			Name:      "records_published_total",
			Help:      "Total district sensor records published.",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cfa_forecast",
			Name:      "fetch_errors_total",
			Help:      "Feed fetch failures by kind.",
		}, []string{"kind"}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cfa_forecast",
			Name:      "parse_errors_total",
			Help:      "Feed parse failures.",
		}),
		FeedSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cfa_forecast",
			Name:      "feed_source_total",
			Help:      "Successful cycles by feed strategy.",
		}, []string{"source"}),
		CombinedFailStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cfa_forecast",
			Name:      "combined_feed_failure_streak",
			Help:      "Consecutive combined-feed failures.",
		}),
		DistrictHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cfa_forecast",
			Name:      "district_health",
			Help:      "Per-district feed health: 0=ok, 1=degraded, 2=failed.",
		}, []string{"district"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cfa_forecast",
			Name:      "sink_errors_total",
			Help:      "Publish failures by sink.",
		}, []string{"sink"}),
	}

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.PipelineRunning,
		m.RecordsPublished,
		m.FetchErrors,
		m.ParseErrors,
		m.FeedSource,
		m.CombinedFailStreak,
		m.DistrictHealth,
		m.SinkErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CyclesTotal:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cfa_forecast", Name: "cycles_total"}),
		CycleDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "cfa_forecast", Name: "cycle_duration_seconds"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "cfa_forecast", Name: "pipeline_running"}),
		RecordsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cfa_forecast", Name: "records_published_total"}),
		FetchErrors:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "cfa_forecast", Name: "fetch_errors_total"}, []string{"kind"}),
		ParseErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "cfa_forecast", Name: "parse_errors_total"}),
		FeedSource:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "cfa_forecast", Name: "feed_source_total"}, []string{"source"}),
		CombinedFailStreak: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "cfa_forecast", Name: "combined_feed_failure_streak"}),
		DistrictHealth:     prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "cfa_forecast", Name: "district_health"}, []string{"district"}),
		SinkErrors:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "cfa_forecast", Name: "sink_errors_total"}, []string{"sink"}),
	}
}
