package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "pressure_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ingest job.
type Metrics struct {
	Runs           *prometheus.CounterVec // labels: outcome={ingested,unavailable,failed}
	RecordsParsed  prometheus.Counter
	ParseFallbacks prometheus.Counter
	SamplesWritten prometheus.Counter
	MissingSamples prometheus.Counter
	ArchiveSamples prometheus.Gauge
	RunDuration    prometheus.Histogram
	LastSuccess    prometheus.Gauge
}

// NewMetrics creates and registers all job metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Ingest runs by outcome.",
		}, []string{"outcome"}),
		RecordsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_parsed_total",
			Help:      "Observation records parsed from source files.",
		}),
		ParseFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_fallbacks_total",
			Help:      "Source files that needed the fixed-column fallback parser.",
		}),
		SamplesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_written_total",
			Help:      "5-minute samples written to monthly extracts.",
		}),
		MissingSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_samples_total",
			Help:      "Extract samples with no pressure reading.",
		}),
		ArchiveSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_samples",
			Help:      "Samples in the cumulative archive after the last ingest.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-parse-merge-publish run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that ingested a month.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Runs,
		m.RecordsParsed,
		m.ParseFallbacks,
		m.SamplesWritten,
		m.MissingSamples,
		m.ArchiveSamples,
		m.RunDuration,
		m.LastSuccess,
	}
}

// Push sends everything in g to a Pushgateway under the given job name.
// One-shot runs exit before a scrape could happen, so they push instead.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
