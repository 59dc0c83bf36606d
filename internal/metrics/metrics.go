// Package metrics exposes dataset pipeline measurements in Prometheus
// format, over HTTP for the read API and as a textfile for batch runs.
package metrics

import (
	"net/http"

	"dataset-service/internal/builder"
	"dataset-service/internal/generator"
	"dataset-service/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dataset"

// Metrics holds the collectors of one registry.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration    *prometheus.HistogramVec
	RecordsGenerated *prometheus.CounterVec
	Deviations       *prometheus.CounterVec
	RowsLoaded       *prometheus.GaugeVec
	CheckPassed      *prometheus.GaugeVec
	ValidationPassed prometheus.Gauge
}

// New registers the dataset collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of each pipeline stage",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"stage"}, // customers, orders, items, build, validate
		),
		RecordsGenerated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_generated_total",
				Help:      "Total number of generated records",
			},
			[]string{"entity"},
		),
		Deviations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deviations_total",
				Help:      "Distribution targets clamped to a feasible value",
			},
			[]string{"stage"},
		),
		RowsLoaded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows_loaded",
				Help:      "Rows per table after the last build",
			},
			[]string{"table"},
		),
		CheckPassed: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "validation_check_passed",
				Help:      "1 if the validation check passed on the last run, 0 otherwise",
			},
			[]string{"check"},
		),
		ValidationPassed: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "validation_passed",
				Help:      "1 if every validation check passed on the last run",
			},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDataset records stage timings, record counts and deviations.
func (m *Metrics) ObserveDataset(ds *generator.Dataset) {
	for stage, d := range ds.Timings {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
	for entity, n := range ds.Counts() {
		m.RecordsGenerated.WithLabelValues(entity).Add(float64(n))
	}
	for _, w := range ds.Warnings {
		m.Deviations.WithLabelValues(w.Stage).Inc()
	}
}

// ObserveBuild records the load duration and row counts.
func (m *Metrics) ObserveBuild(summary *builder.BuildSummary) {
	m.StageDuration.WithLabelValues("build").Observe(summary.Duration.Seconds())
	for table, n := range summary.Counts {
		m.RowsLoaded.WithLabelValues(table).Set(float64(n))
	}
}

// ObserveReport records the outcome of every check.
func (m *Metrics) ObserveReport(report *validator.Report) {
	for _, c := range report.Checks {
		m.CheckPassed.WithLabelValues(c.Name).Set(boolValue(c.Passed))
	}
	m.ValidationPassed.Set(boolValue(report.Passed))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
