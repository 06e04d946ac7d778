// Package metrics defines the Prometheus collectors recorded by a pipeline
// run and writes them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/revbow/pkg/revbow/extract"
	"github.com/cognicore/revbow/pkg/revbow/internalerr"
	"github.com/cognicore/revbow/pkg/revbow/normalize"
)

// Metrics holds all Prometheus collectors for a run.
type Metrics struct {
	registry *prometheus.Registry

	InputErrorsTotal      prometheus.Counter
	RecordsExtractedTotal prometheus.Counter
	FieldsMissingTotal    *prometheus.CounterVec
	CoercionsTotal        *prometheus.CounterVec
	EncodingDropsTotal    prometheus.Counter
	RecoveriesTotal       *prometheus.CounterVec
	ReviewsTotal          prometheus.Counter
	DuplicatesTotal       prometheus.Counter
	Groups                prometheus.Gauge
	EligibleGroups        prometheus.Gauge
	VocabularyTerms       *prometheus.GaugeVec
	StageDuration         *prometheus.HistogramVec
}

// New creates all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		InputErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "revbow_input_errors_total",
				Help: "Input files skipped because they could not be read.",
			},
		),
		RecordsExtractedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "revbow_records_extracted_total",
				Help: "Records found in raw text and tabular inputs.",
			},
		),
		FieldsMissingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revbow_fields_missing_total",
				Help: "Fields that fell back to the none sentinel, by field.",
			},
			[]string{"field"},
		),
		CoercionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revbow_coercion_failures_total",
				Help: "Typed values that could not be parsed and became none, by field.",
			},
			[]string{"field"},
		),
		EncodingDropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "revbow_encoding_drops_total",
				Help: "Review texts replaced with none because they were not English ASCII.",
			},
		),
		RecoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "revbow_recoveries_total",
				Help: "Values replaced by a sentinel, by recovery class (missing_field, type_coercion, encoding).",
			},
			[]string{"class"},
		),
		ReviewsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "revbow_reviews_total",
				Help: "Normalized reviews kept after deduplication.",
			},
		),
		DuplicatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "revbow_duplicates_total",
				Help: "Exact duplicate reviews removed.",
			},
		),
		Groups: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "revbow_groups",
				Help: "Product groups in the corpus.",
			},
		),
		EligibleGroups: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "revbow_eligible_groups",
				Help: "Product groups that passed the minimum review gate.",
			},
		),
		VocabularyTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "revbow_vocabulary_terms",
				Help: "Vocabulary size by term kind (unigram, bigram).",
			},
			[]string{"kind"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "revbow_stage_duration_seconds",
				Help:    "Wall time of each pipeline stage.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),
	}

	m.registry.MustRegister(
		m.InputErrorsTotal,
		m.RecordsExtractedTotal,
		m.FieldsMissingTotal,
		m.CoercionsTotal,
		m.EncodingDropsTotal,
		m.RecoveriesTotal,
		m.ReviewsTotal,
		m.DuplicatesTotal,
		m.Groups,
		m.EligibleGroups,
		m.VocabularyTerms,
		m.StageDuration,
	)

	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveExtract records extraction counts.
func (m *Metrics) ObserveExtract(s extract.Stats) {
	m.RecordsExtractedTotal.Add(float64(s.Records))
	for f, n := range s.Missing {
		m.FieldsMissingTotal.WithLabelValues(string(f)).Add(float64(n))
	}
	m.recovered(internalerr.ErrMissingField, s.MissingTotal())
}

// ObserveNormalize records normalization recoveries and output size.
func (m *Metrics) ObserveNormalize(s normalize.Stats) {
	for f, n := range s.Coercion {
		m.CoercionsTotal.WithLabelValues(string(f)).Add(float64(n))
	}
	m.EncodingDropsTotal.Add(float64(s.Encoding))
	m.DuplicatesTotal.Add(float64(s.Duplicates))
	m.ReviewsTotal.Add(float64(s.Output))
	m.recovered(internalerr.ErrTypeCoercion, s.CoercionTotal())
	m.recovered(internalerr.ErrEncoding, s.Encoding)
}

func (m *Metrics) recovered(class error, n int) {
	m.RecoveriesTotal.WithLabelValues(internalerr.Class(class)).Add(float64(n))
}

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes every collector to path in the text exposition
// format, replacing the file atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
