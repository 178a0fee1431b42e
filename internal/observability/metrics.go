// Package observability provides the Prometheus metrics shared across the
// detection pipeline and the HTTP layer.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Detection outcome label values.
const (
	OutcomeSuccess                   = "success"
	OutcomeInvalidInput              = "invalid_input"
	OutcomeIngestFailure             = "ingest_failure"
	OutcomeClassificationUnavailable = "classification_unavailable"
	OutcomeStorageUnavailable        = "storage_unavailable"
)

// Metrics holds all application metrics registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	DetectionsTotal    *prometheus.CounterVec
	ClassifierDuration prometheus.Histogram
	AdvisoryFallbacks  prometheus.Counter
	ResultsSaved       prometheus.Counter
}

// NewMetrics creates and registers the application metrics.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		DetectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pestwatch_detections_total",
			Help: "Detection requests by outcome.",
		}, []string{"outcome"}),
		ClassifierDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pestwatch_classifier_duration_seconds",
			Help:    "Latency of the external classification call.",
			Buckets: prometheus.DefBuckets,
		}),
		AdvisoryFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pestwatch_advisory_fallbacks_total",
			Help: "Detections persisted with the advisory fallback text.",
		}),
		ResultsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pestwatch_results_saved_total",
			Help: "Detection results persisted to the datastore.",
		}),
	}

	collectors := []prometheus.Collector{
		m.DetectionsTotal,
		m.ClassifierDuration,
		m.AdvisoryFallbacks,
		m.ResultsSaved,
	}
	for _, collector := range collectors {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler returns an HTTP handler serving the metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
