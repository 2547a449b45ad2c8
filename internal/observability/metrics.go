// Package observability exposes batch metrics in the Prometheus text format.
// A run is short-lived, so metrics are written to a textfile for the node
// exporter rather than served.
package observability

import (
	"fmt"
	"time"

	"github.com/openfoodfacts/nutrieval/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one evaluation run.
type Metrics struct {
	registry *prometheus.Registry

	ProductsEvaluated *prometheus.CounterVec
	Verdicts          *prometheus.CounterVec
	ProductDuration   prometheus.Histogram
	MeanScore         *prometheus.GaugeVec
	LastRunTimestamp  prometheus.Gauge
}

// New registers a fresh set of collectors on their own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ProductsEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrieval_products_total",
			Help: "Products evaluated, by outcome status",
		}, []string{"status"}),
		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nutrieval_verdicts_total",
			Help: "Per-nutrient verdicts of scored products",
		}, []string{"nutrient", "verdict"}),
		ProductDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nutrieval_product_duration_seconds",
			Help:    "Time spent evaluating one product",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		MeanScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nutrieval_mean_score",
			Help: "Mean product score over scored products",
		}, []string{"score"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nutrieval_last_run_timestamp_seconds",
			Help: "Unix time the last evaluation run finished",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveProduct records one product outcome.
func (m *Metrics) ObserveProduct(o models.ProductOutcome, elapsed time.Duration) {
	m.ProductsEvaluated.WithLabelValues(string(o.Status)).Inc()
	m.ProductDuration.Observe(elapsed.Seconds())
	if !o.Status.Scored() {
		return
	}
	for n, v := range o.Verdicts {
		m.Verdicts.WithLabelValues(n.String(), v.String()).Inc()
	}
}

// ObserveDigest records the batch-level results.
func (m *Metrics) ObserveDigest(d models.OutcomeDigest, finished time.Time) {
	m.MeanScore.WithLabelValues("score1").Set(d.MeanScore1)
	m.MeanScore.WithLabelValues("score2").Set(d.MeanScore2)
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes every collected metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
