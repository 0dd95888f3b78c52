package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the server's Prometheus instruments. Each Server owns
// its registry so tests can spin up servers independently.
type metrics struct {
	registry    *prometheus.Registry
	comparisons *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	duration    prometheus.Histogram
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		comparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billdiff_comparisons_total",
			Help: "Comparison requests by outcome.",
		}, []string{"outcome"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "billdiff_fetches_total",
			Help: "Outbound page fetches by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "billdiff_comparison_duration_seconds",
			Help:    "Wall time per comparison, including fetches.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
