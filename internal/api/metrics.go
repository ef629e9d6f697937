package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	rows     prometheus.Counter
	latency  prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "herring_requests_total",
			Help: "API requests by route and status code",
		}, []string{"route", "status"}),
		rows: factory.NewCounter(prometheus.CounterOpts{
			Name: "herring_rows_predicted_total",
			Help: "Total rows evaluated through the predict endpoint",
		}),
		latency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "herring_predict_duration_seconds",
			Help:    "End-to-end predict request latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

func (m *Metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
