// Package metrics holds the gateway's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for aigatewayd. Pass to components
// that need to record them.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	AdmissionRejections *prometheus.CounterVec
	InflightDownstream  prometheus.Gauge
	RateLimitKeys       prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aigatewayd",
				Name:      "requests_total",
				Help:      "Total number of forwarded requests, by method and outcome",
			},
			[]string{"method", "outcome"}, // outcome=ok/error
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aigatewayd",
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds, from request receipt to response completion",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		AdmissionRejections: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aigatewayd",
				Name:      "admission_rejections_total",
				Help:      "Total requests rejected by an admission gate, by gate kind",
			},
			[]string{"gate"}, // gate=rate_limit/downstream/upstream
		),
		InflightDownstream: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "aigatewayd",
				Name:      "inflight_downstream",
				Help:      "Current number of in-flight downstream requests",
			},
		),
		RateLimitKeys: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "aigatewayd",
				Name:      "rate_limit_keys",
				Help:      "Number of active rate-limit counter keys",
			},
		),
	}
}
