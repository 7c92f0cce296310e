// Package metrics exposes the Prometheus instruments the dashboard backend
// updates during operation, served at /metrics in text exposition format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EngineEvaluations counts engine runs by engine name.
	EngineEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonedash_engine_evaluations_total",
			Help: "Engine evaluations",
		},
		[]string{"engine"},
	)

	// AlertOutcomes counts GO watcher tick outcomes (sent, duplicate_key,
	// rate_limited, cooldown_active, push_failed, upstream_error).
	AlertOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonedash_alert_outcomes_total",
			Help: "GO watcher outcomes",
		},
		[]string{"outcome"},
	)

	// UpstreamErrors counts failed upstream calls by source.
	UpstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonedash_upstream_errors_total",
			Help: "Upstream call failures",
		},
		[]string{"source"},
	)

	// GoSignal mirrors the last observed GO signal state (0/1).
	GoSignal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "zonedash_go_signal",
			Help: "Last observed GO signal state",
		},
	)

	// HTTPRequests counts handled requests by route and status class.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zonedash_http_requests_total",
			Help: "Handled HTTP requests",
		},
		[]string{"route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		EngineEvaluations,
		AlertOutcomes,
		UpstreamErrors,
		GoSignal,
		HTTPRequests,
	)
}

// Handler returns the Prometheus text exposition handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
