package config

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inkdesk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// QuoteTransitions counts quote status changes by target status.
	QuoteTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkdesk",
		Name:      "quote_transitions_total",
		Help:      "Quote status transitions by target status.",
	}, []string{"status"})

	// JobRuns counts background job executions by job and outcome.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inkdesk",
		Name:      "job_runs_total",
		Help:      "Background job executions by job and outcome.",
	}, []string{"job", "outcome"})
)

func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
