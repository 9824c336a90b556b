// Package observability provides Prometheus metrics for the forum.
//
// Metrics are registered on an explicit registry so tests can build as many
// instances as they like without colliding on the default registerer.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "qaforum"

type Metrics struct {
	registry *prometheus.Registry

	// VotesTotal counts ledger mutations. Labels: outcome (created, changed, removed)
	VotesTotal *prometheus.CounterVec

	// AcceptancesTotal counts successful answer acceptances.
	AcceptancesTotal prometheus.Counter

	// NotificationsTotal counts notification writes. Labels: kind, result (emitted, failed)
	NotificationsTotal *prometheus.CounterVec

	// ModerationTotal counts admin actions. Labels: action
	ModerationTotal *prometheus.CounterVec

	// AssistantRequestsTotal counts suggestion requests. Labels: outcome
	AssistantRequestsTotal *prometheus.CounterVec

	// AssistantDurationSeconds measures time spent waiting on the text-generation service.
	AssistantDurationSeconds prometheus.Histogram

	// HTTPRequestsTotal counts requests. Labels: method, route, status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDurationSeconds measures handler latency. Labels: method, route
	HTTPRequestDurationSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		VotesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "votes_total",
			Help:      "Vote ledger mutations by outcome.",
		}, []string{"outcome"}),
		AcceptancesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "answer_acceptances_total",
			Help:      "Answers accepted by question authors.",
		}),
		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_total",
			Help:      "Notification writes by kind and result.",
		}, []string{"kind", "result"}),
		ModerationTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "moderation_actions_total",
			Help:      "Admin moderation actions.",
		}, []string{"action"}),
		AssistantRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Suggested-answer requests by outcome.",
		}, []string{"outcome"}),
		AssistantDurationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "assistant",
			Name:      "duration_seconds",
			Help:      "Latency of the text-generation service.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records per-route request counts and latency. Unmatched
// routes are grouped under "unmatched" to bound label cardinality.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
