package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spacetraveling"

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	contentAPIRequests *prometheus.CounterVec
	contentAPIDuration *prometheus.HistogramVec
	generations        *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		contentAPIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_api_requests_total",
			Help:      "Requests sent to the content API.",
		}, []string{"operation", "outcome"}),
		contentAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "content_api_request_duration_seconds",
			Help:      "Duration of content API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prerender_regenerations_total",
			Help:      "Page data generations.",
		}, []string{"page", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests.",
		}, []string{"method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.contentAPIRequests,
		m.contentAPIDuration,
		m.generations,
		m.httpRequests,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(operation string, duration time.Duration, err error) {
	m.contentAPIRequests.WithLabelValues(operation, outcome(err)).Inc()
	m.contentAPIDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) ObserveGeneration(page string, err error) {
	m.generations.WithLabelValues(page, outcome(err)).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method string, code int) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return outcomeError
	}

	return outcomeSuccess
}
