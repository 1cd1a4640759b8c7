// Package metrics provides Prometheus-based metrics collection for the
// fetch gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// PrometheusMetrics provides metrics collection for fetch handling.
type PrometheusMetrics struct {
	// Request metrics
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  prometheus.Gauge

	// Security metrics
	blockedTotal           *prometheus.CounterVec
	rebindingDetectedTotal prometheus.Counter

	// Upstream metrics
	statusCodeResponses *prometheus.CounterVec
	responseBytes       prometheus.Histogram

	logger      *zap.Logger
	httpHandler func(*fasthttp.RequestCtx)
}

// NewPrometheusMetrics creates a collector registered on the default registry.
func NewPrometheusMetrics(namespace string, logger *zap.Logger) *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(namespace, prometheus.DefaultRegisterer, logger)
}

// NewPrometheusMetricsWithRegistry creates a collector with a custom registry.
func NewPrometheusMetricsWithRegistry(namespace string, registerer prometheus.Registerer, logger *zap.Logger) *PrometheusMetrics {
	pm := &PrometheusMetrics{
		logger: logger,
	}

	pm.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of fetch requests processed",
		},
		[]string{"outcome"},
	)

	pm.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Time taken to process fetch requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	pm.activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "active_requests",
			Help:      "Number of currently active fetch requests",
		},
	)

	pm.blockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "blocked_total",
			Help:      "Total number of fetches refused by the target policy",
		},
		[]string{"reason"}, // hostname, obfuscated, private_ip, dns
	)

	pm.rebindingDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "rebinding_detected_total",
			Help:      "Total number of connect-time DNS rebinding refusals",
		},
	)

	pm.statusCodeResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "status_code_responses_total",
			Help:      "Total number of upstream responses by status code range",
		},
		[]string{"status_range"}, // 2xx, 3xx, 4xx, 5xx
	)

	pm.responseBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "response_bytes",
			Help:      "Upstream response body sizes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB to 16MiB
		},
	)

	registerer.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.activeRequests,
		pm.blockedTotal,
		pm.rebindingDetectedTotal,
		pm.statusCodeResponses,
		pm.responseBytes,
	)

	gatherer, ok := registerer.(prometheus.Gatherer)
	if !ok {
		gatherer = prometheus.DefaultGatherer
	}
	pm.httpHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	logger.Debug("Prometheus metrics initialized")
	return pm
}

// RecordRequest records a completed fetch request with timing.
func (pm *PrometheusMetrics) RecordRequest(outcome string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(outcome).Inc()
	pm.requestDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordBlocked records a policy refusal by reason.
func (pm *PrometheusMetrics) RecordBlocked(reason string) {
	pm.blockedTotal.WithLabelValues(reason).Inc()
}

// RecordRebindingDetected records a connect-time rebinding refusal.
func (pm *PrometheusMetrics) RecordRebindingDetected() {
	pm.rebindingDetectedTotal.Inc()
}

// RecordUpstreamResponse records an upstream response.
func (pm *PrometheusMetrics) RecordUpstreamResponse(statusCode int, bodyBytes int64) {
	pm.statusCodeResponses.WithLabelValues(statusCodeRange(statusCode)).Inc()
	pm.responseBytes.Observe(float64(bodyBytes))
}

// IncActiveRequests marks a request in flight.
func (pm *PrometheusMetrics) IncActiveRequests() {
	pm.activeRequests.Inc()
}

// DecActiveRequests marks a request finished.
func (pm *PrometheusMetrics) DecActiveRequests() {
	pm.activeRequests.Dec()
}

// ServeHTTP serves the metrics endpoint via fasthttp.
func (pm *PrometheusMetrics) ServeHTTP(ctx *fasthttp.RequestCtx) {
	pm.httpHandler(ctx)
}

// RequestsTotal reads the current counter value for an outcome. Used by the
// health endpoint to report lifetime totals without scraping.
func (pm *PrometheusMetrics) RequestsTotal(outcome string) float64 {
	return pm.counterValue(pm.requestsTotal.WithLabelValues(outcome))
}

// BlockedTotal reads the current refusal counter for a reason.
func (pm *PrometheusMetrics) BlockedTotal(reason string) float64 {
	return pm.counterValue(pm.blockedTotal.WithLabelValues(reason))
}

// counterValue extracts the current value from a counter.
func (pm *PrometheusMetrics) counterValue(counter prometheus.Counter) float64 {
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		pm.logger.Warn("Failed to read counter value", zap.Error(err))
		return 0
	}
	return metric.GetCounter().GetValue()
}

func statusCodeRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
