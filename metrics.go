package scriptstash

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var metricLabels = []string{"method", "operation", "status"}

// metrics holds the request telemetry of the server, registered on its own
// registry so that two servers in one process don't collide.
type metrics struct {
	registry *prometheus.Registry

	requestDurations *prometheus.SummaryVec
	requestBytes     *prometheus.CounterVec
	responseBytes    *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &metrics{
		registry: registry,
		requestDurations: factory.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace: "scriptstash",
				Name:      "requests_duration_seconds",
				Help:      "Amounts of time spent answering requests in seconds.",
			},
			metricLabels,
		),
		requestBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scriptstash",
				Name:      "request_bytes_total",
				Help:      "Total volume of request payloads received in bytes.",
			},
			metricLabels,
		),
		responseBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "scriptstash",
				Name:      "response_bytes_total",
				Help:      "Total volume of response payloads emitted in bytes.",
			},
			metricLabels,
		),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) record(operation string, r *http.Request, rec *statusRecorder, elapsed time.Duration) {
	labels := prometheus.Labels{
		"method":    r.Method,
		"operation": operation,
		"status":    strconv.Itoa(rec.status),
	}

	m.requestDurations.With(labels).Observe(elapsed.Seconds())
	m.responseBytes.With(labels).Add(float64(rec.written))
	if r.ContentLength > 0 {
		m.requestBytes.With(labels).Add(float64(r.ContentLength))
	}
}

// statusRecorder captures the status code and body size of a response for
// telemetry purposes.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(data []byte) (int, error) {
	n, err := r.ResponseWriter.Write(data)
	r.written += int64(n)
	return n, err
}
