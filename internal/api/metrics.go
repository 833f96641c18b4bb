package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry          *prometheus.Registry
	requestTotal      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	authRejected      *prometheus.CounterVec
	transcodeTotal    *prometheus.CounterVec
	transcodeDuration *prometheus.HistogramVec
	inputBytes        *prometheus.CounterVec
	outputBytes       *prometheus.CounterVec
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpd_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webpd_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		authRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpd_auth_rejections_total",
			Help: "Requests rejected for a missing or wrong API key.",
		}, []string{"operation"}),
		transcodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpd_transcode_total",
			Help: "Transcode attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
		transcodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webpd_transcode_duration_seconds",
			Help:    "Time spent decoding, resizing and encoding.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "outcome"}),
		inputBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpd_transcode_input_bytes_total",
			Help: "Uploaded image bytes handed to the transcoder.",
		}, []string{"operation"}),
		outputBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webpd_transcode_output_bytes_total",
			Help: "WebP bytes returned to clients.",
		}, []string{"operation"}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.authRejected,
		m.transcodeTotal,
		m.transcodeDuration,
		m.inputBytes,
		m.outputBytes,
	)
	return m
}

func (m *metrics) metricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := newResponseRecorder(w)
		next.ServeHTTP(recorder, r)

		route := routeLabel(r)
		status := strconv.Itoa(recorder.status)

		m.requestTotal.WithLabelValues(r.Method, route, status).Inc()
		m.requestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// routeLabel uses the matched mux pattern so path parameters do not
// inflate label cardinality.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}
