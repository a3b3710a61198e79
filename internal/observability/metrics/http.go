package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	pipeline *PipelineMetrics

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal        *prometheus.CounterVec
	askContextDocs  *prometheus.HistogramVec
	askDuration     *prometheus.HistogramVec
	quizSubmissions *prometheus.CounterVec
	quizScore       prometheus.Histogram
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizbot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quizbot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "quizbot",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizbot",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total successful ask requests by route.",
		},
		[]string{"service", "route"},
	)
	askContextDocs := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quizbot",
			Subsystem: "ask",
			Name:      "context_documents",
			Help:      "Distribution of fused context documents per ask request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "quizbot",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask pipeline duration in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"service", "route"},
	)
	quizSubmissions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "quizbot",
			Subsystem: "quiz",
			Name:      "submissions_total",
			Help:      "Total graded quiz submissions.",
		},
		[]string{"service"},
	)
	quizScore := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "quizbot",
			Subsystem: "quiz",
			Name:      "score_percent",
			Help:      "Distribution of graded quiz scores.",
			Buckets:   []float64{0, 20, 40, 50, 60, 70, 80, 90, 100},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askContextDocs,
		askDuration,
		quizSubmissions,
		quizScore,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		pipeline:        NewPipelineMetrics(service, registry),
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		askTotal:        askTotal,
		askContextDocs:  askContextDocs,
		askDuration:     askDuration,
		quizSubmissions: quizSubmissions,
		quizScore:       quizScore,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Pipeline returns the observer that shares this registry.
func (m *HTTPServerMetrics) Pipeline() *PipelineMetrics {
	return m.pipeline
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/quizzes/") {
		return path
	}
	if strings.HasSuffix(path, "/submit") {
		return "/v1/quizzes/{quiz_id}/submit"
	}
	return "/v1/quizzes/{quiz_id}"
}

func (m *HTTPServerMetrics) RecordAsk(service, route string, contextDocs int, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	m.askTotal.WithLabelValues(service, route).Inc()
	m.askContextDocs.WithLabelValues(service).Observe(float64(contextDocs))
	m.askDuration.WithLabelValues(service, route).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordQuizSubmission(service string, score int) {
	m.quizSubmissions.WithLabelValues(service).Inc()
	m.quizScore.Observe(float64(score))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
