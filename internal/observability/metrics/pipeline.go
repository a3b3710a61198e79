package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics implements ports.PipelineObserver.
type PipelineMetrics struct {
	indexRunsTotal   *prometheus.CounterVec
	indexDuration    *prometheus.HistogramVec
	indexedChunks    prometheus.Gauge
	generationsTotal *prometheus.CounterVec
	routesTotal      *prometheus.CounterVec
}

func NewPipelineMetrics(service string, registerer prometheus.Registerer) *PipelineMetrics {
	constLabels := prometheus.Labels{"service": service}

	m := &PipelineMetrics{
		indexRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "quizbot",
				Subsystem:   "index",
				Name:        "runs_total",
				Help:        "Total vault index runs by status.",
				ConstLabels: constLabels,
			},
			[]string{"status"},
		),
		indexDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   "quizbot",
				Subsystem:   "index",
				Name:        "duration_seconds",
				Help:        "Vault index run duration in seconds.",
				Buckets:     []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
				ConstLabels: constLabels,
			},
			[]string{"status"},
		),
		indexedChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   "quizbot",
				Subsystem:   "index",
				Name:        "chunks",
				Help:        "Chunks written by the last successful index run.",
				ConstLabels: constLabels,
			},
		),
		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "quizbot",
				Subsystem:   "generation",
				Name:        "total",
				Help:        "Structured generation calls by task and outcome.",
				ConstLabels: constLabels,
			},
			[]string{"task", "outcome"},
		),
		routesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   "quizbot",
				Subsystem:   "router",
				Name:        "decisions_total",
				Help:        "Intent router decisions by route.",
				ConstLabels: constLabels,
			},
			[]string{"route"},
		),
	}

	registerer.MustRegister(m.indexRunsTotal, m.indexDuration, m.indexedChunks, m.generationsTotal, m.routesTotal)
	return m
}

func (m *PipelineMetrics) ObserveIndexRun(status string, chunks int, seconds float64) {
	if status == "" {
		status = "unknown"
	}
	m.indexRunsTotal.WithLabelValues(status).Inc()
	m.indexDuration.WithLabelValues(status).Observe(seconds)
	if status == "ok" {
		m.indexedChunks.Set(float64(chunks))
	}
}

func (m *PipelineMetrics) ObserveGeneration(task, outcome string) {
	if task == "" {
		task = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.generationsTotal.WithLabelValues(task, outcome).Inc()
}

func (m *PipelineMetrics) ObserveRoute(route string) {
	if route == "" {
		route = "unknown"
	}
	m.routesTotal.WithLabelValues(route).Inc()
}
