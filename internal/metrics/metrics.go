package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for simulation runs. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Convergence loop
	Iterations         prometheus.Counter
	Sessions           *prometheus.CounterVec
	MalformedResponses *prometheus.CounterVec
	ClampedRatings     prometheus.Counter
	CompletionLatency  prometheus.Histogram

	// Persistence
	RecordsWritten *prometheus.CounterVec
	SinkFailures   *prometheus.CounterVec
	SinkDegraded   prometheus.Gauge

	// Synthetic data
	SyntheticEntries prometheus.Counter
}

// New registers all collectors on reg. Use prometheus.NewRegistry() in tests
// to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "personasim_iterations_total",
			Help: "Total number of persona judgement iterations",
		}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "personasim_sessions_total",
			Help: "Finished sessions by terminal state",
		}, []string{"state"}),
		MalformedResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "personasim_malformed_responses_total",
			Help: "Responses that failed the label format and fell back to defaults",
		}, []string{"kind"}), // judge, edit, recommendation
		ClampedRatings: factory.NewCounter(prometheus.CounterOpts{
			Name: "personasim_clamped_ratings_total",
			Help: "Ratings returned outside 1-4 and clamped",
		}),
		CompletionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "personasim_completion_duration_seconds",
			Help:    "Latency of text-generation calls in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		RecordsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "personasim_records_written_total",
			Help: "Iteration records written by sink",
		}, []string{"sink"}),
		SinkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "personasim_sink_failures_total",
			Help: "Failed inserts by sink",
		}, []string{"sink"}),
		SinkDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "personasim_sink_degraded",
			Help: "1 when records are going to a fallback sink",
		}),
		SyntheticEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "personasim_synthetic_entries_total",
			Help: "Synthetic iteration records generated",
		}),
	}
}

func (m *Metrics) ObserveIteration() {
	if m == nil {
		return
	}
	m.Iterations.Inc()
}

func (m *Metrics) ObserveSession(state string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveMalformed(kind string) {
	if m == nil {
		return
	}
	m.MalformedResponses.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveClamped() {
	if m == nil {
		return
	}
	m.ClampedRatings.Inc()
}

func (m *Metrics) ObserveCompletion(seconds float64) {
	if m == nil {
		return
	}
	m.CompletionLatency.Observe(seconds)
}

func (m *Metrics) ObserveWrite(sink string) {
	if m == nil {
		return
	}
	m.RecordsWritten.WithLabelValues(sink).Inc()
}

func (m *Metrics) ObserveSinkFailure(sink string) {
	if m == nil {
		return
	}
	m.SinkFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.SinkDegraded.Set(1)
		return
	}
	m.SinkDegraded.Set(0)
}

func (m *Metrics) ObserveSyntheticEntry() {
	if m == nil {
		return
	}
	m.SyntheticEntries.Inc()
}
