// Package metrics groups the Prometheus instruments recall exposes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "recall"

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeDegraded = "degraded"
)

// Metrics groups all Prometheus instruments used by recall.
type Metrics struct {
	MemoryRetrievals *prometheus.CounterVec
	TurnCommits      *prometheus.CounterVec
	RemoteCalls      *prometheus.CounterVec
	EmbeddingSeconds prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers every instrument with reg. A nil reg builds unregistered
// instruments, which is what tests and the CLI without a server want.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		MemoryRetrievals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_retrievals_total",
			Help:      "Memory retrievals by source and outcome.",
		}, []string{"source", "outcome"}),
		TurnCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_commits_total",
			Help:      "Turn persistence attempts by role and outcome.",
		}, []string{"role", "outcome"}),
		RemoteCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_calls_total",
			Help:      "Calls to the remote memory service by operation and outcome.",
		}, []string{"op", "outcome"}),
		EmbeddingSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embedding_seconds",
			Help:      "Latency of embedding provider calls in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Nop returns unregistered instruments.
func Nop() *Metrics {
	return New(nil)
}

// OrNop returns m, or unregistered instruments when m is nil.
func OrNop(m *Metrics) *Metrics {
	if m == nil {
		return Nop()
	}
	return m
}

// Retrieval counts one memory retrieval.
func (m *Metrics) Retrieval(source, outcome string) {
	m.MemoryRetrievals.WithLabelValues(source, outcome).Inc()
}

// Commit counts one turn persistence attempt.
func (m *Metrics) Commit(role, outcome string) {
	m.TurnCommits.WithLabelValues(role, outcome).Inc()
}

// Remote counts one remote memory call.
func (m *Metrics) Remote(op, outcome string) {
	m.RemoteCalls.WithLabelValues(op, outcome).Inc()
}

// ObserveEmbedding records how long an embedding call took.
func (m *Metrics) ObserveEmbedding(d time.Duration) {
	m.EmbeddingSeconds.Observe(d.Seconds())
}

// Handler serves the registry m was built with, or the default registry.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer != nil {
		return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// Outcome maps an error to the ok or error label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
