// Package metrics exposes Prometheus instrumentation for remote invocations and chat sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation outcomes
const (
	OutcomeOK          = "ok"
	OutcomeEmptyReply  = "empty_reply"
	OutcomeRemoteError = "remote_error"
	OutcomeTransport   = "transport_error"
)

// Recorder records invocation and session metrics into its own registry. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry    *prometheus.Registry
	invocations *prometheus.CounterVec
	latency     prometheus.Histogram
	sessions    prometheus.Gauge
	rejected    prometheus.Counter
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cloudops",
			Name:      "invocations_total",
			Help:      "Remote function invocations by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cloudops",
			Name:      "invocation_duration_seconds",
			Help:      "Wall time of remote function invocations.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cloudops",
			Name:      "active_sessions",
			Help:      "Chat sessions currently held by the web surface.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cloudops",
			Name:      "rejected_submissions_total",
			Help:      "Submissions rejected because a query was already pending.",
		}),
	}
	r.registry.MustRegister(r.invocations, r.latency, r.sessions, r.rejected)
	return r
}

// ObserveInvocation records one remote call
func (r *Recorder) ObserveInvocation(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.invocations.WithLabelValues(outcome).Inc()
	r.latency.Observe(elapsed.Seconds())
}

// SetSessions records the number of live sessions
func (r *Recorder) SetSessions(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}

// RejectedSubmission records a submission refused while another query was pending
func (r *Recorder) RejectedSubmission() {
	if r == nil {
		return
	}
	r.rejected.Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
