package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the daemon's prometheus registry and instruments
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	roundsResolved  prometheus.Counter
	eventsPublished prometheus.Counter
}

// NewRecorder creates a recorder with all collectors registered
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	r := &Recorder{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quadrant_requests_total",
			Help: "Requests handled, by method and response status",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quadrant_request_duration_seconds",
			Help:    "Request handling latency, by method",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		roundsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quadrant_combat_rounds_resolved_total",
			Help: "Combat rounds resolved by handlers and the tick loop",
		}),
		eventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quadrant_events_published_total",
			Help: "Realtime envelopes published",
		}),
	}
	registry.MustRegister(r.requestsTotal, r.requestDuration, r.roundsResolved, r.eventsPublished)
	return r
}

// ObserveRequest records one handled request
func (r *Recorder) ObserveRequest(method string, status int, elapsed time.Duration) {
	r.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RoundResolved counts one resolved combat round
func (r *Recorder) RoundResolved() {
	r.roundsResolved.Inc()
}

// EventPublished counts one realtime envelope
func (r *Recorder) EventPublished() {
	r.eventsPublished.Inc()
}

// Handler serves the /metrics endpoint
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
