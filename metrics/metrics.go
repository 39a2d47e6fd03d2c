// Package metrics wires the engine's request lifecycle to Prometheus
// instrumentation. It has no knowledge of routing or transport — it is
// a plain event bus subscriber, matching SPEC_FULL.md §4.11's framing
// that "the engine's metrics are themselves just another event bus
// consumer, not a special case."
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wikihost/engine/eventbus"
)

// Registry owns the engine's Prometheus collectors. Embedders who run
// multiple engine instances in one process should create one Registry
// per instance (via New) rather than relying on the default
// prometheus.Registerer, which would panic on duplicate registration.
type Registry struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	sseActive prometheus.Gauge
}

// New creates and registers the engine's collectors against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for a process that exposes /metrics.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wikihost_requests_total",
			Help: "Total number of requests dispatched by the router, labelled by method and final status code.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wikihost_request_duration_seconds",
			Help:    "Request handling duration from match to stream-ended, in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		sseActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wikihost_sse_connections_active",
			Help: "Number of currently open Server-Sent Events streams.",
		}),
	}

	reg.MustRegister(r.requests, r.duration, r.sseActive)
	return r
}

// Attach subscribes the registry to the events it instruments. Call once
// per engine instance, after the event bus used by the Router/Listener
// Set is known.
func (r *Registry) Attach(bus *eventbus.Bus) {
	bus.On(eventbus.EventRequestHandle, r.onRequestHandled)
	bus.On(eventbus.EventSSEOpened, r.onSSEOpened)
	bus.On(eventbus.EventSSEClosed, r.onSSEClosed)
}

// onRequestHandled expects args (method string, status int, started time.Time).
func (r *Registry) onRequestHandled(ctx context.Context, args ...any) error {
	if len(args) != 3 {
		return nil
	}
	method, ok1 := args[0].(string)
	status, ok2 := args[1].(int)
	started, ok3 := args[2].(time.Time)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}

	r.requests.WithLabelValues(method, statusLabel(status)).Inc()
	r.duration.WithLabelValues(method).Observe(time.Since(started).Seconds())
	return nil
}

// SSEOpened increments the active-SSE-connections gauge.
func (r *Registry) SSEOpened() { r.sseActive.Inc() }

// SSEClosed decrements the active-SSE-connections gauge.
func (r *Registry) SSEClosed() { r.sseActive.Dec() }

// onSSEOpened and onSSEClosed are the eventbus.EventSSEOpened /
// eventbus.EventSSEClosed subscribers Attach wires up; state.SendSSE and
// SSEStream.Close emit those events so the gauge tracks real streams
// instead of only the direct SSEOpened/SSEClosed calls tests make.
func (r *Registry) onSSEOpened(ctx context.Context, args ...any) error {
	r.SSEOpened()
	return nil
}

func (r *Registry) onSSEClosed(ctx context.Context, args ...any) error {
	r.SSEClosed()
	return nil
}

func statusLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
