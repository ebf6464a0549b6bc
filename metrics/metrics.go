// Package metrics exposes prometheus instrumentation for the RPC transport.
//
// All methods are nil-safe: a nil *Metrics disables instrumentation without
// any branching at the call sites.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the transport collectors.
type Metrics struct {
	CallsTotal      *prometheus.CounterVec
	PendingCalls    prometheus.Gauge
	Subscriptions   prometheus.Gauge
	PushEventsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suirpc",
			Name:      "calls_total",
			Help:      "RPC calls issued, by method and outcome.",
		}, []string{"method", "outcome"}),
		PendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "suirpc",
			Name:      "pending_calls",
			Help:      "Requests awaiting a reply.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "suirpc",
			Name:      "subscriptions",
			Help:      "Live push subscriptions.",
		}),
		PushEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "suirpc",
			Name:      "push_events_total",
			Help:      "Push events delivered, by method.",
		}, []string{"method"}),
	}
	reg.MustRegister(m.CallsTotal, m.PendingCalls, m.Subscriptions, m.PushEventsTotal)
	return m
}

// ObserveCall records one finished call.
func (m *Metrics) ObserveCall(method, outcome string) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(method, outcome).Inc()
}

// PendingAdd moves the pending-call gauge by delta.
func (m *Metrics) PendingAdd(delta float64) {
	if m == nil {
		return
	}
	m.PendingCalls.Add(delta)
}

// SubscriptionsAdd moves the live-subscription gauge by delta.
func (m *Metrics) SubscriptionsAdd(delta float64) {
	if m == nil {
		return
	}
	m.Subscriptions.Add(delta)
}

// ObservePushEvent records one delivered push event.
func (m *Metrics) ObservePushEvent(method string) {
	if m == nil {
		return
	}
	m.PushEventsTotal.WithLabelValues(method).Inc()
}
