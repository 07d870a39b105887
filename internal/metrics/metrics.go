// Package metrics exposes router-core activity as Prometheus
// instruments, per SPEC_FULL.md §11 (github.com/prometheus/client_golang,
// sourced from the retrieved pack's DrBlury-protoflow dependency
// surface). internal/router and internal/adminapi both hold a
// *Metrics; nothing else in the router core needs to know Prometheus
// exists.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the full set of counters/gauges the router records.
// Registered once, shared across every realm.
type Metrics struct {
	SessionsOpened   prometheus.Counter
	SessionsActive   prometheus.Gauge
	SessionsAborted  prometheus.Counter
	Publications     prometheus.Counter
	Events           prometheus.Counter
	Calls            prometheus.Counter
	CallErrors       prometheus.Counter
	CallTimeouts     prometheus.Counter
	Registrations    prometheus.Gauge
	Subscriptions    prometheus.Gauge
}

// New creates and registers every instrument against reg. Passing a
// fresh prometheus.NewRegistry() in tests avoids collisions with the
// global default registry across parallel test packages.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wampcore_sessions_opened_total",
			Help: "Total sessions that reached the established state.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wampcore_sessions_active",
			Help: "Sessions currently established.",
		}),
		SessionsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wampcore_sessions_aborted_total",
			Help: "Sessions terminated by a protocol violation.",
		}),
		Publications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wampcore_publications_total",
			Help: "PUBLISH requests processed, matched or not.",
		}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wampcore_events_delivered_total",
			Help: "PUBLISH requests that matched at least one topic; counted once per publication, not once per EVENT sent.",
		}),
		Calls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wampcore_calls_total",
			Help: "CALL requests routed to a callee.",
		}),
		CallErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wampcore_call_errors_total",
			Help: "CALLs that terminated in an ERROR.",
		}),
		CallTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wampcore_call_timeouts_total",
			Help: "CALLs terminated by their timeout.",
		}),
		Registrations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wampcore_registrations_active",
			Help: "Live procedure registrations across all realms.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wampcore_subscriptions_active",
			Help: "Live topic subscriptions across all realms.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.SessionsOpened, m.SessionsActive, m.SessionsAborted,
		m.Publications, m.Events, m.Calls, m.CallErrors, m.CallTimeouts,
		m.Registrations, m.Subscriptions,
	} {
		reg.MustRegister(c)
	}
	return m
}
