// Package metrics exposes Prometheus collectors for the delivery core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_events_consumed_total",
			Help: "Total broker messages consumed, by topic",
		},
		[]string{"topic"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_events_published_total",
			Help: "Total broker messages published, by topic",
		},
		[]string{"topic"},
	)

	EventsInvalidTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_events_invalid_total",
			Help: "Total broker messages dropped as malformed, by topic",
		},
		[]string{"topic"},
	)

	AssignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_assignments_total",
			Help: "Auto-assignment attempts, by outcome (assigned, no_rider, conflict)",
		},
		[]string{"outcome"},
	)

	RealtimeBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_realtime_broadcasts_total",
			Help: "Messages fanned out to broadcast groups, by event",
		},
		[]string{"event"},
	)

	RealtimeClientsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "delivery_realtime_clients_active",
			Help: "Currently connected realtime clients",
		},
	)
)

// Register adds all collectors to the given registry.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		EventsConsumedTotal,
		EventsPublishedTotal,
		EventsInvalidTotal,
		AssignmentsTotal,
		RealtimeBroadcastsTotal,
		RealtimeClientsActive,
	)
}
