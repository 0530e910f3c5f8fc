package pkg

import "github.com/prometheus/client_golang/prometheus"

var (
	EventServerSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_server_sessions",
		Help: "A gauge of sessions connected to the signaling server.",
	})

	EventServerRoomsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_server_rooms",
		Help: "A gauge of rooms with at least one member.",
	})

	EventServerRoomsCreatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signaling_server_rooms_created_total",
		Help: "A counter of room identifiers issued.",
	})

	EventServerBroadcastsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signaling_server_broadcasts_total",
		Help: "A counter of messages broadcast to a room.",
	})

	EventServerRelayedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signaling_server_relayed_messages_total",
		Help: "A counter of client messages relayed to a room.",
	})

	EventServerRejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_server_rejected_messages_total",
		Help: "A counter of client messages that were not relayed.",
	}, []string{"reason"})

	EventServerDroppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signaling_server_dropped_deliveries_total",
		Help: "A counter of deliveries dropped because a session could not accept them.",
	})

	EventServerInFlightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_server_in_flight_requests",
		Help: "A gauge of requests being handled by the signaling server.",
	})

	EventServerRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_server_requests_total",
		Help: "A counter for requests to the signaling server.",
	}, []string{"code", "method"})
)

func init() {
	prometheus.MustRegister(
		EventServerSessionsGauge,
		EventServerRoomsGauge,
		EventServerRoomsCreatedCounter,
		EventServerBroadcastsCounter,
		EventServerRelayedCounter,
		EventServerRejectedCounter,
		EventServerDroppedCounter,
		EventServerInFlightGauge,
		EventServerRequestsCounter,
	)
}
