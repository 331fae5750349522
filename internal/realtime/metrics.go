package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	// connectionsGauge tracks attached connections.
	connectionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Current number of attached realtime connections.",
	})

	// onlineGauge tracks registered identities.
	onlineGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_online_identities",
		Help: "Current number of identities with a live connection.",
	})

	inboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_inbound_total",
			Help: "Inbound realtime events by name.",
		},
		[]string{"event"},
	)

	outboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_outbound_total",
			Help: "Outbound realtime events queued by name.",
		},
		[]string{"event"},
	)

	// droppedEvents counts events a connection could not accept.
	droppedEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_dispatch_dropped_total",
		Help: "Outbound events dropped because the connection buffer was full or closed.",
	})

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_status_transitions_total",
			Help: "Message status transitions applied, by target status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(connectionsGauge, onlineGauge, inboundEvents, outboundEvents, droppedEvents, statusTransitions)
}

// send queues ev on c and records the outcome.
func send(c Conn, ev Event) bool {
	if c.Send(ev) {
		outboundEvents.WithLabelValues(ev.Name).Inc()
		return true
	}
	droppedEvents.Inc()
	return false
}
